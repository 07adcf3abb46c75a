package webhook

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return m
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Inbound
	}{
		{
			name: "data object with conversation",
			raw:  `{"event":"messages.upsert","instance":"agenda","data":{"key":{"remoteJid":"5521982161008@s.whatsapp.net","fromMe":false},"message":{"conversation":"Sim, confirmado"}}}`,
			want: Inbound{Event: "messages.upsert", Instance: "agenda", Sender: "5521982161008@s.whatsapp.net", Text: "Sim, confirmado", Found: true},
		},
		{
			name: "data list with extended text",
			raw:  `{"event":"MESSAGES_UPSERT","instanceName":"agenda","data":[{"key":{"from":"5521982161008"},"message":{"extendedTextMessage":{"text":"ok"}}}]}`,
			want: Inbound{Event: "MESSAGES_UPSERT", Instance: "agenda", Sender: "5521982161008", Text: "ok", Found: true},
		},
		{
			name: "root message object",
			raw:  `{"key":{"remoteJid":"5511999990000@s.whatsapp.net"},"message":{"imageMessage":{"caption":"não posso"}}}`,
			want: Inbound{Sender: "5511999990000@s.whatsapp.net", Text: "não posso", Found: true},
		},
		{
			name: "root sender and body fallback",
			raw:  `{"event":"message","from":"21982161008","body":"confirmo","data":{"key":{},"message":{}}}`,
			want: Inbound{Event: "message", Sender: "21982161008", Text: "confirmo", Found: true},
		},
		{
			name: "from me and group",
			raw:  `{"data":{"key":{"remoteJid":"120363@g.us","fromMe":true},"message":{"conversation":"oi"}}}`,
			want: Inbound{Sender: "120363@g.us", Text: "oi", FromMe: true, Group: true, Found: true},
		},
		{
			name: "markup stripped from text",
			raw:  `{"data":{"key":{"remoteJid":"5521982161008"},"message":{"conversation":"<b>sim</b>\u0000"}}}`,
			want: Inbound{Sender: "5521982161008", Text: "sim", Found: true},
		},
		{
			name: "no message object",
			raw:  `{"event":"connection.update","data":"open"}`,
			want: Inbound{Event: "connection.update"},
		},
		{
			name: "empty data list",
			raw:  `{"event":"messages.upsert","data":[]}`,
			want: Inbound{Event: "messages.upsert"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(decode(t, tt.raw))
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestIsMessageEvent(t *testing.T) {
	tests := map[string]bool{
		"":                      true,
		"messages.upsert":       true,
		"MESSAGES_UPSERT":       true,
		"messaging-history.set": true,
		"send.message":          true,
		"connection.update":     false,
		"qrcode.updated":        false,
	}
	for event, want := range tests {
		if got := IsMessageEvent(event); got != want {
			t.Fatalf("IsMessageEvent(%q) = %v, want %v", event, got, want)
		}
	}
}
