package phone

import (
	"bytes"
	"strings"
	"testing"

	"agenda_backend/platform/logger"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{name: "legacy eleven digits", raw: "21982161008", want: "5521982161008"},
		{name: "formatted local", raw: "(21) 98216-1008", want: "5521982161008"},
		{name: "ten digits gains mobile nine", raw: "2182161008", want: "5521982161008"},
		{name: "canonical passes through", raw: "5521982161008", want: "5521982161008"},
		{name: "plus prefix", raw: "+55 21 98216-1008", want: "5521982161008"},
		{name: "whatsapp jid", raw: "5521982161008@s.whatsapp.net", want: "5521982161008"},
		{name: "multi device jid", raw: "5521982161008:12@s.whatsapp.net", want: "5521982161008"},
		{name: "duplicated country code", raw: "555521982161008", want: "5521982161008"},
		{name: "bare subscriber kept", raw: "982161008@s.whatsapp.net", want: "982161008"},
		{name: "twelve digit legacy kept", raw: "552182161008", want: "552182161008"},
		{name: "unknown ddd kept", raw: "20982161008", want: "20982161008"},
		{name: "rio grande do sul ddd 55", raw: "55991234567", want: "5555991234567"},
		{name: "empty", raw: "", want: ""},
		{name: "no digits", raw: "status@broadcast", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.raw); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	corpus := []string{
		"21982161008", "2182161008", "5521982161008", "555521982161008",
		"55555521982161008", "982161008", "552182161008", "55991234567",
		"+1 (415) 555-0100", "0800 123 4567", "11", "5555", "555555555555555",
		"abc", "", "31 3333-4444", "120363025246125244@g.us",
	}
	for _, raw := range corpus {
		once := Normalize(raw)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", raw, once, twice)
		}
	}
}

func TestOutboundFormatterLogsUnrecognizedShape(t *testing.T) {
	var buf bytes.Buffer
	f := NewOutboundFormatter(logger.NewWithWriter("production", &buf))

	if got := f.Format("12345"); got != "12345" {
		t.Fatalf("expected passthrough, got %q", got)
	}
	if !strings.Contains(buf.String(), "unrecognized shape") {
		t.Fatalf("expected warning to be logged, got %q", buf.String())
	}
}

func TestOutboundFormatterCanonicalizes(t *testing.T) {
	f := NewOutboundFormatter(nil)

	cases := map[string]string{
		"2182161008":    "5521982161008",
		"21982161008":   "5521982161008",
		"5521982161008": "5521982161008",
	}
	for raw, want := range cases {
		if got := f.Format(raw); got != want {
			t.Fatalf("Format(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestE164(t *testing.T) {
	if got := E164("21982161008"); got != "+5521982161008" {
		t.Fatalf("unexpected E164: %q", got)
	}
	if got := E164(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
