package webhook

import (
	"strings"

	"agenda_backend/platform/sanitize"
)

// acceptedEvents are matched as substrings of the lowercased event name.
var acceptedEvents = []string{
	"messages.upsert",
	"message.upsert",
	"messages_upsert",
	"message",
	"messages",
	"send.message",
	"receive.message",
	"messages.set",
	"messaging-history.set",
}

// Inbound is what a webhook delivery says about one message.
type Inbound struct {
	Event    string
	Instance string
	Sender   string
	Text     string
	FromMe   bool
	Group    bool
	// Found is false when no message object could be located.
	Found bool
}

// IsMessageEvent reports whether event names a message delivery. An empty
// event is accepted since some providers omit it.
func IsMessageEvent(event string) bool {
	event = strings.ToLower(strings.TrimSpace(event))
	if event == "" {
		return true
	}
	for _, accepted := range acceptedEvents {
		if strings.Contains(event, accepted) {
			return true
		}
	}
	return false
}

// Extract reads an Evolution API payload. The message object is taken from
// data (an object or the first element of a list), or from the root when it
// carries key and message.
func Extract(payload map[string]any) Inbound {
	in := Inbound{
		Event:    str(payload, "event"),
		Instance: firstNonEmpty(str(payload, "instance"), str(payload, "instanceName")),
	}

	msg := messageObject(payload)
	if msg == nil {
		return in
	}
	in.Found = true

	key := obj(msg, "key")
	in.FromMe, _ = key["fromMe"].(bool)

	in.Sender = firstNonEmpty(
		str(key, "remoteJid"),
		str(key, "from"),
		str(payload, "from"),
		str(payload, "remoteJid"),
	)
	in.Group = strings.HasSuffix(in.Sender, "@g.us")

	content := obj(msg, "message")
	in.Text = sanitize.Text(firstNonEmpty(
		str(content, "conversation"),
		str(obj(content, "extendedTextMessage"), "text"),
		str(content, "text"),
		str(obj(content, "imageMessage"), "caption"),
		str(obj(content, "videoMessage"), "caption"),
		str(msg, "body"),
		str(msg, "text"),
		str(payload, "body"),
		str(payload, "text"),
	))
	return in
}

func messageObject(payload map[string]any) map[string]any {
	switch data := payload["data"].(type) {
	case map[string]any:
		return data
	case []any:
		if len(data) > 0 {
			if first, ok := data[0].(map[string]any); ok {
				return first
			}
		}
		return nil
	}
	if _, ok := payload["key"]; ok {
		if _, ok := payload["message"]; ok {
			return payload
		}
	}
	return nil
}

func obj(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	v, _ := m[key].(map[string]any)
	return v
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return strings.TrimSpace(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
