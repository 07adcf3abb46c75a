package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"agenda_backend/platform/logger"
)

type waConfig struct{ url string }

func (c waConfig) GetWhatsAppURL() string      { return c.url }
func (c waConfig) GetWhatsAppKey() string      { return "secret" }
func (c waConfig) GetWhatsAppInstance() string { return "agenda" }

func TestSendMessage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/message/sendText/agenda" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("apikey") != "secret" {
			t.Errorf("missing apikey header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(waConfig{url: srv.URL + "/"}, logger.Nop())
	if err := c.SendMessage(context.Background(), "(21) 98216-1008", "Olá"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["number"] != "5521982161008" || got["text"] != "Olá" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestSendMessageFallsBackToLegacyPayload(t *testing.T) {
	var mu sync.Mutex
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		if _, ok := body["textMessage"]; !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":["instance requires property \"textMessage\""]}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(waConfig{url: srv.URL}, logger.Nop())
	if err := c.SendMessage(context.Background(), "5521982161008", "oi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(bodies) != 2 {
		t.Fatalf("expected retry with legacy payload, got %d requests", len(bodies))
	}
}

func TestSendMessageReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "instance disconnected", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(waConfig{url: srv.URL}, logger.Nop())
	if err := c.SendMessage(context.Background(), "5521982161008", "oi"); err == nil {
		t.Fatal("expected error")
	}
}

func TestNilClient(t *testing.T) {
	var c *Client
	if err := c.SendMessage(context.Background(), "5521982161008", "oi"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if NewClient(waConfig{}, nil) != nil {
		t.Fatal("expected nil client without url")
	}
}
