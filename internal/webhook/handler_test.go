package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"agenda_backend/internal/correlation"
	"agenda_backend/internal/intent"
	"agenda_backend/platform/apperr"
	"agenda_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeEngine struct {
	mu      sync.Mutex
	senders []string
	texts   []string
	outcome correlation.Outcome
	err     error
}

func (f *fakeEngine) Handle(_ context.Context, sender, text string) (correlation.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.senders = append(f.senders, sender)
	f.texts = append(f.texts, text)
	return f.outcome, f.err
}

type fakeAudit struct {
	entries  []IncomingLog
	outcomes []string
	err      error
}

func (f *fakeAudit) LogIncoming(_ context.Context, e IncomingLog) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.entries = append(f.entries, e)
	return uuid.New(), nil
}

func (f *fakeAudit) SetOutcome(_ context.Context, _ uuid.UUID, outcome string) error {
	f.outcomes = append(f.outcomes, outcome)
	return nil
}

const validDelivery = `{"event":"messages.upsert","instance":"agenda","data":{"key":{"remoteJid":"5521982161008@s.whatsapp.net"},"message":{"conversation":"sim"}}}`

func newTestRouter(engine ReplyHandler, audit AuditLog, key string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := NewService(engine, audit, "agenda", logger.Nop())
	h := NewHandler(svc)

	r := gin.New()
	r.POST("/webhook/evolution", APIKeyAuthMiddleware(key), h.HandleEvolution)
	return r
}

func post(r *gin.Engine, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/evolution", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) Result {
	t.Helper()
	var res Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return res
}

func TestHandleEvolutionProcessesReply(t *testing.T) {
	engine := &fakeEngine{outcome: correlation.Outcome{
		Processed:  true,
		MeetingID:  7,
		ResponseID: uuid.New(),
		Strategy:   "exact",
		Result:     intent.Result{Status: intent.StatusConfirmed, Confidence: 0.6},
		Reason:     correlation.ReasonApplied,
	}}
	audit := &fakeAudit{}
	r := newTestRouter(engine, audit, "")

	w := post(r, validDelivery, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	res := decodeResult(t, w)
	if res.Status != StatusProcessed || !res.Processed || res.MeetingID != 7 || res.Intent != "confirmed" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(engine.senders) != 1 || engine.senders[0] != "5521982161008@s.whatsapp.net" || engine.texts[0] != "sim" {
		t.Fatalf("unexpected engine input: %v %v", engine.senders, engine.texts)
	}
	if len(audit.entries) != 1 || audit.entries[0].Event != "messages.upsert" {
		t.Fatalf("expected delivery audited, got %+v", audit.entries)
	}
	if len(audit.outcomes) != 1 || audit.outcomes[0] != "processed:applied" {
		t.Fatalf("unexpected audit outcome: %v", audit.outcomes)
	}
}

func TestHandleEvolutionIgnores(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		reason string
	}{
		{name: "wrong instance", body: strings.Replace(validDelivery, `"agenda"`, `"other"`, 1), reason: ReasonWrongInstance},
		{name: "non message event", body: `{"event":"connection.update","instance":"agenda","data":{"state":"open"}}`, reason: ReasonNotMessageEvent},
		{name: "unrecognized", body: `{"event":"messages.upsert","instance":"agenda","data":[]}`, reason: ReasonUnrecognized},
		{name: "from me", body: `{"instance":"agenda","data":{"key":{"remoteJid":"5521982161008@s.whatsapp.net","fromMe":true},"message":{"conversation":"sim"}}}`, reason: ReasonFromMe},
		{name: "group", body: `{"instance":"agenda","data":{"key":{"remoteJid":"1203630@g.us"},"message":{"conversation":"sim"}}}`, reason: ReasonGroupMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{}
			r := newTestRouter(engine, nil, "")

			w := post(r, tt.body, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			res := decodeResult(t, w)
			if res.Status != StatusIgnored || res.Reason != tt.reason {
				t.Fatalf("expected ignored/%s, got %+v", tt.reason, res)
			}
			if len(engine.senders) != 0 {
				t.Fatal("engine must not be called")
			}
		})
	}
}

func TestHandleEvolutionEngineNoWatchIsOK(t *testing.T) {
	engine := &fakeEngine{outcome: correlation.Outcome{Phone: "5521982161008", Reason: correlation.ReasonNoWatch}}
	r := newTestRouter(engine, nil, "")

	w := post(r, validDelivery, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if res := decodeResult(t, w); res.Status != StatusIgnored || res.Reason != "no_watch" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestHandleEvolutionStorageFailure(t *testing.T) {
	engine := &fakeEngine{
		outcome: correlation.Outcome{MeetingID: 7, Reason: correlation.ReasonStorageFailure},
		err:     fmt.Errorf("record reply: %w", apperr.Unavailable("storage", errors.New("down"))),
	}
	audit := &fakeAudit{}
	r := newTestRouter(engine, audit, "")

	w := post(r, validDelivery, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if len(audit.outcomes) != 1 || audit.outcomes[0] != "error" {
		t.Fatalf("expected error outcome, got %v", audit.outcomes)
	}
}

func TestHandleEvolutionBadRequests(t *testing.T) {
	r := newTestRouter(&fakeEngine{}, nil, "")

	for _, body := range []string{`{`, `{}`, `[1,2]`, ``} {
		if w := post(r, body, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}

func TestHandleEvolutionAuditFailureStillProcesses(t *testing.T) {
	engine := &fakeEngine{outcome: correlation.Outcome{Processed: true, MeetingID: 1, Reason: correlation.ReasonLowConfidence}}
	r := newTestRouter(engine, &fakeAudit{err: errors.New("audit down")}, "")

	if w := post(r, validDelivery, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(engine.senders) != 1 {
		t.Fatal("engine must run even when the audit log fails")
	}
}

func TestAPIKeyAuthMiddleware(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestRouter(engine, nil, "secret")

	if w := post(r, validDelivery, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", w.Code)
	}
	if w := post(r, validDelivery, map[string]string{"apikey": "wrong"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", w.Code)
	}
	if w := post(r, validDelivery, map[string]string{"apikey": "secret"}); w.Code != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d", w.Code)
	}
	if len(engine.senders) != 1 {
		t.Fatalf("expected one processed delivery, got %d", len(engine.senders))
	}
}
