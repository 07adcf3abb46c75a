// Package correlation resolves an inbound WhatsApp reply to the meeting that
// is waiting for it, classifies the reply and applies the result.
package correlation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agenda_backend/internal/intent"
	"agenda_backend/internal/ledger"
	"agenda_backend/internal/watch"
	"agenda_backend/platform/logger"
	"agenda_backend/platform/phone"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("agenda.correlation")

// DefaultMinConfidence is the lowest confidence that may change a meeting.
const DefaultMinConfidence = 0.15

// Reason explains how a reply was handled.
type Reason string

const (
	ReasonApplied         Reason = "applied"
	ReasonMissingSender   Reason = "missing_sender"
	ReasonMissingText     Reason = "missing_text"
	ReasonNoWatch         Reason = "no_watch"
	ReasonLowConfidence   Reason = "low_confidence"
	ReasonMeetingNotFound Reason = "meeting_not_found"
	ReasonStorageFailure  Reason = "storage_failure"
)

// Outcome is returned for every handled reply.
type Outcome struct {
	Processed     bool           `json:"processed"`
	MeetingID     int64          `json:"meetingId,omitempty"`
	ResponseID    uuid.UUID      `json:"responseId,omitempty"`
	Phone         string         `json:"phone,omitempty"`
	Strategy      watch.Strategy `json:"strategy,omitempty"`
	Result        intent.Result  `json:"result"`
	StatusApplied bool           `json:"statusApplied"`
	WatchRetired  bool           `json:"watchRetired"`
	Reason        Reason         `json:"reason"`
}

// Registry is the subset of the watch registry the engine needs.
type Registry interface {
	FindMatch(incoming string) (watch.Watch, watch.Strategy, bool)
	Remove(meetingID int64) bool
}

// Ledger records replies and writes meeting states.
type Ledger interface {
	RecordReply(ctx context.Context, reply ledger.Reply) (uuid.UUID, error)
	ApplyStatus(ctx context.Context, meetingID int64, status intent.Status) (bool, error)
}

// StatusChange is handed to the notifier after a state write.
type StatusChange struct {
	MeetingID  int64
	ResponseID uuid.UUID
	Status     intent.Status
	Confidence float64
	Manual     bool
}

// Notifier receives fire-and-forget notifications. Implementations must not block.
type Notifier interface {
	OnReplyRecorded(ctx context.Context, change StatusChange)
	OnStatusChanged(ctx context.Context, change StatusChange)
}

// Engine wires normalization, matching, classification and the ledger.
type Engine struct {
	registry      Registry
	ledger        Ledger
	notifier      Notifier
	classify      func(string) intent.Result
	minConfidence float64
	metrics       *Metrics
	log           *logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets the change notifier.
func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

// WithMinConfidence overrides DefaultMinConfidence.
func WithMinConfidence(v float64) Option { return func(e *Engine) { e.minConfidence = v } }

// WithMetrics records outcomes in m.
func WithMetrics(m *Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithClassifier replaces intent.Classify.
func WithClassifier(fn func(string) intent.Result) Option {
	return func(e *Engine) { e.classify = fn }
}

// NewEngine creates an engine over registry and ledger.
func NewEngine(registry Registry, l Ledger, log *logger.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	e := &Engine{
		registry:      registry,
		ledger:        l,
		classify:      intent.Classify,
		minConfidence: DefaultMinConfidence,
		log:           log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle processes one inbound reply. Only storage failures are returned as
// errors; every other outcome is described by Outcome.Reason.
func (e *Engine) Handle(ctx context.Context, rawSender, rawText string) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "correlation.Handle", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	start := time.Now()

	out, err := e.handle(ctx, rawSender, rawText)

	span.SetAttributes(
		attribute.String("reason", string(out.Reason)),
		attribute.Bool("processed", out.Processed),
	)
	if out.MeetingID != 0 {
		span.SetAttributes(
			attribute.Int64("meeting_id", out.MeetingID),
			attribute.String("strategy", string(out.Strategy)),
			attribute.String("status", string(out.Result.Status)),
			attribute.Float64("confidence", out.Result.Confidence),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	e.metrics.observe(out, time.Since(start).Seconds())

	return out, err
}

func (e *Engine) handle(ctx context.Context, rawSender, rawText string) (Outcome, error) {
	log := e.log.WithContext(ctx)

	normalized := phone.Normalize(rawSender)
	if normalized == "" {
		log.Debug("reply without usable sender", "sender", rawSender)
		return Outcome{Reason: ReasonMissingSender}, nil
	}
	if strings.TrimSpace(rawText) == "" {
		log.Debug("reply without text", "phone", normalized)
		return Outcome{Phone: normalized, Reason: ReasonMissingText}, nil
	}

	w, strategy, ok := e.registry.FindMatch(normalized)
	if !ok {
		log.Info("reply from unmonitored number", "phone", normalized)
		return Outcome{Phone: normalized, Reason: ReasonNoWatch}, nil
	}

	out := Outcome{Phone: normalized, MeetingID: w.MeetingID, Strategy: strategy}
	log = log.WithMeeting(w.MeetingID)

	result := e.classify(rawText)
	out.Result = result

	responseID, err := e.ledger.RecordReply(ctx, ledger.Reply{
		MeetingID:  w.MeetingID,
		Text:       rawText,
		Status:     result.Status,
		Confidence: result.Confidence,
		Analysis:   analysisPayload(result, strategy, normalized),
	})
	if errors.Is(err, ledger.ErrMeetingNotFound) {
		return e.retireMissing(log, out), nil
	}
	if err != nil {
		out.Reason = ReasonStorageFailure
		return out, fmt.Errorf("record reply for meeting %d: %w", w.MeetingID, err)
	}
	out.Processed = true
	out.ResponseID = responseID

	change := StatusChange{
		MeetingID:  w.MeetingID,
		ResponseID: responseID,
		Status:     result.Status,
		Confidence: result.Confidence,
	}
	e.notify(ctx, func(n Notifier) { n.OnReplyRecorded(ctx, change) })

	if result.Confidence < e.minConfidence {
		log.Info("reply below confidence threshold, watch kept",
			"status", result.Status, "confidence", result.Confidence, "strategy", strategy)
		out.Reason = ReasonLowConfidence
		return out, nil
	}

	changed, err := e.ledger.ApplyStatus(ctx, w.MeetingID, result.Status)
	if err != nil {
		out.Reason = ReasonStorageFailure
		return out, fmt.Errorf("apply status for meeting %d: %w", w.MeetingID, err)
	}
	if !changed {
		return e.retireMissing(log, out), nil
	}

	out.StatusApplied = true
	out.Reason = ReasonApplied
	e.notify(ctx, func(n Notifier) { n.OnStatusChanged(ctx, change) })

	if result.Status.IsTerminal() {
		out.WatchRetired = e.registry.Remove(w.MeetingID)
	}

	log.Info("reply applied",
		"status", result.Status,
		"confidence", result.Confidence,
		"strategy", strategy,
		"watchRetired", out.WatchRetired,
	)
	return out, nil
}

// retireMissing drops the watch of a meeting that no longer exists; such a
// watch can never resolve and would shadow later watches on the same phone.
func (e *Engine) retireMissing(log *logger.Logger, out Outcome) Outcome {
	out.WatchRetired = e.registry.Remove(out.MeetingID)
	out.Reason = ReasonMeetingNotFound
	log.Warn("watched meeting not found", "watchRetired", out.WatchRetired)
	return out
}

func (e *Engine) notify(ctx context.Context, fn func(Notifier)) {
	if e.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.WithContext(ctx).Error("notifier panicked", "panic", r)
		}
	}()
	fn(e.notifier)
}

func analysisPayload(r intent.Result, strategy watch.Strategy, normalized string) map[string]any {
	return map[string]any{
		"status":        r.Status,
		"confidence":    r.Confidence,
		"scores":        r.Scores,
		"matched_terms": r.Matched,
		"normalized":    r.Normalized,
		"strategy":      strategy,
		"phone":         normalized,
	}
}
