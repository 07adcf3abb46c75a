package webhook

import (
	"context"
	"encoding/json"

	"agenda_backend/internal/correlation"
	"agenda_backend/platform/logger"

	"github.com/google/uuid"
)

// Delivery statuses reported back to the provider.
const (
	StatusProcessed = "processed"
	StatusIgnored   = "ignored"
)

// Ignore reasons decided before the engine runs.
const (
	ReasonWrongInstance   = "wrong_instance"
	ReasonNotMessageEvent = "not_message_event"
	ReasonUnrecognized    = "unrecognized_payload"
	ReasonFromMe          = "from_me"
	ReasonGroupMessage    = "group_message"
)

// ReplyHandler correlates one inbound reply.
type ReplyHandler interface {
	Handle(ctx context.Context, rawSender, rawText string) (correlation.Outcome, error)
}

// AuditLog stores deliveries. Failures never block processing.
type AuditLog interface {
	LogIncoming(ctx context.Context, entry IncomingLog) (uuid.UUID, error)
	SetOutcome(ctx context.Context, id uuid.UUID, outcome string) error
}

// Result is the body answered to the provider.
type Result struct {
	Status     string    `json:"status"`
	Processed  bool      `json:"processed"`
	Reason     string    `json:"reason"`
	MeetingID  int64     `json:"meetingId,omitempty"`
	ResponseID uuid.UUID `json:"responseId,omitempty"`
	Intent     string    `json:"intent,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Strategy   string    `json:"strategy,omitempty"`
}

// Service filters Evolution deliveries and hands replies to the engine.
type Service struct {
	engine   ReplyHandler
	audit    AuditLog
	instance string
	log      *logger.Logger
}

// NewService creates a webhook service. audit may be nil. An empty instance
// accepts deliveries from any instance.
func NewService(engine ReplyHandler, audit AuditLog, instance string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{engine: engine, audit: audit, instance: instance, log: log}
}

// Process handles one decoded delivery. Only storage failures from the
// engine are returned as errors.
func (s *Service) Process(ctx context.Context, payload map[string]any, raw json.RawMessage) (Result, error) {
	in := Extract(payload)

	deliveryID := s.recordDelivery(ctx, in, raw)
	if deliveryID != uuid.Nil {
		ctx = context.WithValue(ctx, logger.DeliveryIDKey, deliveryID.String())
	}
	log := s.log.WithContext(ctx)

	result, err := s.process(ctx, in)
	if err != nil {
		log.Error("webhook processing failed", "event", in.Event, "error", err)
		s.recordOutcome(ctx, deliveryID, "error")
		return result, err
	}

	log.Info("webhook handled",
		"event", in.Event,
		"status", result.Status,
		"reason", result.Reason,
		"meetingId", result.MeetingID,
	)
	s.recordOutcome(ctx, deliveryID, result.Status+":"+result.Reason)
	return result, nil
}

func (s *Service) process(ctx context.Context, in Inbound) (Result, error) {
	if s.instance != "" && in.Instance != s.instance {
		return ignored(ReasonWrongInstance), nil
	}
	if !IsMessageEvent(in.Event) {
		return ignored(ReasonNotMessageEvent), nil
	}
	if !in.Found {
		return ignored(ReasonUnrecognized), nil
	}
	if in.FromMe {
		return ignored(ReasonFromMe), nil
	}
	if in.Group {
		return ignored(ReasonGroupMessage), nil
	}

	out, err := s.engine.Handle(ctx, in.Sender, in.Text)
	result := Result{
		Status:     StatusIgnored,
		Processed:  out.Processed,
		Reason:     string(out.Reason),
		MeetingID:  out.MeetingID,
		ResponseID: out.ResponseID,
		Strategy:   string(out.Strategy),
	}
	if out.MeetingID != 0 {
		result.Intent = string(out.Result.Status)
		result.Confidence = out.Result.Confidence
	}
	if out.Processed {
		result.Status = StatusProcessed
	}
	return result, err
}

func ignored(reason string) Result {
	return Result{Status: StatusIgnored, Reason: reason}
}

func (s *Service) recordDelivery(ctx context.Context, in Inbound, raw json.RawMessage) uuid.UUID {
	if s.audit == nil {
		return uuid.Nil
	}
	id, err := s.audit.LogIncoming(ctx, IncomingLog{
		Event:    in.Event,
		Instance: in.Instance,
		Sender:   in.Sender,
		Payload:  raw,
	})
	if err != nil {
		s.log.Warn("webhook audit log failed", "error", err)
		return uuid.Nil
	}
	return id
}

func (s *Service) recordOutcome(ctx context.Context, id uuid.UUID, outcome string) {
	if s.audit == nil || id == uuid.Nil {
		return
	}
	if err := s.audit.SetOutcome(ctx, id, outcome); err != nil {
		s.log.Warn("webhook outcome update failed", "error", err)
	}
}
