// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"agenda_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Confirmation Domain Events
// =============================================================================

// MeetingConfirmationChanged is published after a meeting's confirmation state
// was written, by a classified reply or by an operator override.
type MeetingConfirmationChanged struct {
	BaseEvent
	MeetingID  int64     `json:"meetingId"`
	Status     string    `json:"status"`
	Confidence float64   `json:"confidence"`
	ResponseID uuid.UUID `json:"responseId"`
	Manual     bool      `json:"manual"`
}

func (e MeetingConfirmationChanged) EventName() string { return "confirmation.meeting.changed" }

// ClientReplyRecorded is published whenever a reply row is created or reused.
type ClientReplyRecorded struct {
	BaseEvent
	MeetingID  int64     `json:"meetingId"`
	ResponseID uuid.UUID `json:"responseId"`
	Status     string    `json:"status"`
	Confidence float64   `json:"confidence"`
}

func (e ClientReplyRecorded) EventName() string { return "confirmation.reply.recorded" }

// ConfirmationRequestSent is published after the outbound WhatsApp request
// left the sender and the meeting was put under watch.
type ConfirmationRequestSent struct {
	BaseEvent
	MeetingID int64  `json:"meetingId"`
	Phone     string `json:"phone"`
}

func (e ConfirmationRequestSent) EventName() string { return "confirmation.request.sent" }
