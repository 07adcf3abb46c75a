package correlation

import (
	"context"

	"agenda_backend/internal/events"
)

// BusNotifier publishes changes on the event bus. Publish is asynchronous,
// so neither method blocks the caller on subscribers.
type BusNotifier struct {
	bus events.Bus
}

// NewBusNotifier creates a notifier over bus.
func NewBusNotifier(bus events.Bus) *BusNotifier {
	return &BusNotifier{bus: bus}
}

func (n *BusNotifier) OnReplyRecorded(ctx context.Context, c StatusChange) {
	n.bus.Publish(ctx, events.ClientReplyRecorded{
		BaseEvent:  events.NewBaseEvent(),
		MeetingID:  c.MeetingID,
		ResponseID: c.ResponseID,
		Status:     string(c.Status),
		Confidence: c.Confidence,
	})
}

func (n *BusNotifier) OnStatusChanged(ctx context.Context, c StatusChange) {
	n.bus.Publish(ctx, events.MeetingConfirmationChanged{
		BaseEvent:  events.NewBaseEvent(),
		MeetingID:  c.MeetingID,
		Status:     string(c.Status),
		Confidence: c.Confidence,
		ResponseID: c.ResponseID,
		Manual:     c.Manual,
	})
}
