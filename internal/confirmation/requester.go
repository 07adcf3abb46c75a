package confirmation

import (
	"context"
	"time"

	"agenda_backend/internal/scheduler"
	"agenda_backend/platform/logger"
)

// Enqueuer schedules confirmation tasks on the queue.
type Enqueuer interface {
	EnqueueConfirmation(ctx context.Context, payload scheduler.ConfirmationSendPayload, delay time.Duration) error
}

// ConfirmationSender sends a confirmation request inline.
type ConfirmationSender interface {
	Send(ctx context.Context, meetingID int64) error
}

// Requester routes confirmation requests through the task queue when one is
// configured and sends them inline otherwise.
type Requester struct {
	queue  Enqueuer
	sender ConfirmationSender
	log    *logger.Logger
}

// NewRequester creates a requester. queue may be nil.
func NewRequester(queue Enqueuer, sender ConfirmationSender, log *logger.Logger) *Requester {
	if log == nil {
		log = logger.Nop()
	}
	return &Requester{queue: queue, sender: sender, log: log}
}

// Request reports whether the send was queued (true) or done inline (false).
// Inline sends ignore delay.
func (r *Requester) Request(ctx context.Context, meetingID int64, delay time.Duration) (bool, error) {
	if r.queue != nil {
		if err := r.queue.EnqueueConfirmation(ctx, scheduler.ConfirmationSendPayload{MeetingID: meetingID}, delay); err != nil {
			return false, err
		}
		r.log.WithContext(ctx).WithMeeting(meetingID).Info("confirmation request queued", "delay", delay.String())
		return true, nil
	}

	if delay > 0 {
		r.log.WithContext(ctx).WithMeeting(meetingID).Warn("task queue not configured, sending without delay", "delay", delay.String())
	}
	return false, r.sender.Send(ctx, meetingID)
}
