// Package ledger is the durable record of client replies and the single
// writer of a meeting's confirmation state.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"agenda_backend/internal/intent"
	"agenda_backend/platform/logger"

	"github.com/google/uuid"
)

// DefaultDedupWindow is how long an identical reply for the same meeting is
// treated as a redelivery.
const DefaultDedupWindow = 5 * time.Minute

// ErrMeetingNotFound is returned by RecordReply when the store refuses a
// reply because its meeting no longer exists.
var ErrMeetingNotFound = errors.New("meeting not found")

// Reply is one inbound reply to be recorded.
type Reply struct {
	MeetingID  int64
	Text       string
	Status     intent.Status
	Confidence float64
	Analysis   any
}

// Recorded describes the row a reply resolved to.
type Recorded struct {
	ID         uuid.UUID
	ReceivedAt time.Time
	Created    bool
}

// Response is a stored client reply.
type Response struct {
	ID         uuid.UUID       `json:"id"`
	MeetingID  int64           `json:"meetingId"`
	Text       string          `json:"text"`
	Status     intent.Status   `json:"status"`
	Confidence float64         `json:"confidence"`
	Analysis   json.RawMessage `json:"analysis"`
	ReceivedAt time.Time       `json:"receivedAt"`
}

// Store is the authoritative persistence behind the ledger.
type Store interface {
	RecordReply(ctx context.Context, reply Reply) (Recorded, error)
	ApplyStatus(ctx context.Context, meetingID int64, status intent.Status) (bool, error)
}

// DedupCache remembers recently recorded replies. Implementations may lose
// entries at any time.
type DedupCache interface {
	Lookup(ctx context.Context, meetingID int64, text string) (uuid.UUID, bool, error)
	Remember(ctx context.Context, meetingID int64, text string, id uuid.UUID, ttl time.Duration) error
}

// Ledger records replies idempotently and applies status transitions.
// RecordReply and ApplyStatus run in separate transactions; a failed
// ApplyStatus leaves the recorded reply in place.
type Ledger struct {
	store  Store
	cache  DedupCache
	window time.Duration
	log    *logger.Logger
	now    func() time.Time
}

// New creates a ledger. cache may be nil.
func New(store Store, cache DedupCache, window time.Duration, log *logger.Logger) *Ledger {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Ledger{store: store, cache: cache, window: window, log: log, now: time.Now}
}

// RecordReply returns the id of the reply row for (meetingID, text), reusing
// a row recorded within the dedup window.
func (l *Ledger) RecordReply(ctx context.Context, reply Reply) (uuid.UUID, error) {
	if l.cache != nil {
		id, ok, err := l.cache.Lookup(ctx, reply.MeetingID, reply.Text)
		switch {
		case err != nil:
			l.log.WithContext(ctx).Warn("reply dedup cache lookup failed", "meetingId", reply.MeetingID, "error", err)
		case ok:
			l.log.WithContext(ctx).Debug("reply deduplicated from cache", "meetingId", reply.MeetingID, "responseId", id)
			return id, nil
		}
	}

	rec, err := l.store.RecordReply(ctx, reply)
	if err != nil {
		if !errors.Is(err, ErrMeetingNotFound) {
			l.log.WithContext(ctx).DatabaseError("record reply", err)
		}
		return uuid.Nil, err
	}
	if !rec.Created {
		l.log.WithContext(ctx).Info("duplicate reply within dedup window", "meetingId", reply.MeetingID, "responseId", rec.ID)
	}

	if l.cache != nil {
		ttl := l.window - l.now().Sub(rec.ReceivedAt)
		if ttl > 0 {
			if err := l.cache.Remember(ctx, reply.MeetingID, reply.Text, rec.ID, ttl); err != nil {
				l.log.WithContext(ctx).Warn("reply dedup cache write failed", "meetingId", reply.MeetingID, "error", err)
			}
		}
	}
	return rec.ID, nil
}

// ApplyStatus writes status to the meeting. It returns false without error
// when the meeting does not exist.
func (l *Ledger) ApplyStatus(ctx context.Context, meetingID int64, status intent.Status) (bool, error) {
	applied, err := l.store.ApplyStatus(ctx, meetingID, status)
	if err != nil {
		l.log.WithContext(ctx).DatabaseError("apply status", err)
	}
	return applied, err
}
