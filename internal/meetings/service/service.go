package service

import (
	"context"
	"fmt"
	"time"

	"agenda_backend/internal/correlation"
	"agenda_backend/internal/intent"
	"agenda_backend/internal/ledger"
	"agenda_backend/internal/meetings/repository"
	"agenda_backend/internal/meetings/transport"
	"agenda_backend/internal/watch"
	"agenda_backend/platform/apperr"
	"agenda_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	manualConfidence  = 1.0
	manualReplyFormat = "[MANUAL CONFIRMATION] status set to: %s"
	meetingNotFound   = "meeting not found"
)

// MeetingReader loads meetings.
type MeetingReader interface {
	GetByID(ctx context.Context, id int64) (repository.Meeting, error)
}

// StatusLedger is the single writer of confirmation state.
type StatusLedger interface {
	RecordReply(ctx context.Context, reply ledger.Reply) (uuid.UUID, error)
	ApplyStatus(ctx context.Context, meetingID int64, status intent.Status) (bool, error)
}

// ResponseLister reads the reply history of a meeting.
type ResponseLister interface {
	ListResponses(ctx context.Context, meetingID int64, limit int) ([]ledger.Response, error)
}

// WatchRegistry is the subset of the watch registry the admin surface uses.
type WatchRegistry interface {
	Add(phone string, meetingID int64)
	Remove(meetingID int64) bool
	Clear() int
	Get(meetingID int64) (watch.Watch, bool)
	Snapshot() []watch.Watch
}

// ConfirmationRequester sends (or schedules) the outbound confirmation message.
type ConfirmationRequester interface {
	Request(ctx context.Context, meetingID int64, delay time.Duration) (queued bool, err error)
}

// PhoneFormatter turns a stored contact phone into the canonical digit form.
type PhoneFormatter interface {
	Format(raw string) string
}

// Deps groups the collaborators of the meetings service.
type Deps struct {
	Meetings  MeetingReader
	Ledger    StatusLedger
	Responses ResponseLister
	Watches   WatchRegistry
	Requester ConfirmationRequester
	Formatter PhoneFormatter
	Notifier  correlation.Notifier
	Log       *logger.Logger
}

// Service provides business logic for meeting confirmation administration
type Service struct {
	meetings  MeetingReader
	ledger    StatusLedger
	responses ResponseLister
	watches   WatchRegistry
	requester ConfirmationRequester
	formatter PhoneFormatter
	notifier  correlation.Notifier
	log       *logger.Logger
}

// New creates a new meetings service
func New(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		meetings:  d.Meetings,
		ledger:    d.Ledger,
		responses: d.Responses,
		watches:   d.Watches,
		requester: d.Requester,
		formatter: d.Formatter,
		notifier:  d.Notifier,
		log:       log,
	}
}

// Get returns a meeting together with its current watch.
func (s *Service) Get(ctx context.Context, id int64) (transport.MeetingResponse, error) {
	m, err := s.meetings.GetByID(ctx, id)
	if err != nil {
		return transport.MeetingResponse{}, err
	}

	resp := toMeetingResponse(m)
	if w, ok := s.watches.Get(id); ok {
		resp.Watched = true
		resp.WatchedPhone = w.Phone
	}
	return resp, nil
}

// ManualConfirmation lets an operator override the confirmation state. The
// override is recorded as a reply so it shows up in the history.
func (s *Service) ManualConfirmation(ctx context.Context, meetingID int64, actor string, req transport.ManualConfirmationRequest) (transport.ManualConfirmationResponse, error) {
	status := intent.Status(req.Status)
	switch status {
	case intent.StatusConfirmed, intent.StatusDeclined, intent.StatusPending:
	default:
		return transport.ManualConfirmationResponse{}, apperr.Validation("status must be one of confirmed, declined, pending")
	}

	applied, err := s.ledger.ApplyStatus(ctx, meetingID, status)
	if err != nil {
		return transport.ManualConfirmationResponse{}, err
	}
	if !applied {
		return transport.ManualConfirmationResponse{}, apperr.NotFound(meetingNotFound)
	}

	responseID, err := s.ledger.RecordReply(ctx, ledger.Reply{
		MeetingID:  meetingID,
		Text:       fmt.Sprintf(manualReplyFormat, status),
		Status:     status,
		Confidence: manualConfidence,
		Analysis:   map[string]any{"manual": true, "actor": actor},
	})
	if err != nil {
		return transport.ManualConfirmationResponse{}, err
	}

	retired := false
	if status.IsTerminal() {
		retired = s.watches.Remove(meetingID)
	}

	s.log.WithContext(ctx).WithMeeting(meetingID).Info("manual confirmation applied",
		"status", status, "actor", actor, "watchRetired", retired)

	if s.notifier != nil {
		change := correlation.StatusChange{
			MeetingID:  meetingID,
			ResponseID: responseID,
			Status:     status,
			Confidence: manualConfidence,
			Manual:     true,
		}
		s.notifier.OnReplyRecorded(ctx, change)
		s.notifier.OnStatusChanged(ctx, change)
	}

	return transport.ManualConfirmationResponse{
		MeetingID:    meetingID,
		Status:       string(status),
		ResponseID:   responseID,
		WatchRetired: retired,
	}, nil
}

// ListResponses returns the reply history of a meeting, newest first.
func (s *Service) ListResponses(ctx context.Context, meetingID int64, limit int) (transport.ListResponsesResponse, error) {
	if _, err := s.meetings.GetByID(ctx, meetingID); err != nil {
		return transport.ListResponsesResponse{}, err
	}

	rows, err := s.responses.ListResponses(ctx, meetingID, limit)
	if err != nil {
		return transport.ListResponsesResponse{}, err
	}

	items := make([]transport.ClientResponse, 0, len(rows))
	for _, r := range rows {
		item := transport.ClientResponse{
			ID:         r.ID,
			Text:       r.Text,
			Status:     string(r.Status),
			Confidence: r.Confidence,
			ReceivedAt: r.ReceivedAt,
		}
		if len(r.Analysis) > 0 {
			item.Analysis = r.Analysis
		}
		items = append(items, item)
	}

	return transport.ListResponsesResponse{MeetingID: meetingID, Items: items, Total: len(items)}, nil
}

// RequestConfirmation sends the confirmation message for a meeting, either
// through the task queue or inline.
func (s *Service) RequestConfirmation(ctx context.Context, meetingID int64, req transport.ConfirmationRequest) (transport.ConfirmationRequestResponse, error) {
	m, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return transport.ConfirmationRequestResponse{}, err
	}
	if m.ClientPhone == "" {
		return transport.ConfirmationRequestResponse{}, apperr.Validation("meeting has no client phone")
	}
	if m.ConfirmationState.IsTerminal() {
		return transport.ConfirmationRequestResponse{}, apperr.New(apperr.KindConflict, "meeting confirmation is already settled").
			WithDetails(map[string]string{"confirmationState": string(m.ConfirmationState)})
	}

	delay := time.Duration(req.DelaySeconds) * time.Second
	queued, err := s.requester.Request(ctx, meetingID, delay)
	if err != nil {
		return transport.ConfirmationRequestResponse{}, err
	}

	return transport.ConfirmationRequestResponse{
		MeetingID:    meetingID,
		Queued:       queued,
		DelaySeconds: req.DelaySeconds,
	}, nil
}

// ListWatches returns every active watch in registration order.
func (s *Service) ListWatches() transport.WatchListResponse {
	snapshot := s.watches.Snapshot()
	items := make([]transport.WatchResponse, 0, len(snapshot))
	for _, w := range snapshot {
		items = append(items, transport.WatchResponse{MeetingID: w.MeetingID, Phone: w.Phone})
	}
	return transport.WatchListResponse{Items: items, Count: len(items)}
}

// AddWatch registers a phone for an existing meeting.
func (s *Service) AddWatch(ctx context.Context, req transport.AddWatchRequest) (transport.WatchResponse, error) {
	if _, err := s.meetings.GetByID(ctx, req.MeetingID); err != nil {
		return transport.WatchResponse{}, err
	}

	phone := s.formatter.Format(req.Phone)
	if phone == "" {
		return transport.WatchResponse{}, apperr.Validation("phone has no digits")
	}

	s.watches.Add(phone, req.MeetingID)
	s.log.WithContext(ctx).WithMeeting(req.MeetingID).Info("watch added", "phone", phone)

	return transport.WatchResponse{MeetingID: req.MeetingID, Phone: phone}, nil
}

// RemoveWatch drops the watch for a meeting.
func (s *Service) RemoveWatch(ctx context.Context, meetingID int64) error {
	if !s.watches.Remove(meetingID) {
		return apperr.NotFound("watch not found")
	}
	s.log.WithContext(ctx).WithMeeting(meetingID).Info("watch removed")
	return nil
}

// ClearWatches drops every watch.
func (s *Service) ClearWatches(ctx context.Context) transport.ClearWatchesResponse {
	removed := s.watches.Clear()
	s.log.WithContext(ctx).Info("watches cleared", "removed", removed)
	return transport.ClearWatchesResponse{Removed: removed}
}

func toMeetingResponse(m repository.Meeting) transport.MeetingResponse {
	return transport.MeetingResponse{
		ID:                m.ID,
		Title:             m.Title,
		Guest:             m.Guest,
		StartsAt:          m.StartsAt,
		ClientName:        m.ClientName,
		ClientPhone:       m.ClientPhone,
		Location:          m.Location,
		ConfirmationState: string(m.ConfirmationState),
		UpdatedAt:         m.UpdatedAt,
	}
}
