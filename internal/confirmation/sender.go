package confirmation

import (
	"context"
	"errors"

	"agenda_backend/internal/events"
	"agenda_backend/internal/meetings/repository"
	"agenda_backend/internal/whatsapp"
	"agenda_backend/platform/apperr"
	"agenda_backend/platform/logger"
)

// MeetingStore loads meetings and records outbound deliveries.
type MeetingStore interface {
	GetByID(ctx context.Context, id int64) (repository.Meeting, error)
	LogWhatsApp(ctx context.Context, entry repository.WhatsAppLog) error
}

// MessageSender delivers a text message to a phone.
type MessageSender interface {
	SendMessage(ctx context.Context, phoneNumber string, message string) error
}

// WatchAdder registers a phone to be correlated with a meeting.
type WatchAdder interface {
	Add(phone string, meetingID int64)
}

// PhoneFormatter turns a stored phone into the canonical digit form.
type PhoneFormatter interface {
	Format(raw string) string
}

// Sender renders and sends the confirmation request for a meeting, and puts
// the meeting under watch once the message left.
type Sender struct {
	meetings  MeetingStore
	client    MessageSender
	watches   WatchAdder
	formatter PhoneFormatter
	template  *Template
	bus       events.Bus
	log       *logger.Logger
}

// NewSender creates a sender. bus may be nil.
func NewSender(meetings MeetingStore, client MessageSender, watches WatchAdder, formatter PhoneFormatter, template *Template, bus events.Bus, log *logger.Logger) *Sender {
	if template == nil {
		template = NewTemplate("")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Sender{
		meetings:  meetings,
		client:    client,
		watches:   watches,
		formatter: formatter,
		template:  template,
		bus:       bus,
		log:       log,
	}
}

// Send delivers the confirmation request for meetingID.
func (s *Sender) Send(ctx context.Context, meetingID int64) error {
	log := s.log.WithContext(ctx).WithMeeting(meetingID)

	m, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return err
	}

	phone := s.formatter.Format(m.ClientPhone)
	if phone == "" {
		return apperr.Validation("meeting has no usable client phone")
	}

	message := s.template.Render(m)
	sendErr := s.client.SendMessage(ctx, phone, message)

	entry := repository.WhatsAppLog{MeetingID: meetingID, Phone: phone, Message: message, Status: repository.DeliverySent}
	if sendErr != nil {
		msg := sendErr.Error()
		entry.Status = repository.DeliveryFailed
		entry.Error = &msg
	}
	if err := s.meetings.LogWhatsApp(ctx, entry); err != nil {
		log.Warn("whatsapp delivery log failed", "error", err)
	}

	if sendErr != nil {
		log.Error("confirmation request failed", "phone", phone, "error", sendErr)
		if errors.Is(sendErr, whatsapp.ErrNotConfigured) {
			return apperr.Unavailable("whatsapp sender not configured", sendErr)
		}
		return apperr.Unavailable("whatsapp send failed", sendErr)
	}

	s.watches.Add(phone, meetingID)
	log.Info("confirmation request sent", "phone", phone)

	if s.bus != nil {
		s.bus.Publish(ctx, events.ConfirmationRequestSent{
			BaseEvent: events.NewBaseEvent(),
			MeetingID: meetingID,
			Phone:     phone,
		})
	}
	return nil
}
