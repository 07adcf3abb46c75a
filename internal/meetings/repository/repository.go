package repository

import (
	"context"
	"errors"
	"time"

	"agenda_backend/internal/intent"
	"agenda_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	meetingNotFoundMsg = "meeting not found"
	errStorage         = "meeting storage unavailable"
)

// Meeting represents the meeting database model
type Meeting struct {
	ID                int64         `db:"id"`
	Title             string        `db:"title"`
	Guest             string        `db:"guest"`
	StartsAt          time.Time     `db:"starts_at"`
	ClientName        string        `db:"client_name"`
	ClientPhone       string        `db:"client_phone"`
	Location          string        `db:"location"`
	ConfirmationState intent.Status `db:"confirmation_state"`
	CreatedAt         time.Time     `db:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at"`
}

// DeliveryStatus is the outcome of one outbound WhatsApp message.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// WhatsAppLog is one row of the outbound message audit trail.
type WhatsAppLog struct {
	MeetingID int64
	Phone     string
	Message   string
	Status    DeliveryStatus
	Error     *string
}

// Repository provides database operations for meetings
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new meetings repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const meetingColumns = `id, title, guest, starts_at, client_name, client_phone, location,
	confirmation_state, created_at, updated_at`

func scanMeeting(row pgx.Row) (Meeting, error) {
	var m Meeting
	var state string
	err := row.Scan(
		&m.ID, &m.Title, &m.Guest, &m.StartsAt, &m.ClientName, &m.ClientPhone,
		&m.Location, &state, &m.CreatedAt, &m.UpdatedAt,
	)
	m.ConfirmationState = intent.Status(state)
	return m, err
}

// GetByID retrieves a meeting by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (Meeting, error) {
	m, err := scanMeeting(r.pool.QueryRow(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Meeting{}, apperr.NotFound(meetingNotFoundMsg)
	}
	if err != nil {
		return Meeting{}, apperr.Unavailable(errStorage, err).WithOp("meetings.GetByID")
	}
	return m, nil
}

// ListWatchable returns meetings with a contact phone whose confirmation is
// still open and that start within [from, to].
func (r *Repository) ListWatchable(ctx context.Context, from, to time.Time) ([]Meeting, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+meetingColumns+`
		 FROM meetings
		 WHERE confirmation_state IN ('pending', 'unclear')
		   AND client_phone <> ''
		   AND starts_at BETWEEN $1 AND $2
		 ORDER BY starts_at ASC`,
		from, to,
	)
	if err != nil {
		return nil, apperr.Unavailable(errStorage, err).WithOp("meetings.ListWatchable")
	}
	defer rows.Close()

	items := make([]Meeting, 0)
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, apperr.Unavailable(errStorage, err).WithOp("meetings.ListWatchable")
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable(errStorage, err).WithOp("meetings.ListWatchable")
	}
	return items, nil
}

// LogWhatsApp appends an outbound message to the audit trail.
func (r *Repository) LogWhatsApp(ctx context.Context, entry WhatsAppLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO whatsapp_logs (meeting_id, phone, message, status, error)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.MeetingID, entry.Phone, entry.Message, string(entry.Status), entry.Error,
	)
	if err != nil {
		return apperr.Unavailable(errStorage, err).WithOp("meetings.LogWhatsApp")
	}
	return nil
}
