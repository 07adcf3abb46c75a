// Package webhook receives Evolution API deliveries and feeds inbound
// WhatsApp replies to the correlation engine.
package webhook

import (
	"context"
	"encoding/json"

	"agenda_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const errAuditStorage = "webhook audit storage unavailable"

// IncomingLog is one audited delivery.
type IncomingLog struct {
	Event    string
	Instance string
	Sender   string
	Payload  json.RawMessage
}

// Repository stores the raw audit trail of webhook deliveries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new webhook repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LogIncoming stores a delivery and returns its id.
func (r *Repository) LogIncoming(ctx context.Context, entry IncomingLog) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO webhook_incoming_logs (event, instance, sender, payload)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		entry.Event, entry.Instance, entry.Sender, []byte(entry.Payload),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, apperr.Unavailable(errAuditStorage, err).WithOp("webhook.LogIncoming")
	}
	return id, nil
}

// SetOutcome records how a delivery was handled.
func (r *Repository) SetOutcome(ctx context.Context, id uuid.UUID, outcome string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE webhook_incoming_logs SET outcome = $2 WHERE id = $1`, id, outcome)
	if err != nil {
		return apperr.Unavailable(errAuditStorage, err).WithOp("webhook.SetOutcome")
	}
	return nil
}
