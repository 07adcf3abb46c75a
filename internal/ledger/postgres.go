package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"agenda_backend/internal/intent"
	"agenda_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	errStorage = "reply ledger unavailable"

	pgForeignKeyViolation = "23503"
)

// PostgresStore keeps replies in client_responses and states in meetings.
type PostgresStore struct {
	pool   *pgxpool.Pool
	window time.Duration
}

// NewPostgresStore creates a store that deduplicates within window.
func NewPostgresStore(pool *pgxpool.Pool, window time.Duration) *PostgresStore {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &PostgresStore{pool: pool, window: window}
}

// RecordReply serializes concurrent inserts of the same (meeting, text) with
// a transaction-scoped advisory lock, then reuses or inserts the row.
func (s *PostgresStore) RecordReply(ctx context.Context, reply Reply) (Recorded, error) {
	const op = "ledger.RecordReply"

	analysis, err := json.Marshal(reply.Analysis)
	if err != nil {
		return Recorded{}, apperr.Internal(fmt.Sprintf("encode reply analysis: %v", err)).WithOp(op)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Recorded{}, apperr.Unavailable(errStorage, err).WithOp(op)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($2::text, $1::bigint))`,
		reply.MeetingID, reply.Text,
	); err != nil {
		return Recorded{}, apperr.Unavailable(errStorage, err).WithOp(op)
	}

	var rec Recorded
	err = tx.QueryRow(ctx,
		`SELECT id, received_at
		 FROM client_responses
		 WHERE meeting_id = $1
		   AND response_text = $2
		   AND received_at > now() - $3::float8 * interval '1 second'
		 ORDER BY received_at DESC
		 LIMIT 1`,
		reply.MeetingID, reply.Text, s.window.Seconds(),
	).Scan(&rec.ID, &rec.ReceivedAt)
	switch {
	case err == nil:
		if err := tx.Commit(ctx); err != nil {
			return Recorded{}, apperr.Unavailable(errStorage, err).WithOp(op)
		}
		return rec, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return Recorded{}, apperr.Unavailable(errStorage, err).WithOp(op)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO client_responses (meeting_id, response_text, status, confidence, analysis_data)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, received_at`,
		reply.MeetingID, reply.Text, string(reply.Status), reply.Confidence, analysis,
	).Scan(&rec.ID, &rec.ReceivedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return Recorded{}, apperr.Wrap(apperr.KindNotFound, "meeting not found", ErrMeetingNotFound).WithOp(op)
		}
		return Recorded{}, apperr.Unavailable(errStorage, err).WithOp(op)
	}
	if err := tx.Commit(ctx); err != nil {
		return Recorded{}, apperr.Unavailable(errStorage, err).WithOp(op)
	}

	rec.Created = true
	return rec, nil
}

// ApplyStatus locks the meeting row and writes the new state. A missing
// meeting is reported as false with no write.
func (s *PostgresStore) ApplyStatus(ctx context.Context, meetingID int64, status intent.Status) (bool, error) {
	const op = "ledger.ApplyStatus"

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, apperr.Unavailable(errStorage, err).WithOp(op)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	err = tx.QueryRow(ctx,
		`SELECT confirmation_state FROM meetings WHERE id = $1 FOR UPDATE`,
		meetingID,
	).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Unavailable(errStorage, err).WithOp(op)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE meetings SET confirmation_state = $2, updated_at = now() WHERE id = $1`,
		meetingID, string(status),
	)
	if err != nil {
		return false, apperr.Unavailable(errStorage, err).WithOp(op)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, apperr.Unavailable(errStorage, err).WithOp(op)
	}

	return tag.RowsAffected() > 0, nil
}

// ListResponses returns the newest replies for a meeting first.
func (s *PostgresStore) ListResponses(ctx context.Context, meetingID int64, limit int) ([]Response, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, meeting_id, response_text, status, confidence, analysis_data, received_at
		 FROM client_responses
		 WHERE meeting_id = $1
		 ORDER BY received_at DESC
		 LIMIT $2`,
		meetingID, limit,
	)
	if err != nil {
		return nil, apperr.Unavailable(errStorage, err).WithOp("ledger.ListResponses")
	}
	defer rows.Close()

	items := make([]Response, 0)
	for rows.Next() {
		var r Response
		var status string
		if err := rows.Scan(&r.ID, &r.MeetingID, &r.Text, &status, &r.Confidence, &r.Analysis, &r.ReceivedAt); err != nil {
			return nil, err
		}
		r.Status = intent.Status(status)
		items = append(items, r)
	}
	return items, rows.Err()
}

var _ Store = (*PostgresStore)(nil)
