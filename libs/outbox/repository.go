// Package outbox implements the transactional outbox: events are staged in
// the producing service's database inside the same transaction as the state
// change that raised them, then drained to Kafka by a background publisher.
package outbox

import (
	"context"
	"time"

	"github.com/avasilev/freelancedesk/libs/db"
	"github.com/avasilev/freelancedesk/libs/eventx"
	otelx "github.com/avasilev/freelancedesk/libs/otel"
	"github.com/jackc/pgx/v5"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record is one staged event. Rows are never deleted; the processed flag and
// retry columns form the audit trail of every publish attempt.
type Record struct {
	ID            int64
	EventID       string
	AggregateID   string
	AggregateType string
	EventType     string
	Version       int
	Topic         string
	Key           string
	Payload       []byte
	OccurredAt    time.Time
	IsTombstone   bool
	Processed     bool
	ProcessedAt   *time.Time
	RetryCount    int
	LastError     string
	NextAttemptAt time.Time
	Traceparent   string
	Tracestate    string
}

// Append stages an envelope inside the caller's transaction. No network I/O
// happens here: if the surrounding state change rolls back, so does the event.
func (r *Repository) Append(ctx context.Context, tx pgx.Tx, env eventx.Envelope) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, aggregate_id, aggregate_type, event_type, version, topic, key, payload, occurred_at, is_tombstone, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, env.EventID, env.AggregateID, env.AggregateType, env.EventType, env.Version, env.Topic, env.Key, env.Payload, env.OccurredAt, env.IsTombstone, traceparent, tracestate)
	return err
}

// FetchPending claims a batch of unpublished rows that are due for an
// attempt, in occurred-at order. SKIP LOCKED keeps concurrent publishers from
// blocking each other on the same rows.
func (r *Repository) FetchPending(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_id, aggregate_id, aggregate_type, event_type, version, topic, key, payload, occurred_at, is_tombstone, retry_count, last_error, next_attempt_at, traceparent, tracestate
		FROM outbox_events
		WHERE NOT processed AND next_attempt_at <= now()
		ORDER BY occurred_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rcd Record
		if err := rows.Scan(&rcd.ID, &rcd.EventID, &rcd.AggregateID, &rcd.AggregateType, &rcd.EventType, &rcd.Version, &rcd.Topic, &rcd.Key, &rcd.Payload, &rcd.OccurredAt, &rcd.IsTombstone, &rcd.RetryCount, &rcd.LastError, &rcd.NextAttemptAt, &rcd.Traceparent, &rcd.Tracestate); err != nil {
			return nil, err
		}
		records = append(records, rcd)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func (r *Repository) MarkProcessed(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE outbox_events
		SET processed = true, processed_at = now()
		WHERE id = ANY($1)
	`, ids)
	return err
}

func (r *Repository) MarkFailed(ctx context.Context, tx pgx.Tx, id int64, retryCount int, lastError string, nextAttemptAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE outbox_events
		SET retry_count = $2, last_error = $3, next_attempt_at = $4
		WHERE id = $1
	`, id, retryCount, lastError, nextAttemptAt)
	return err
}
