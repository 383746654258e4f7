package inbox

import (
	"context"
	"time"

	"github.com/avasilev/freelancedesk/libs/db"
	"github.com/jackc/pgx/v5"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert records a consumed message. Returns false when a record with the
// same non-empty event id already exists: the earlier delivery owns the
// effect and the caller should still commit the broker offset. Records with
// an empty event id cannot be deduplicated and are always stored.
func (r *Repository) Insert(ctx context.Context, rec Record) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, aggregate_id, aggregate_type, event_type, version, topic, key, payload, occurred_at, is_tombstone, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (event_id) WHERE event_id <> '' DO NOTHING
	`, rec.EventID, rec.AggregateID, rec.AggregateType, rec.EventType, rec.Version, rec.Topic, rec.Key, rec.Payload, rec.OccurredAt, rec.IsTombstone, rec.LastError)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FetchPending claims unprocessed rows due for an attempt, oldest first.
func (r *Repository) FetchPending(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_id, aggregate_id, aggregate_type, event_type, version, topic, key, payload, occurred_at, is_tombstone, retry_count, last_error, next_attempt_at
		FROM inbox_events
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
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.AggregateID, &rec.AggregateType, &rec.EventType, &rec.Version, &rec.Topic, &rec.Key, &rec.Payload, &rec.OccurredAt, &rec.IsTombstone, &rec.RetryCount, &rec.LastError, &rec.NextAttemptAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// MarkProcessed runs inside the same transaction as the projection mutation;
// that shared commit is the exactly-once-effect boundary.
func (r *Repository) MarkProcessed(ctx context.Context, tx pgx.Tx, id int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE inbox_events
		SET processed = true, processed_at = now()
		WHERE id = $1
	`, id)
	return err
}

func (r *Repository) MarkFailed(ctx context.Context, tx pgx.Tx, id int64, retryCount int, lastError string, nextAttemptAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE inbox_events
		SET retry_count = $2, last_error = $3, next_attempt_at = $4
		WHERE id = $1
	`, id, retryCount, lastError, nextAttemptAt)
	return err
}
