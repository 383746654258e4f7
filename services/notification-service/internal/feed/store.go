package feed

import (
	"context"
	"time"

	"github.com/avasilev/freelancedesk/libs/db"
	"github.com/jackc/pgx/v5"
)

type Notification struct {
	ID            int64
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Title         string
	Body          string
	OccurredAt    time.Time
	CreatedAt     time.Time
}

type Store struct {
	pool *db.Pool
}

func NewStore(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

// Insert is idempotent by event id so a retried Apply cannot duplicate a row.
func (s *Store) Insert(ctx context.Context, tx pgx.Tx, n Notification) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO notifications (event_id, aggregate_type, aggregate_id, event_type, title, body, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) WHERE event_id <> '' DO NOTHING
	`, n.EventID, n.AggregateType, n.AggregateID, n.EventType, n.Title, n.Body, n.OccurredAt)
	return err
}

// Recent lists the newest notifications for the dashboard feed.
func (s *Store) Recent(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, title, body, occurred_at, created_at
		FROM notifications
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.EventID, &n.AggregateType, &n.AggregateID, &n.EventType, &n.Title, &n.Body, &n.OccurredAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
