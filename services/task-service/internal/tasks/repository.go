package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/avasilev/freelancedesk/libs/db"
	"github.com/avasilev/freelancedesk/libs/outbox"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrUnknownProject means the referenced project is absent from the local
// projection: either it never existed or its tombstone already arrived.
var ErrUnknownProject = errors.New("unknown project")

type Task struct {
	ID         string
	ProjectID  string
	Title      string
	AssigneeID string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

func (r *Repository) Create(ctx context.Context, t Task) (Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = "open"
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Task{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var known bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM project_read_models WHERE id = $1)
	`, t.ProjectID).Scan(&known); err != nil {
		return Task{}, err
	}
	if !known {
		return Task{}, ErrUnknownProject
	}

	var assignee any
	if t.AssigneeID != "" {
		assignee = t.AssigneeID
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO tasks (id, project_id, title, assignee_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, t.ID, t.ProjectID, t.Title, assignee, t.Status).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Task{}, err
	}

	env, err := CreatedEvent(t)
	if err != nil {
		return Task{}, err
	}
	if err := r.outbox.Append(ctx, tx, env); err != nil {
		return Task{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (r *Repository) Complete(ctx context.Context, id string) (Task, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Task{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var t Task
	var assignee *string
	err = tx.QueryRow(ctx, `
		SELECT id::text, project_id::text, title, assignee_id::text, status, created_at, updated_at
		FROM tasks
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&t.ID, &t.ProjectID, &t.Title, &assignee, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, false, nil
		}
		return Task{}, false, err
	}
	if assignee != nil {
		t.AssigneeID = *assignee
	}

	if t.Status != "done" {
		t.Status = "done"
		if _, err := tx.Exec(ctx, `
			UPDATE tasks SET status = 'done', updated_at = now() WHERE id = $1
		`, t.ID); err != nil {
			return Task{}, false, err
		}

		env, err := CompletedEvent(t)
		if err != nil {
			return Task{}, false, err
		}
		if err := r.outbox.Append(ctx, tx, env); err != nil {
			return Task{}, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Task{}, false, err
	}
	return t, true, nil
}

func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	env, err := RemovedEvent(id)
	if err != nil {
		return false, err
	}
	if err := r.outbox.Append(ctx, tx, env); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id string) (Task, bool, error) {
	var t Task
	var assignee *string
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, project_id::text, title, assignee_id::text, status, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`, id).Scan(&t.ID, &t.ProjectID, &t.Title, &assignee, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, false, nil
		}
		return Task{}, false, err
	}
	if assignee != nil {
		t.AssigneeID = *assignee
	}
	return t, true, nil
}
