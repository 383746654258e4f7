package projects

import (
	"context"
	"errors"
	"time"

	"github.com/avasilev/freelancedesk/libs/db"
	"github.com/avasilev/freelancedesk/libs/outbox"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Project struct {
	ID        string
	Title     string
	OwnerID   string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Member struct {
	ProjectID string
	UserID    string
	Role      string
}

// Repository owns the projects tables. Every mutation appends its event to
// the outbox in the same transaction as the state change.
type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

func (r *Repository) Create(ctx context.Context, p Project) (Project, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = "active"
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Project{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO projects (id, title, owner_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, p.ID, p.Title, p.OwnerID, p.Status).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Project{}, err
	}

	env, err := CreatedEvent(p)
	if err != nil {
		return Project{}, err
	}
	if err := r.outbox.Append(ctx, tx, env); err != nil {
		return Project{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Project{}, err
	}
	return p, nil
}

func (r *Repository) Update(ctx context.Context, id, title, status string) (Project, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Project{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var p Project
	err = tx.QueryRow(ctx, `
		SELECT id::text, title, owner_id::text, status, created_at, updated_at
		FROM projects
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&p.ID, &p.Title, &p.OwnerID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, false, nil
		}
		return Project{}, false, err
	}

	if title != "" {
		p.Title = title
	}
	if status != "" {
		p.Status = status
	}
	if _, err := tx.Exec(ctx, `
		UPDATE projects SET title = $2, status = $3, updated_at = now()
		WHERE id = $1
	`, p.ID, p.Title, p.Status); err != nil {
		return Project{}, false, err
	}

	env, err := UpdatedEvent(p)
	if err != nil {
		return Project{}, false, err
	}
	if err := r.outbox.Append(ctx, tx, env); err != nil {
		return Project{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Project{}, false, err
	}
	return p, true, nil
}

func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
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

func (r *Repository) AddMember(ctx context.Context, m Member) error {
	if m.Role == "" {
		m.Role = "member"
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO project_members (project_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, user_id)
		DO UPDATE SET role = EXCLUDED.role
	`, m.ProjectID, m.UserID, m.Role); err != nil {
		return err
	}

	env, err := MemberAddedEvent(m)
	if err != nil {
		return err
	}
	if err := r.outbox.Append(ctx, tx, env); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) RemoveMember(ctx context.Context, projectID, userID string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		DELETE FROM project_members WHERE project_id = $1 AND user_id = $2
	`, projectID, userID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	env, err := MemberRemovedEvent(projectID, userID)
	if err != nil {
		return false, err
	}
	if err := r.outbox.Append(ctx, tx, env); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id string) (Project, bool, error) {
	var p Project
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, title, owner_id::text, status, created_at, updated_at
		FROM projects
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Title, &p.OwnerID, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, false, nil
		}
		return Project{}, false, err
	}
	return p, true, nil
}
