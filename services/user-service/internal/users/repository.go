package users

import (
	"context"
	"errors"
	"time"

	"github.com/avasilev/freelancedesk/libs/db"
	"github.com/avasilev/freelancedesk/libs/outbox"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type User struct {
	ID          string
	DisplayName string
	Email       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository owns the users table; mutations and their events commit together.
type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

func (r *Repository) Create(ctx context.Context, u User) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return User{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO users (id, display_name, email)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, u.ID, u.DisplayName, u.Email).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, err
	}

	env, err := CreatedEvent(u)
	if err != nil {
		return User{}, err
	}
	if err := r.outbox.Append(ctx, tx, env); err != nil {
		return User{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *Repository) Update(ctx context.Context, id, displayName, email string) (User, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return User{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var u User
	err = tx.QueryRow(ctx, `
		SELECT id::text, display_name, email, created_at, updated_at
		FROM users
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&u.ID, &u.DisplayName, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, false, nil
		}
		return User{}, false, err
	}

	if displayName != "" {
		u.DisplayName = displayName
	}
	if email != "" {
		u.Email = email
	}
	if _, err := tx.Exec(ctx, `
		UPDATE users SET display_name = $2, email = $3, updated_at = now()
		WHERE id = $1
	`, u.ID, u.DisplayName, u.Email); err != nil {
		return User{}, false, err
	}

	env, err := UpdatedEvent(u)
	if err != nil {
		return User{}, false, err
	}
	if err := r.outbox.Append(ctx, tx, env); err != nil {
		return User{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return User{}, false, err
	}
	return u, true, nil
}

func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, tx.Commit(ctx)
	}

	env, err := DeletedEvent(id)
	if err != nil {
		return false, err
	}
	if err := r.outbox.Append(ctx, tx, env); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (r *Repository) Get(ctx context.Context, id string) (User, bool, error) {
	var u User
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, display_name, email, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.DisplayName, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, false, nil
		}
		return User{}, false, err
	}
	return u, true, nil
}
