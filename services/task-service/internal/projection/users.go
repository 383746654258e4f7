package projection

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/avasilev/freelancedesk/libs/inbox"
	"github.com/jackc/pgx/v5"
)

type UserRow struct {
	ID          string
	DisplayName string
	Email       string
}

type userFields struct {
	UserID      *string `json:"userId"`
	DisplayName *string `json:"displayName"`
	Email       *string `json:"email"`
}

func mergeUser(cur UserRow, f userFields) (UserRow, bool) {
	dirty := false
	if f.DisplayName != nil && *f.DisplayName != cur.DisplayName {
		cur.DisplayName = *f.DisplayName
		dirty = true
	}
	if f.Email != nil && *f.Email != cur.Email {
		cur.Email = *f.Email
		dirty = true
	}
	return cur, dirty
}

type UserProcessor struct{}

func NewUserProcessor() *UserProcessor { return &UserProcessor{} }

func (*UserProcessor) AggregateType() string { return "User" }

func (*UserProcessor) Owns(eventType string) bool {
	return strings.HasPrefix(eventType, "users.")
}

func (p *UserProcessor) Apply(ctx context.Context, tx pgx.Tx, rec inbox.Record) error {
	env := rec.Envelope()
	var f userFields
	if len(rec.Payload) > 0 {
		_ = json.Unmarshal(rec.Payload, &f)
	}

	id := resolveID(env.AggregateID, f.UserID, rec.Key)
	if id == "" {
		return errors.New("user event without resolvable aggregate id")
	}

	if env.Deletion() {
		_, err := tx.Exec(ctx, `DELETE FROM user_read_models WHERE id = $1`, id)
		return err
	}

	var cur UserRow
	err := tx.QueryRow(ctx, `
		SELECT id, display_name, email
		FROM user_read_models
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&cur.ID, &cur.DisplayName, &cur.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		next, _ := mergeUser(UserRow{ID: id}, f)
		_, err := tx.Exec(ctx, `
			INSERT INTO user_read_models (id, display_name, email)
			VALUES ($1, $2, $3)
		`, next.ID, next.DisplayName, next.Email)
		return err
	}
	if err != nil {
		return err
	}

	next, dirty := mergeUser(cur, f)
	if !dirty {
		return nil
	}
	_, err = tx.Exec(ctx, `
		UPDATE user_read_models
		SET display_name = $2, email = $3, updated_at = now()
		WHERE id = $1
	`, next.ID, next.DisplayName, next.Email)
	return err
}
