package projection

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/avasilev/freelancedesk/libs/inbox"
	"github.com/jackc/pgx/v5"
)

type ProjectRow struct {
	ID      string
	Title   string
	OwnerID string
	Status  string
}

// projectFields mirrors the optional payload fields; pointers double as
// presence bits so absent fields never overwrite known values.
type projectFields struct {
	ProjectID *string `json:"projectId"`
	Title     *string `json:"title"`
	OwnerID   *string `json:"ownerId"`
	Status    *string `json:"status"`
}

func mergeProject(cur ProjectRow, f projectFields) (ProjectRow, bool) {
	dirty := false
	if f.Title != nil && *f.Title != cur.Title {
		cur.Title = *f.Title
		dirty = true
	}
	if f.OwnerID != nil && *f.OwnerID != cur.OwnerID {
		cur.OwnerID = *f.OwnerID
		dirty = true
	}
	if f.Status != nil && *f.Status != cur.Status {
		cur.Status = *f.Status
		dirty = true
	}
	return cur, dirty
}

type ProjectProcessor struct{}

func NewProjectProcessor() *ProjectProcessor { return &ProjectProcessor{} }

func (*ProjectProcessor) AggregateType() string { return "Project" }

func (*ProjectProcessor) Owns(eventType string) bool {
	return strings.HasPrefix(eventType, "projects.")
}

func (p *ProjectProcessor) Apply(ctx context.Context, tx pgx.Tx, rec inbox.Record) error {
	env := rec.Envelope()
	var f projectFields
	if len(rec.Payload) > 0 {
		// Malformed payloads were already flagged at ingest; fields stay nil.
		_ = json.Unmarshal(rec.Payload, &f)
	}

	id := resolveID(env.AggregateID, f.ProjectID, rec.Key)
	if id == "" {
		return errors.New("project event without resolvable aggregate id")
	}

	if env.Deletion() {
		_, err := tx.Exec(ctx, `DELETE FROM project_read_models WHERE id = $1`, id)
		return err
	}

	var cur ProjectRow
	err := tx.QueryRow(ctx, `
		SELECT id, title, owner_id, status
		FROM project_read_models
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&cur.ID, &cur.Title, &cur.OwnerID, &cur.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		next, _ := mergeProject(ProjectRow{ID: id}, f)
		_, err := tx.Exec(ctx, `
			INSERT INTO project_read_models (id, title, owner_id, status)
			VALUES ($1, $2, $3, $4)
		`, next.ID, next.Title, next.OwnerID, next.Status)
		return err
	}
	if err != nil {
		return err
	}

	next, dirty := mergeProject(cur, f)
	if !dirty {
		return nil
	}
	_, err = tx.Exec(ctx, `
		UPDATE project_read_models
		SET title = $2, owner_id = $3, status = $4, updated_at = now()
		WHERE id = $1
	`, next.ID, next.Title, next.OwnerID, next.Status)
	return err
}
