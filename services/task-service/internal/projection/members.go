package projection

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/avasilev/freelancedesk/libs/inbox"
	"github.com/jackc/pgx/v5"
)

type MemberRow struct {
	ProjectID string
	UserID    string
	Role      string
}

type memberFields struct {
	ProjectID *string `json:"projectId"`
	UserID    *string `json:"userId"`
	Role      *string `json:"role"`
}

func mergeMember(cur MemberRow, f memberFields) (MemberRow, bool) {
	dirty := false
	if f.Role != nil && *f.Role != cur.Role {
		cur.Role = *f.Role
		dirty = true
	}
	return cur, dirty
}

type MemberProcessor struct{}

func NewMemberProcessor() *MemberProcessor { return &MemberProcessor{} }

func (*MemberProcessor) AggregateType() string { return "ProjectMember" }

func (*MemberProcessor) Owns(eventType string) bool {
	return strings.HasPrefix(eventType, "members.")
}

func (p *MemberProcessor) Apply(ctx context.Context, tx pgx.Tx, rec inbox.Record) error {
	env := rec.Envelope()
	var f memberFields
	if len(rec.Payload) > 0 {
		_ = json.Unmarshal(rec.Payload, &f)
	}

	keyProjectID, keyUserID := memberIDsFromKey(rec.Key)
	projectID := resolveID(env.AggregateID, f.ProjectID, rec.Key)
	if projectID == "" {
		projectID = keyProjectID
	}
	userID := keyUserID
	if f.UserID != nil && *f.UserID != "" {
		userID = *f.UserID
	}
	if projectID == "" || userID == "" {
		return errors.New("member event without resolvable project/user ids")
	}

	if env.Deletion() {
		_, err := tx.Exec(ctx, `
			DELETE FROM member_read_models WHERE project_id = $1 AND user_id = $2
		`, projectID, userID)
		return err
	}

	var cur MemberRow
	err := tx.QueryRow(ctx, `
		SELECT project_id, user_id, role
		FROM member_read_models
		WHERE project_id = $1 AND user_id = $2
		FOR UPDATE
	`, projectID, userID).Scan(&cur.ProjectID, &cur.UserID, &cur.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		next, _ := mergeMember(MemberRow{ProjectID: projectID, UserID: userID}, f)
		_, err := tx.Exec(ctx, `
			INSERT INTO member_read_models (project_id, user_id, role)
			VALUES ($1, $2, $3)
		`, next.ProjectID, next.UserID, next.Role)
		return err
	}
	if err != nil {
		return err
	}

	next, dirty := mergeMember(cur, f)
	if !dirty {
		return nil
	}
	_, err = tx.Exec(ctx, `
		UPDATE member_read_models
		SET role = $3, updated_at = now()
		WHERE project_id = $1 AND user_id = $2
	`, next.ProjectID, next.UserID, next.Role)
	return err
}
