package projection

import (
	"testing"

	"github.com/google/uuid"
)

func strp(s string) *string { return &s }

func TestMergeProject_AbsentFieldsKeepKnownValues(t *testing.T) {
	cur := ProjectRow{ID: "p1", Title: "Site relaunch", OwnerID: "u1", Status: "active"}
	next, dirty := mergeProject(cur, projectFields{Status: strp("archived")})
	if !dirty {
		t.Fatal("expected dirty for changed status")
	}
	if next.Title != "Site relaunch" || next.OwnerID != "u1" {
		t.Fatalf("absent fields overwritten: %+v", next)
	}
	if next.Status != "archived" {
		t.Fatalf("status not applied: %+v", next)
	}
}

func TestMergeProject_SameValuesAreClean(t *testing.T) {
	cur := ProjectRow{ID: "p1", Title: "Site relaunch", OwnerID: "u1", Status: "active"}
	next, dirty := mergeProject(cur, projectFields{
		Title:   strp("Site relaunch"),
		OwnerID: strp("u1"),
		Status:  strp("active"),
	})
	if dirty {
		t.Fatalf("redelivered payload must be a no-op, got %+v", next)
	}
}

func TestMergeProject_EmptyStringIsAValue(t *testing.T) {
	cur := ProjectRow{ID: "p1", Title: "Site relaunch"}
	next, dirty := mergeProject(cur, projectFields{Title: strp("")})
	if !dirty || next.Title != "" {
		t.Fatalf("explicit empty string must clear the field: %+v dirty=%v", next, dirty)
	}
}

func TestMergeUser(t *testing.T) {
	cur := UserRow{ID: "u1", DisplayName: "Ada", Email: "ada@example.com"}
	next, dirty := mergeUser(cur, userFields{Email: strp("ada@new.example")})
	if !dirty || next.Email != "ada@new.example" || next.DisplayName != "Ada" {
		t.Fatalf("unexpected merge result: %+v dirty=%v", next, dirty)
	}
	if _, dirty := mergeUser(next, userFields{Email: strp("ada@new.example")}); dirty {
		t.Fatal("second apply must be clean")
	}
}

func TestMergeMember(t *testing.T) {
	cur := MemberRow{ProjectID: "p1", UserID: "u1", Role: "viewer"}
	next, dirty := mergeMember(cur, memberFields{Role: strp("editor")})
	if !dirty || next.Role != "editor" {
		t.Fatalf("unexpected merge result: %+v dirty=%v", next, dirty)
	}
	if _, dirty := mergeMember(next, memberFields{}); dirty {
		t.Fatal("payload without role must be clean")
	}
}

func TestResolveID_Precedence(t *testing.T) {
	keyID := uuid.NewString()
	if got := resolveID("env-id", strp("payload-id"), keyID); got != "env-id" {
		t.Fatalf("envelope id must win, got %q", got)
	}
	if got := resolveID("", strp("payload-id"), keyID); got != "payload-id" {
		t.Fatalf("payload id must beat key, got %q", got)
	}
	if got := resolveID("", nil, keyID); got != keyID {
		t.Fatalf("expected key fallback, got %q", got)
	}
	if got := resolveID("", strp(""), "garbage"); got != "" {
		t.Fatalf("expected empty for unresolvable ids, got %q", got)
	}
}

func TestMemberIDsFromKey(t *testing.T) {
	projectID := uuid.NewString()
	userID := uuid.NewString()
	gotProject, gotUser := memberIDsFromKey(projectID + "-member-" + userID)
	if gotProject != projectID || gotUser != userID {
		t.Fatalf("fan-out key split: got %q / %q", gotProject, gotUser)
	}

	gotProject, gotUser = memberIDsFromKey(projectID)
	if gotProject != projectID || gotUser != "" {
		t.Fatalf("plain key: got %q / %q", gotProject, gotUser)
	}
}
