package feed

import (
	"testing"

	"github.com/avasilev/freelancedesk/libs/inbox"
)

func TestOwns(t *testing.T) {
	p := NewProcessor(nil)
	for _, eventType := range []string{"projects.created", "users.deleted", "tasks.completed"} {
		if !p.Owns(eventType) {
			t.Fatalf("expected to own %q", eventType)
		}
	}
	for _, eventType := range []string{"members.added", "invoices.sent", ""} {
		if p.Owns(eventType) {
			t.Fatalf("must not own %q", eventType)
		}
	}
}

func TestBodyFor(t *testing.T) {
	rec := inbox.Record{
		EventType:   "projects.created",
		AggregateID: "3f2a91c7-aaaa-bbbb-cccc-ddddeeeeffff",
	}
	if got := bodyFor(rec); got != "Project 3f2a91c7 was created" {
		t.Fatalf("bodyFor: got %q", got)
	}

	rec = inbox.Record{EventType: "tasks.completed"}
	if got := bodyFor(rec); got != "Task was completed" {
		t.Fatalf("bodyFor without aggregate id: got %q", got)
	}

	rec = inbox.Record{EventType: "noperiod"}
	if got := bodyFor(rec); got != "noperiod" {
		t.Fatalf("bodyFor for undotted type: got %q", got)
	}
}

func TestTitleFor(t *testing.T) {
	cases := map[string]string{
		"projects.created": "Project created",
		"projects.removed": "Project removed",
		"users.updated":    "User updated",
		"tasks.completed":  "Task completed",
		"noperiod":         "noperiod",
		"":                 "",
		"projects.":        "projects.",
	}
	for in, want := range cases {
		if got := titleFor(in); got != want {
			t.Fatalf("titleFor(%q): expected %q, got %q", in, want, got)
		}
	}
}
