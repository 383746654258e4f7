package inbox

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
)

type stubProcessor struct {
	prefix string
}

func (s *stubProcessor) AggregateType() string { return "Stub" }

func (s *stubProcessor) Owns(eventType string) bool {
	return strings.HasPrefix(eventType, s.prefix)
}

func (s *stubProcessor) Apply(context.Context, pgx.Tx, Record) error { return nil }

func TestRoute_DispatchesToOwningProcessor(t *testing.T) {
	projects := &stubProcessor{prefix: "projects."}
	users := &stubProcessor{prefix: "users."}
	r := NewRunner(nil, nil, nil, []Processor{projects, users}, RunnerConfig{})

	proc, reason := r.route(Record{EventType: "users.updated"})
	if proc != users {
		t.Fatalf("expected users processor, got %v (reason %q)", proc, reason)
	}
	if reason != "" {
		t.Fatalf("expected empty reason, got %q", reason)
	}
}

func TestRoute_UnownedEventTypeFails(t *testing.T) {
	r := NewRunner(nil, nil, nil, []Processor{&stubProcessor{prefix: "projects."}}, RunnerConfig{})

	proc, reason := r.route(Record{EventType: "invoices.sent"})
	if proc != nil {
		t.Fatal("expected no processor for unowned event type")
	}
	if !strings.Contains(reason, "invoices.sent") {
		t.Fatalf("reason must name the event type, got %q", reason)
	}
}

func TestRoute_ParseErrorRowNeverDispatched(t *testing.T) {
	// A garbage message is stored with the marker at ingest; applying it
	// would upsert an empty read-model row, so it must stay failed.
	r := NewRunner(nil, nil, nil, []Processor{&stubProcessor{prefix: "projects."}}, RunnerConfig{})

	proc, reason := r.route(Record{
		EventType: "projects.created",
		LastError: ParseErrorMarker,
	})
	if proc != nil {
		t.Fatal("parse-error row must not reach a processor")
	}
	if reason != ParseErrorMarker {
		t.Fatalf("expected %q to stay visible in last_error, got %q", ParseErrorMarker, reason)
	}
}
