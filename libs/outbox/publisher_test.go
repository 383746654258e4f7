package outbox

import (
	"testing"
	"time"

	"github.com/avasilev/freelancedesk/libs/kafkax"
	"github.com/google/uuid"
)

func TestMessageFor_CarriesIdentityInHeaders(t *testing.T) {
	rec := Record{
		EventID:     uuid.NewString(),
		AggregateID: uuid.NewString(),
		EventType:   "projects.created",
		Topic:       "projects",
		Key:         "some-key",
		Payload:     []byte(`{"title":"T1"}`),
		OccurredAt:  time.Now().UTC(),
	}

	msg := messageFor(rec)
	if msg.Topic != "projects" {
		t.Fatalf("expected topic projects, got %q", msg.Topic)
	}
	if string(msg.Key) != "some-key" {
		t.Fatalf("expected key preserved, got %q", msg.Key)
	}
	if string(msg.Value) != `{"title":"T1"}` {
		t.Fatalf("expected payload as value, got %q", msg.Value)
	}
	if got := kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventID); got != rec.EventID {
		t.Fatalf("event_id header: expected %q, got %q", rec.EventID, got)
	}
	if got := kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventType); got != "projects.created" {
		t.Fatalf("event_type header: got %q", got)
	}
	if got := kafkax.HeaderValue(msg.Headers, kafkax.HeaderAggregateID); got != rec.AggregateID {
		t.Fatalf("aggregate_id header: got %q", got)
	}
}

func TestMessageFor_TombstoneRowHasNilValue(t *testing.T) {
	// Deletion rows carry the structured marker payload in the table for the
	// audit trail, but the broker message must be a null-value tombstone.
	rec := Record{
		EventID:     uuid.NewString(),
		AggregateID: uuid.NewString(),
		EventType:   "users.deleted",
		Topic:       "users",
		Key:         uuid.NewString(),
		Payload:     []byte(`{"isTombstone":true}`),
		IsTombstone: true,
	}
	msg := messageFor(rec)
	if msg.Value != nil {
		t.Fatalf("expected nil value for tombstone row, got %q", msg.Value)
	}
	if got := kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventID); got != rec.EventID {
		t.Fatalf("tombstone must keep identity headers, got event_id %q", got)
	}
}

func TestMessageFor_EmptyPayloadIsTombstone(t *testing.T) {
	rec := Record{
		EventID:   uuid.NewString(),
		EventType: "projects.removed",
		Topic:     "projects",
		Key:       uuid.NewString(),
	}
	msg := messageFor(rec)
	if msg.Value != nil {
		t.Fatalf("expected nil value for empty payload, got %q", msg.Value)
	}
}
