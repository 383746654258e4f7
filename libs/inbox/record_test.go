package inbox

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

func TestFromMessage_ValueFieldsWin(t *testing.T) {
	eventID := uuid.NewString()
	aggID := uuid.NewString()
	value := []byte(`{"eventId":"` + eventID + `","aggregateId":"` + aggID + `","aggregateType":"Project","eventType":"projects.created","version":1,"occurredOnUtc":"2026-02-01T10:00:00Z","title":"T1"}`)

	rec := FromMessage(kafka.Message{
		Topic: "projects",
		Key:   []byte(aggID),
		Value: value,
	})
	if rec.EventID != eventID {
		t.Fatalf("event id: got %q", rec.EventID)
	}
	if rec.AggregateID != aggID || rec.AggregateType != "Project" {
		t.Fatalf("aggregate fields: %+v", rec)
	}
	if rec.EventType != "projects.created" || rec.Topic != "projects" {
		t.Fatalf("type/topic: %+v", rec)
	}
	if rec.LastError != "" {
		t.Fatalf("expected no error marker, got %q", rec.LastError)
	}
	want := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	if !rec.OccurredAt.Equal(want) {
		t.Fatalf("occurred at: got %s", rec.OccurredAt)
	}
}

func TestFromMessage_HeadersBackfillMissingFields(t *testing.T) {
	eventID := uuid.NewString()
	aggID := uuid.NewString()
	rec := FromMessage(kafka.Message{
		Topic: "projects",
		Key:   []byte("not-a-uuid-key"),
		Value: []byte(`{"title":"T1"}`),
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(eventID)},
			{Key: "event_type", Value: []byte("projects.updated")},
			{Key: "aggregate_id", Value: []byte(aggID)},
		},
	})
	if rec.EventID != eventID {
		t.Fatalf("expected event id from header, got %q", rec.EventID)
	}
	if rec.AggregateID != aggID {
		t.Fatalf("expected aggregate id from header, got %q", rec.AggregateID)
	}
	if rec.EventType != "projects.updated" {
		t.Fatalf("expected event type from header, got %q", rec.EventType)
	}
}

func TestFromMessage_MalformedValueKeepsRecordWithMarker(t *testing.T) {
	msgTime := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := FromMessage(kafka.Message{
		Topic: "users",
		Key:   []byte(uuid.NewString()),
		Value: []byte(`{nope`),
		Time:  msgTime,
	})
	if rec.LastError != ParseErrorMarker {
		t.Fatalf("expected %q marker, got %q", ParseErrorMarker, rec.LastError)
	}
	if string(rec.Payload) != `{nope` {
		t.Fatalf("expected raw payload preserved, got %q", rec.Payload)
	}
	if !rec.OccurredAt.Equal(msgTime) {
		t.Fatalf("expected fallback to message time, got %s", rec.OccurredAt)
	}
}

func TestFromMessage_NullValueIsTombstone(t *testing.T) {
	aggID := uuid.NewString()
	eventID := uuid.NewString()
	rec := FromMessage(kafka.Message{
		Topic: "users",
		Key:   []byte(aggID),
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(eventID)},
			{Key: "event_type", Value: []byte("users.deleted")},
		},
	})
	if !rec.IsTombstone {
		t.Fatal("expected tombstone")
	}
	if rec.AggregateID != aggID {
		t.Fatalf("expected aggregate id from key, got %q", rec.AggregateID)
	}
	if rec.EventID != eventID {
		t.Fatalf("expected event id from header for dedup, got %q", rec.EventID)
	}
	if !rec.Envelope().Deletion() {
		t.Fatal("expected envelope view to read as deletion")
	}
}
