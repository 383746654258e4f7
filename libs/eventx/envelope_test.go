package eventx

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNew_WirePayloadCarriesEnvelopeFields(t *testing.T) {
	aggID := uuid.NewString()
	env, err := New("projects", "Project", aggID, "projects.created", 1, map[string]any{
		"title": "T1",
	})
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}
	if env.Key != aggID {
		t.Fatalf("expected key to default to aggregate id, got %q", env.Key)
	}

	var doc map[string]any
	if err := json.Unmarshal(env.Payload, &doc); err != nil {
		t.Fatalf("payload not valid json: %v", err)
	}
	if doc["eventId"] != env.EventID {
		t.Fatalf("expected eventId %q, got %v", env.EventID, doc["eventId"])
	}
	if doc["aggregateId"] != aggID {
		t.Fatalf("expected aggregateId %q, got %v", aggID, doc["aggregateId"])
	}
	if doc["eventType"] != "projects.created" {
		t.Fatalf("expected eventType, got %v", doc["eventType"])
	}
	if doc["title"] != "T1" {
		t.Fatalf("expected event field title, got %v", doc["title"])
	}
	if _, ok := doc["occurredOnUtc"]; !ok {
		t.Fatal("expected occurredOnUtc in payload")
	}
}

func TestParse_RoundTrip(t *testing.T) {
	env, err := New("users", "User", uuid.NewString(), "users.updated", 2, map[string]any{
		"email": "a@b.c",
	})
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}

	got := Parse([]byte(env.Key), env.Payload)
	if got.EventID != env.EventID {
		t.Fatalf("event id: expected %q, got %q", env.EventID, got.EventID)
	}
	if got.AggregateID != env.AggregateID {
		t.Fatalf("aggregate id: expected %q, got %q", env.AggregateID, got.AggregateID)
	}
	if got.EventType != "users.updated" || got.AggregateType != "User" || got.Version != 2 {
		t.Fatalf("unexpected envelope fields: %+v", got)
	}
	if !got.OccurredAt.Equal(env.OccurredAt) {
		t.Fatalf("occurred at: expected %s, got %s", env.OccurredAt, got.OccurredAt)
	}
	if got.ParseErr != nil {
		t.Fatalf("unexpected parse error: %v", got.ParseErr)
	}
}

func TestParse_MissingFieldsGetDefaults(t *testing.T) {
	got := Parse([]byte("some-key"), []byte(`{"unknown":"stuff"}`))
	if got.EventID != "" || got.AggregateType != "" || got.EventType != "" || got.Version != 0 {
		t.Fatalf("expected zero defaults, got %+v", got)
	}
	if got.ParseErr != nil {
		t.Fatalf("valid json must not set ParseErr: %v", got.ParseErr)
	}
	if !got.OccurredAt.IsZero() {
		t.Fatalf("expected zero occurred at, got %s", got.OccurredAt)
	}
}

func TestParse_InvalidEventIDIgnored(t *testing.T) {
	got := Parse(nil, []byte(`{"eventId":"not-a-uuid"}`))
	if got.EventID != "" {
		t.Fatalf("expected invalid event id to be dropped, got %q", got.EventID)
	}
}

func TestParse_MalformedJSONKeepsValueAndSetsParseErr(t *testing.T) {
	aggID := uuid.NewString()
	got := Parse([]byte(aggID), []byte(`{"broken`))
	if got.ParseErr == nil {
		t.Fatal("expected ParseErr for malformed json")
	}
	if string(got.Payload) != "{\"broken" {
		t.Fatalf("expected raw value preserved, got %q", got.Payload)
	}
	if got.AggregateID != aggID {
		t.Fatalf("expected aggregate id recovered from key, got %q", got.AggregateID)
	}
}

func TestParse_NullValueIsTombstone(t *testing.T) {
	aggID := uuid.NewString()
	got := Parse([]byte(aggID), nil)
	if !got.IsTombstone {
		t.Fatal("expected tombstone for null value")
	}
	if got.AggregateID != aggID {
		t.Fatalf("expected aggregate id from key, got %q", got.AggregateID)
	}
	if got.Payload != nil {
		t.Fatalf("expected nil payload, got %q", got.Payload)
	}
}

func TestParse_NullValueWithFanOutKey(t *testing.T) {
	aggID := uuid.NewString()
	key := FanOutKey(aggID, "member", uuid.NewString())
	got := Parse([]byte(key), nil)
	if got.AggregateID != aggID {
		t.Fatalf("expected aggregate id %q from fan-out key, got %q", aggID, got.AggregateID)
	}
}

func TestDeletion_SignalUnion(t *testing.T) {
	cases := []struct {
		name string
		env  Envelope
		want bool
	}{
		{"tombstone flag", Envelope{IsTombstone: true, EventType: "projects.updated"}, true},
		{"deleted suffix", Envelope{EventType: "users.deleted"}, true},
		{"removed suffix", Envelope{EventType: "projects.removed"}, true},
		{"plain update", Envelope{EventType: "projects.updated"}, false},
	}
	for _, tc := range cases {
		if got := tc.env.Deletion(); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestDeletion_TombstonePrecedesStalePayload(t *testing.T) {
	// A tombstone with a stale non-null payload must still read as deletion.
	aggID := uuid.NewString()
	value := []byte(`{"eventId":"` + uuid.NewString() + `","aggregateId":"` + aggID + `","eventType":"projects.updated","isTombstone":true,"title":"stale"}`)
	got := Parse([]byte(aggID), value)
	if !got.Deletion() {
		t.Fatal("expected deletion despite stale payload fields")
	}
}

func TestAggregateIDFromKey(t *testing.T) {
	aggID := uuid.NewString()
	if got := AggregateIDFromKey(aggID); got != aggID {
		t.Fatalf("plain uuid key: got %q", got)
	}
	if got := AggregateIDFromKey(FanOutKey(aggID, "member", uuid.NewString())); got != aggID {
		t.Fatalf("fan-out key: got %q", got)
	}
	if got := AggregateIDFromKey("garbage"); got != "" {
		t.Fatalf("garbage key: expected empty, got %q", got)
	}
}

func TestNewTombstone(t *testing.T) {
	aggID := uuid.NewString()
	env, err := NewTombstone("users", "User", aggID, "users.deleted", 1)
	if err != nil {
		t.Fatalf("new tombstone: %v", err)
	}
	if !env.IsTombstone {
		t.Fatal("expected IsTombstone set")
	}
	if !strings.Contains(string(env.Payload), `"isTombstone":true`) {
		t.Fatalf("expected structured deletion marker, got %s", env.Payload)
	}
}
