package kafkax

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestExtractEventMeta_FromHeaders(t *testing.T) {
	msg := kafka.Message{
		Topic: "projects",
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte("e-1")},
			{Key: HeaderEventType, Value: []byte("projects.created")},
			{Key: HeaderAggregateID, Value: []byte("a-1")},
		},
	}
	meta := ExtractEventMeta(msg)
	if meta.EventID != "e-1" || meta.EventType != "projects.created" || meta.AggregateID != "a-1" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestExtractEventMeta_EventTypeFallsBackToTopic(t *testing.T) {
	meta := ExtractEventMeta(kafka.Message{Topic: "users"})
	if meta.EventType != "users" {
		t.Fatalf("expected topic fallback, got %q", meta.EventType)
	}
	if meta.EventID != "" {
		t.Fatalf("expected empty event id, got %q", meta.EventID)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %v", got)
	}
}
