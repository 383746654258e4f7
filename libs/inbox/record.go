// Package inbox implements the idempotent inbox: consumed messages are
// durably recorded and deduplicated by event id before the broker offset is
// committed, then applied to local read models by registered processors, each
// application sharing one transaction with the processed-flag update.
package inbox

import (
	"time"

	"github.com/avasilev/freelancedesk/libs/eventx"
	"github.com/avasilev/freelancedesk/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

// ParseErrorMarker is stored in last_error when a message value was not valid
// JSON. The record is still kept so the poison message stays visible instead
// of being silently dropped.
const ParseErrorMarker = "ParseError"

type Record struct {
	ID            int64
	EventID       string
	AggregateID   string
	AggregateType string
	EventType     string
	Version       int
	Topic         string
	Key           string
	Payload       []byte
	OccurredAt    time.Time
	IsTombstone   bool
	Processed     bool
	ProcessedAt   *time.Time
	RetryCount    int
	LastError     string
	NextAttemptAt time.Time
}

// FromMessage builds the inbox record for a consumed message. Envelope fields
// missing from the value are backfilled from message headers, the key and the
// topic; nothing here fails the message.
func FromMessage(msg kafka.Message) Record {
	env := eventx.Parse(msg.Key, msg.Value)
	meta := kafkax.ExtractEventMeta(msg)

	rec := Record{
		EventID:       env.EventID,
		AggregateID:   env.AggregateID,
		AggregateType: env.AggregateType,
		EventType:     env.EventType,
		Version:       env.Version,
		Topic:         msg.Topic,
		Key:           env.Key,
		Payload:       env.Payload,
		OccurredAt:    env.OccurredAt,
		IsTombstone:   env.IsTombstone,
	}
	if rec.EventID == "" {
		rec.EventID = meta.EventID
	}
	if rec.AggregateID == "" {
		rec.AggregateID = meta.AggregateID
	}
	if rec.EventType == "" {
		rec.EventType = meta.EventType
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = msg.Time.UTC()
	}
	if env.ParseErr != nil {
		rec.LastError = ParseErrorMarker
	}
	return rec
}

// Envelope reconstructs the envelope view of the record for processors.
func (r Record) Envelope() eventx.Envelope {
	return eventx.Envelope{
		EventID:       r.EventID,
		AggregateID:   r.AggregateID,
		AggregateType: r.AggregateType,
		EventType:     r.EventType,
		Version:       r.Version,
		Topic:         r.Topic,
		Key:           r.Key,
		Payload:       r.Payload,
		OccurredAt:    r.OccurredAt,
		IsTombstone:   r.IsTombstone,
	}
}
