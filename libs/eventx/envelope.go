// Package eventx defines the envelope that carries domain events between
// services. Producers serialize envelopes into their outbox tables; consumers
// rebuild them defensively from whatever arrives on the wire.
package eventx

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Envelope is one domain event crossing a service boundary.
type Envelope struct {
	EventID       string
	AggregateID   string
	AggregateType string
	EventType     string
	Version       int
	Topic         string
	Key           string
	Payload       json.RawMessage // full wire value; nil means broker-level tombstone
	OccurredAt    time.Time
	IsTombstone   bool
	ParseErr      error // consumer side: set when the wire value was not valid JSON
}

// New builds a producer-side envelope. The wire payload is a single JSON
// document holding the envelope metadata plus the event-specific fields, so
// consumers that only see the message value can still recover the identity.
func New(topic, aggregateType, aggregateID, eventType string, version int, fields map[string]any) (Envelope, error) {
	env := Envelope{
		EventID:       uuid.NewString(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Version:       version,
		Topic:         topic,
		Key:           aggregateID,
		OccurredAt:    time.Now().UTC(),
	}
	doc := map[string]any{
		"eventId":       env.EventID,
		"aggregateId":   env.AggregateID,
		"aggregateType": env.AggregateType,
		"eventType":     env.EventType,
		"version":       env.Version,
		"occurredOnUtc": env.OccurredAt.Format(time.RFC3339Nano),
	}
	for k, v := range fields {
		doc[k] = v
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return Envelope{}, err
	}
	env.Payload = payload
	return env, nil
}

// NewTombstone builds a deletion envelope. The outbox row keeps a structured
// deletion marker so the inbox path can identify the aggregate even though
// the broker message itself is published with a null value.
func NewTombstone(topic, aggregateType, aggregateID, eventType string, version int) (Envelope, error) {
	env, err := New(topic, aggregateType, aggregateID, eventType, version, map[string]any{
		"isTombstone": true,
	})
	if err != nil {
		return Envelope{}, err
	}
	env.IsTombstone = true
	return env, nil
}

// FanOutKey derives a message key for sub-entity events so they land on the
// same partition family as the owning aggregate, e.g. "{projectId}-member-{userId}".
func FanOutKey(aggregateID, sub, subID string) string {
	return aggregateID + "-" + sub + "-" + subID
}

// AggregateIDFromKey recovers the aggregate id from a message key: the key
// itself when it is a uuid, or the uuid prefix of a fan-out key. Returns ""
// when nothing recognizable is present.
func AggregateIDFromKey(key string) string {
	if _, err := uuid.Parse(key); err == nil {
		return key
	}
	if len(key) > 36 {
		prefix := key[:36]
		if _, err := uuid.Parse(prefix); err == nil {
			return prefix
		}
	}
	return ""
}

type wireEnvelope struct {
	EventID       string `json:"eventId"`
	AggregateID   string `json:"aggregateId"`
	AggregateType string `json:"aggregateType"`
	EventType     string `json:"eventType"`
	Version       int    `json:"version"`
	OccurredOnUTC string `json:"occurredOnUtc"`
	IsTombstone   bool   `json:"isTombstone"`
}

// Parse rebuilds an envelope from a consumed message. It never fails: missing
// or invalid fields fall back to zero values, a null value maps to a
// tombstone with the aggregate id recovered from the key, and malformed JSON
// is kept verbatim with ParseErr set so the failure stays visible.
func Parse(key, value []byte) Envelope {
	env := Envelope{Key: string(key)}
	if len(value) == 0 {
		env.IsTombstone = true
		env.AggregateID = AggregateIDFromKey(env.Key)
		return env
	}
	env.Payload = append(json.RawMessage(nil), value...)

	var doc wireEnvelope
	if err := json.Unmarshal(value, &doc); err != nil {
		env.ParseErr = err
		env.AggregateID = AggregateIDFromKey(env.Key)
		return env
	}

	if _, err := uuid.Parse(doc.EventID); err == nil {
		env.EventID = doc.EventID
	}
	env.AggregateID = doc.AggregateID
	if env.AggregateID == "" {
		env.AggregateID = AggregateIDFromKey(env.Key)
	}
	env.AggregateType = doc.AggregateType
	env.EventType = doc.EventType
	env.Version = doc.Version
	env.IsTombstone = doc.IsTombstone
	if ts, err := time.Parse(time.RFC3339Nano, doc.OccurredOnUTC); err == nil {
		env.OccurredAt = ts.UTC()
	}
	return env
}

// Deletion reports whether the event signals deletion of its aggregate.
// Producers are not always consistent, so independent signals are honored:
// the tombstone flag (the explicit payload marker is folded into it by Parse)
// and a deletion-suffixed event type.
func (e Envelope) Deletion() bool {
	if e.IsTombstone {
		return true
	}
	return strings.HasSuffix(e.EventType, ".deleted") || strings.HasSuffix(e.EventType, ".removed")
}
