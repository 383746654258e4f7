// Package projection maintains the read models mirrored from other services'
// events. Processors are the only writers of these tables; every Apply runs
// in the transaction that also marks the inbox row processed, and every write
// is an idempotent upsert or delete so retries converge to the same state.
package projection

import (
	"strings"

	"github.com/avasilev/freelancedesk/libs/eventx"
)

// resolveID picks the aggregate id from the strongest available signal:
// envelope metadata, then the type-specific payload field, then the message key.
func resolveID(envelopeID string, payloadID *string, key string) string {
	if envelopeID != "" {
		return envelopeID
	}
	if payloadID != nil && *payloadID != "" {
		return *payloadID
	}
	return eventx.AggregateIDFromKey(key)
}

// memberIDsFromKey splits a "{projectId}-member-{userId}" fan-out key.
func memberIDsFromKey(key string) (projectID, userID string) {
	i := strings.Index(key, "-member-")
	if i < 0 {
		return eventx.AggregateIDFromKey(key), ""
	}
	return key[:i], key[i+len("-member-"):]
}
