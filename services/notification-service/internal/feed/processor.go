// Package feed turns every consumed event into one notification row. The
// projection is append-only and keyed by event id, so redeliveries and
// processor retries insert nothing new.
package feed

import (
	"context"
	"strings"

	"github.com/avasilev/freelancedesk/libs/inbox"
	"github.com/jackc/pgx/v5"
)

var ownedPrefixes = []string{"projects.", "users.", "tasks."}

type Processor struct {
	store *Store
}

func NewProcessor(store *Store) *Processor {
	return &Processor{store: store}
}

func (*Processor) AggregateType() string { return "*" }

func (*Processor) Owns(eventType string) bool {
	for _, prefix := range ownedPrefixes {
		if strings.HasPrefix(eventType, prefix) {
			return true
		}
	}
	return false
}

func (p *Processor) Apply(ctx context.Context, tx pgx.Tx, rec inbox.Record) error {
	return p.store.Insert(ctx, tx, Notification{
		EventID:       rec.EventID,
		AggregateType: rec.AggregateType,
		AggregateID:   rec.AggregateID,
		EventType:     rec.EventType,
		Title:         titleFor(rec.EventType),
		Body:          bodyFor(rec),
		OccurredAt:    rec.OccurredAt,
	})
}

// titleFor renders "projects.created" as "Project created".
func titleFor(eventType string) string {
	family, action, ok := strings.Cut(eventType, ".")
	if !ok || family == "" || action == "" {
		return eventType
	}
	noun := strings.TrimSuffix(family, "s")
	if noun == "" {
		return eventType
	}
	return strings.ToUpper(noun[:1]) + noun[1:] + " " + action
}

// bodyFor renders a one-line description naming the aggregate,
// e.g. "Project 3f2a91c7 was created".
func bodyFor(rec inbox.Record) string {
	family, action, ok := strings.Cut(rec.EventType, ".")
	noun := strings.TrimSuffix(family, "s")
	if !ok || noun == "" || action == "" {
		return titleFor(rec.EventType)
	}
	subject := strings.ToUpper(noun[:1]) + noun[1:]
	if id := shortID(rec.AggregateID); id != "" {
		subject += " " + id
	}
	return subject + " was " + action
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
