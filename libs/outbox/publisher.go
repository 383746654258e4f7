package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/avasilev/freelancedesk/libs/db"
	"github.com/avasilev/freelancedesk/libs/kafkax"
	otelx "github.com/avasilev/freelancedesk/libs/otel"
	"github.com/avasilev/freelancedesk/libs/redisx"
	"github.com/avasilev/freelancedesk/libs/retry"
	"github.com/segmentio/kafka-go"
)

// Publisher drains the outbox to Kafka with at-least-once semantics. Rows
// that fail to publish keep processed=false and are retried with capped
// exponential backoff; rows never leave the table.
type Publisher struct {
	pool        *db.Pool
	repo        *Repository
	logger      *slog.Logger
	brokers     []string
	pollEvery   time.Duration
	batchSize   int
	backoffBase time.Duration
	backoffMax  time.Duration
	lock        *redisx.Lock
}

type PublisherConfig struct {
	Brokers     string
	PollEvery   time.Duration
	BatchSize   int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// Lock, when set, keeps a single publisher replica active per service.
	// Without it replicas may race, which the inbox dedup tolerates.
	Lock *redisx.Lock
}

func NewPublisher(pool *db.Pool, repo *Repository, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	brokers := kafkax.SplitBrokers(cfg.Brokers)
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 5 * time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 10 * time.Minute
	}
	return &Publisher{
		pool:        pool,
		repo:        repo,
		logger:      logger,
		brokers:     brokers,
		pollEvery:   cfg.PollEvery,
		batchSize:   cfg.BatchSize,
		backoffBase: cfg.BackoffBase,
		backoffMax:  cfg.BackoffMax,
		lock:        cfg.Lock,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	if len(p.brokers) == 0 {
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	defer writer.Close()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.tick(ctx, writer); err != nil {
				p.logger.Error("outbox publish failed", "err", err)
			}
		}
	}
}

func (p *Publisher) tick(ctx context.Context, writer *kafka.Writer) error {
	if p.lock != nil {
		ok, err := p.lock.TryAcquire(ctx)
		if err != nil {
			p.logger.Warn("outbox leader lock unavailable, publishing anyway", "err", err)
		} else if !ok {
			return nil
		} else {
			defer func() {
				if err := p.lock.Release(context.WithoutCancel(ctx)); err != nil {
					p.logger.Warn("outbox leader lock release failed", "err", err)
				}
			}()
		}
	}
	return p.publishBatch(ctx, writer)
}

func (p *Publisher) publishBatch(ctx context.Context, writer *kafka.Writer) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := p.repo.FetchPending(ctx, tx, p.batchSize)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return tx.Commit(ctx)
	}

	var published []int64
	now := time.Now().UTC()
	for _, r := range records {
		msgCtx := otelx.ContextWithTraceContext(ctx, r.Traceparent, r.Tracestate)
		msg := messageFor(r)
		msg.Headers = kafkax.InjectTraceHeaders(msgCtx, msg.Headers)

		if err := writer.WriteMessages(ctx, msg); err != nil {
			retryCount := r.RetryCount + 1
			nextAttempt := now.Add(retry.Backoff(p.backoffBase, r.RetryCount, p.backoffMax))
			p.logger.Error("outbox publish attempt failed",
				"err", err,
				"event_id", r.EventID,
				"event_type", r.EventType,
				"aggregate_id", r.AggregateID,
				"retry_count", retryCount,
			)
			if err := p.repo.MarkFailed(ctx, tx, r.ID, retryCount, err.Error(), nextAttempt); err != nil {
				return err
			}
			continue
		}
		published = append(published, r.ID)
	}

	if err := p.repo.MarkProcessed(ctx, tx, published); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// messageFor maps an outbox row to a broker message. Tombstone rows (and rows
// staged without a payload) go out with a null value so log compaction can
// drop the aggregate; identity travels in the headers so consumers can
// deduplicate even without a readable value.
func messageFor(r Record) kafka.Message {
	msg := kafka.Message{
		Topic: r.Topic,
		Key:   []byte(r.Key),
		Headers: []kafka.Header{
			{Key: kafkax.HeaderEventID, Value: []byte(r.EventID)},
			{Key: kafkax.HeaderEventType, Value: []byte(r.EventType)},
			{Key: kafkax.HeaderAggregateID, Value: []byte(r.AggregateID)},
		},
	}
	if !r.IsTombstone && len(r.Payload) > 0 {
		msg.Value = r.Payload
	}
	return msg
}
