package inbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/avasilev/freelancedesk/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Consumer reads one topic and records every message into the inbox before
// committing the broker offset. That ordering is what turns broker-level
// at-least-once into loss-free application-level at-least-once: a crash
// between store and commit only causes a redelivery, which dedup absorbs.
type Consumer struct {
	reader *kafka.Reader
	logger *slog.Logger
	repo   *Repository
}

type ConsumerConfig struct {
	Brokers string
	GroupID string
	Topic   string
}

func NewConsumer(logger *slog.Logger, repo *Repository, cfg ConsumerConfig) *Consumer {
	brokers := kafkax.SplitBrokers(cfg.Brokers)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader: reader,
		logger: logger,
		repo:   repo,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
		ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "inbox.consume",
			trace.WithAttributes(
				attribute.String("messaging.system", "kafka"),
				attribute.String("messaging.destination", msg.Topic),
			),
		)

		rec := FromMessage(msg)

		inserted, err := c.repo.Insert(ctxSpan, rec)
		if err != nil {
			// No offset commit: the next fetch redelivers the message.
			c.logger.Error("inbox insert failed", "err", err, "event_id", rec.EventID, "topic", msg.Topic)
			span.RecordError(err)
			span.End()
			continue
		}
		if !inserted {
			c.logger.Info("duplicate event ignored",
				"event_id", rec.EventID,
				"event_type", rec.EventType,
				"topic", msg.Topic,
			)
		}

		if err := c.reader.CommitMessages(ctxSpan, msg); err != nil {
			// Safe to continue: the redelivery will hit the dedup path.
			c.logger.Error("offset commit failed", "err", err, "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
			span.RecordError(err)
		}
		span.End()
	}
}
