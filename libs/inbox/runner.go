package inbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/avasilev/freelancedesk/libs/db"
	"github.com/avasilev/freelancedesk/libs/retry"
	"github.com/jackc/pgx/v5"
)

// Processor applies events of one aggregate family to local read models.
// Apply runs inside the transaction that also marks the inbox row processed;
// it must be idempotent because the same event can be retried after a crash.
type Processor interface {
	AggregateType() string
	Owns(eventType string) bool
	Apply(ctx context.Context, tx pgx.Tx, rec Record) error
}

// Runner sweeps pending inbox rows and dispatches each to the processor that
// owns its event type. Each row is applied under a savepoint so one failing
// event rolls back its own effects without losing the rest of the batch.
type Runner struct {
	pool        *db.Pool
	repo        *Repository
	logger      *slog.Logger
	processors  []Processor
	interval    time.Duration
	batchSize   int
	backoffBase time.Duration
	backoffMax  time.Duration
}

type RunnerConfig struct {
	Interval    time.Duration
	BatchSize   int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

func NewRunner(pool *db.Pool, repo *Repository, logger *slog.Logger, processors []Processor, cfg RunnerConfig) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
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
	return &Runner{
		pool:        pool,
		repo:        repo,
		logger:      logger,
		processors:  processors,
		interval:    cfg.Interval,
		batchSize:   cfg.BatchSize,
		backoffBase: cfg.BackoffBase,
		backoffMax:  cfg.BackoffMax,
	}
}

func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.sweep(ctx); err != nil {
				r.logger.Error("inbox sweep failed", "err", err)
			}
		}
	}
}

func (r *Runner) sweep(ctx context.Context) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := r.repo.FetchPending(ctx, tx, r.batchSize)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return tx.Commit(ctx)
	}

	for _, rec := range records {
		if err := r.applyOne(ctx, tx, rec); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Runner) applyOne(ctx context.Context, tx pgx.Tx, rec Record) error {
	proc, reason := r.route(rec)
	if proc == nil {
		return r.fail(ctx, tx, rec, reason)
	}

	// Nested Begin on a pgx.Tx opens a savepoint.
	sub, err := tx.Begin(ctx)
	if err != nil {
		return err
	}
	applyErr := proc.Apply(ctx, sub, rec)
	if applyErr == nil {
		applyErr = r.repo.MarkProcessed(ctx, sub, rec.ID)
	}
	if applyErr != nil {
		_ = sub.Rollback(ctx)
		r.logger.Error("event processing failed",
			"err", applyErr,
			"event_id", rec.EventID,
			"event_type", rec.EventType,
			"aggregate_id", rec.AggregateID,
			"retry_count", rec.RetryCount+1,
		)
		return r.fail(ctx, tx, rec, applyErr.Error())
	}
	return sub.Commit(ctx)
}

func (r *Runner) fail(ctx context.Context, tx pgx.Tx, rec Record, reason string) error {
	next := time.Now().UTC().Add(retry.Backoff(r.backoffBase, rec.RetryCount, r.backoffMax))
	return r.repo.MarkFailed(ctx, tx, rec.ID, rec.RetryCount+1, reason, next)
}

// route decides whether a row may be dispatched. Rows flagged at ingest as
// unparseable never reach a processor: applying a zero-field payload would
// materialize an empty projection row and mask the poison as success, so they
// stay failed until someone repairs or resolves them.
func (r *Runner) route(rec Record) (Processor, string) {
	if rec.LastError == ParseErrorMarker {
		return nil, ParseErrorMarker
	}
	for _, p := range r.processors {
		if p.Owns(rec.EventType) {
			return p, ""
		}
	}
	return nil, "no processor registered for " + rec.EventType
}
