package main

import (
	"context"
	"net/http"
	"time"

	"github.com/avasilev/freelancedesk/libs/config"
	"github.com/avasilev/freelancedesk/libs/db"
	"github.com/avasilev/freelancedesk/libs/httpx"
	"github.com/avasilev/freelancedesk/libs/inbox"
	"github.com/avasilev/freelancedesk/libs/kafkax"
	otelx "github.com/avasilev/freelancedesk/libs/otel"
	"github.com/avasilev/freelancedesk/libs/outbox"
	"github.com/avasilev/freelancedesk/libs/redisx"
	"github.com/avasilev/freelancedesk/libs/runtime"
	"github.com/avasilev/freelancedesk/services/task-service/internal/handlers"
	"github.com/avasilev/freelancedesk/services/task-service/internal/projection"
	"github.com/avasilev/freelancedesk/services/task-service/internal/tasks"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "task-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "task-service")

	outboxRepo := outbox.NewRepository(pool)
	taskRepo := tasks.NewRepository(pool, outboxRepo)
	inboxRepo := inbox.NewRepository(pool)

	var lock *redisx.Lock
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
		lock = redisx.NewLock(rdb, service+":outbox-publisher", config.Duration("OUTBOX_LOCK_TTL", 30*time.Second))
	}

	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
		Lock:      lock,
	})
	go publisher.Run(ctx)

	// One consumer loop per subscribed topic; all feed the same inbox table.
	for _, topic := range []string{"projects", "users", "members"} {
		consumer := inbox.NewConsumer(logger, inboxRepo, inbox.ConsumerConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		})
		go consumer.Run(ctx)
	}

	runner := inbox.NewRunner(pool, inboxRepo, logger, []inbox.Processor{
		projection.NewProjectProcessor(),
		projection.NewUserProcessor(),
		projection.NewMemberProcessor(),
	}, inbox.RunnerConfig{
		Interval:  config.Duration("INBOX_SWEEP_EVERY", 2*time.Second),
		BatchSize: config.Int("INBOX_BATCH_SIZE", 50),
	})
	go runner.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handlers.New(taskRepo).Register(mux)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithTimeout(10*time.Second),
		httpx.WithBodyLimit(httpx.DefaultBodyLimit),
	)
	handler = otelhttp.NewHandler(handler, "tasks")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
