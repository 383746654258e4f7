package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/avasilev/freelancedesk/libs/config"
	"github.com/avasilev/freelancedesk/libs/db"
	"github.com/avasilev/freelancedesk/libs/httpx"
	"github.com/avasilev/freelancedesk/libs/inbox"
	"github.com/avasilev/freelancedesk/libs/kafkax"
	otelx "github.com/avasilev/freelancedesk/libs/otel"
	"github.com/avasilev/freelancedesk/libs/runtime"
	"github.com/avasilev/freelancedesk/services/notification-service/internal/feed"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8084")
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
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")

	inboxRepo := inbox.NewRepository(pool)
	store := feed.NewStore(pool)

	for _, topic := range []string{"projects", "users", "tasks"} {
		consumer := inbox.NewConsumer(logger, inboxRepo, inbox.ConsumerConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		})
		go consumer.Run(ctx)
	}

	runner := inbox.NewRunner(pool, inboxRepo, logger, []inbox.Processor{
		feed.NewProcessor(store),
	}, inbox.RunnerConfig{
		Interval:  config.Duration("INBOX_SWEEP_EVERY", 2*time.Second),
		BatchSize: config.Int("INBOX_BATCH_SIZE", 50),
	})
	go runner.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.HandleFunc("GET /notifications", func(w http.ResponseWriter, r *http.Request) {
		items, err := store.Recent(r.Context(), config.Int("FEED_LIMIT", 50))
		if err != nil {
			http.Error(w, "failed to load notifications", http.StatusInternalServerError)
			return
		}
		out := make([]map[string]any, 0, len(items))
		for _, n := range items {
			out = append(out, map[string]any{
				"id":             n.ID,
				"event_type":     n.EventType,
				"aggregate_type": n.AggregateType,
				"aggregate_id":   n.AggregateID,
				"title":          n.Title,
				"body":           n.Body,
				"occurred_at":    n.OccurredAt,
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"notifications": out})
	})

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithTimeout(10*time.Second),
		httpx.WithBodyLimit(httpx.DefaultBodyLimit),
	)
	handler = otelhttp.NewHandler(handler, "notifications")
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
