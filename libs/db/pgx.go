// Package db owns the pgx connection pool shared by a service's repositories.
package db

import (
	"context"
	"errors"
	"time"

	"github.com/avasilev/freelancedesk/libs/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Pool struct {
	*pgxpool.Pool
}

// Open connects and pings. Pool sizing is tunable per service; the defaults
// suit these services, where most connections are held briefly by the outbox
// publisher and inbox runner sweeps.
func Open(ctx context.Context, databaseURL string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = int32(config.Int("DB_MAX_CONNS", 8))
	cfg.MinConns = int32(config.Int("DB_MIN_CONNS", 2))
	cfg.MaxConnLifetime = config.Duration("DB_CONN_MAX_LIFETIME", time.Hour)
	cfg.MaxConnIdleTime = config.Duration("DB_CONN_MAX_IDLE", 10*time.Minute)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Pool{Pool: pool}, nil
}

func (p *Pool) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// ReadyCheck reports pool health for /readyz.
func ReadyCheck(pool *Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if pool == nil || pool.Pool == nil {
			return errors.New("db not configured")
		}
		return pool.Ping(ctx)
	}
}
