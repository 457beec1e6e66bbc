package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	applicationName = "docqad"

	defaultConnectAttempts = 5
	defaultRetryDelay      = time.Second
)

// Config holds database connection configuration
type Config struct {
	URL      string
	MaxConns int32
	MinConns int32

	// ConnectAttempts is how often the first ping is tried before giving up.
	ConnectAttempts int
	// RetryDelay grows linearly with each failed attempt.
	RetryDelay time.Duration
}

// NewPool creates a pgx pool and waits until the server answers a ping.
func NewPool(ctx context.Context, cfg Config, log *zap.Logger) (*pgxpool.Pool, error) {
	if log == nil {
		log = zap.NewNop()
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if _, ok := poolConfig.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := waitForPing(ctx, pool, cfg, log); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("database pool ready",
		zap.String("host", poolConfig.ConnConfig.Host),
		zap.String("database", poolConfig.ConnConfig.Database),
		zap.Int32("max_conns", poolConfig.MaxConns),
	)
	return pool, nil
}

func waitForPing(ctx context.Context, pool *pgxpool.Pool, cfg Config, log *zap.Logger) error {
	attempts := cfg.ConnectAttempts
	if attempts <= 0 {
		attempts = defaultConnectAttempts
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = pool.Ping(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		log.Warn("database not reachable, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to ping database: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * delay):
		}
	}
	return fmt.Errorf("failed to ping database after %d attempts: %w", attempts, err)
}
