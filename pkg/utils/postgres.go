package utils

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// HistoryStoreConfig describes the call-history database. Only finished calls are
// written, so the pool is small.
type HistoryStoreConfig struct {
	Driver string // registered database/sql driver, "pgx" unless a test overrides it
	DSN    string // never logged

	MaxOpenConns    int
	ConnMaxLifetime time.Duration

	// StartupWait bounds how long Open keeps retrying an unreachable server. The
	// daemon often starts together with the database on a workstation.
	StartupWait time.Duration
	PingTimeout time.Duration

	Logger *slog.Logger
}

func (c HistoryStoreConfig) normalized() HistoryStoreConfig {
	if c.Driver == "" {
		c.Driver = "pgx"
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 4
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 30 * time.Minute
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 5 * time.Second
	}
	if c.StartupWait < 0 {
		c.StartupWait = 0
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// OpenHistoryStore opens the database and waits up to StartupWait for the first
// successful ping.
func OpenHistoryStore(ctx context.Context, cfg HistoryStoreConfig) (*sql.DB, error) {
	cfg = cfg.normalized()

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, Ping(ctx, db, cfg.PingTimeout)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(cfg.StartupWait),
		backoff.WithMaxTries(maxTries(cfg.StartupWait)),
		backoff.WithNotify(func(err error, next time.Duration) {
			cfg.Logger.Warn("call history database not ready", "err", err, "retry_in", next)
		}),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// A zero wait means a single attempt.
func maxTries(wait time.Duration) uint {
	if wait == 0 {
		return 1
	}
	return 0
}

// Ping checks the database with its own timeout.
func Ping(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("db ping failed: %w", err)
	}
	return nil
}

// InTx commits when fn succeeds and rolls back otherwise. Panics roll back and propagate.
func InTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
