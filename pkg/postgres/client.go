// Package postgres opens the lib/pq pool shared by the post store and the
// analytics snapshot store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/resilience"
	"github.com/lib/pq"
)

// startupBackoff covers a database container that is still initialising.
var startupBackoff = resilience.Backoff{Attempts: 5, Base: 500 * time.Millisecond, Cap: 5 * time.Second}

type Client struct {
	DB *sql.DB
}

// New opens a pool sized from cfg and waits until the server answers.
// Bad credentials or a missing database fail without retrying.
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	err = resilience.Retry(ctx, "postgres", startupBackoff, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			if fatalConnectError(err) {
				return resilience.Permanent(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("connected to postgres", "host", cfg.Host, "database", cfg.Database)
	return &Client{DB: db}, nil
}

// fatalConnectError reports errors a later attempt cannot fix: invalid
// authorization (class 28) and an unknown database (3D000).
func fatalConnectError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code.Class() == "28" || pqErr.Code == "3D000"
}

func (c *Client) Close() error { return c.DB.Close() }

func (c *Client) Ping(ctx context.Context) error { return c.DB.PingContext(ctx) }

// InTx runs fn in a transaction, committing when fn returns nil.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
