// Package aggregator keeps a history of analytics.AggregatedStats in
// PostgreSQL so the analytics service can resume its counters after a
// restart and serve past snapshots.
package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/postgres"
)

// Schema stores the full stats as JSONB next to the headline counters.
const Schema = `
CREATE TABLE IF NOT EXISTS search_analytics_snapshots (
    id             BIGSERIAL PRIMARY KEY,
    total_searches BIGINT NOT NULL DEFAULT 0,
    translated     BIGINT NOT NULL DEFAULT 0,
    zero_results   BIGINT NOT NULL DEFAULT 0,
    data           JSONB NOT NULL,
    captured_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
ALTER TABLE search_analytics_snapshots
    ADD COLUMN IF NOT EXISTS total_searches BIGINT NOT NULL DEFAULT 0,
    ADD COLUMN IF NOT EXISTS translated BIGINT NOT NULL DEFAULT 0,
    ADD COLUMN IF NOT EXISTS zero_results BIGINT NOT NULL DEFAULT 0;
CREATE INDEX IF NOT EXISTS search_analytics_snapshots_captured_at_idx
    ON search_analytics_snapshots (captured_at DESC);
`

// DefaultRetention is how many snapshots are kept.
const DefaultRetention = 2000

type Store struct {
	db        *postgres.Client
	retention int
	logger    *slog.Logger

	// lastTotal is the TotalSearches of the last row written, -1 before any.
	lastTotal atomic.Int64
}

func NewStore(db *postgres.Client) *Store {
	s := &Store{
		db:        db,
		retention: DefaultRetention,
		logger:    slog.Default().With("component", "analytics-store"),
	}
	s.lastTotal.Store(-1)
	return s
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating analytics schema: %w", err)
	}
	return nil
}

// SaveSnapshot writes stats and prunes rows beyond the retention limit. A
// snapshot with the same search total as the previous one is skipped, so an
// idle service does not fill the table.
func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) error {
	if stats.TotalSearches == s.lastTotal.Load() {
		return nil
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO search_analytics_snapshots (total_searches, translated, zero_results, data, captured_at)
			VALUES ($1, $2, $3, $4, $5)`,
			stats.TotalSearches, stats.TranslatedCount, stats.ZeroResultCount, data, time.Now().UTC(),
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			DELETE FROM search_analytics_snapshots
			WHERE id NOT IN (SELECT id FROM search_analytics_snapshots ORDER BY captured_at DESC LIMIT $1)`,
			s.retention,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.lastTotal.Store(stats.TotalSearches)
	s.logger.Info("analytics snapshot saved",
		"total_searches", stats.TotalSearches,
		"translated", stats.TranslatedCount,
		"zero_results", stats.ZeroResultCount,
	)
	return nil
}

// LatestSnapshot returns nil, nil when nothing has been saved yet.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.AggregatedStats, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM search_analytics_snapshots ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("reading latest snapshot: %w", err)
	}
	var stats analytics.AggregatedStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("decoding latest snapshot: %w", err)
	}
	s.lastTotal.Store(stats.TotalSearches)
	return &stats, nil
}

// ListSnapshots returns up to limit snapshots, newest first. Rows that no
// longer decode are skipped.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]analytics.Snapshot, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT data, captured_at FROM search_analytics_snapshots ORDER BY captured_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var out []analytics.Snapshot
	for rows.Next() {
		var (
			data []byte
			at   time.Time
		)
		if err := rows.Scan(&data, &at); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		var stats analytics.AggregatedStats
		if err := json.Unmarshal(data, &stats); err != nil {
			s.logger.Warn("skipping undecodable snapshot", "captured_at", at, "error", err)
			continue
		}
		out = append(out, analytics.Snapshot{CapturedAt: at.UTC(), Stats: stats})
	}
	return out, rows.Err()
}

// StatsSource is satisfied by *analytics.Aggregator.
type StatsSource interface {
	Stats() analytics.AggregatedStats
}

// StartPeriodicSave snapshots src every interval and once more, with a
// five second grace period, when ctx ends.
func (s *Store) StartPeriodicSave(ctx context.Context, src StatsSource, interval time.Duration) {
	s.logger.Info("periodic snapshot started", "interval", interval, "retention", s.retention)
	go func() {
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-tick.C:
				if err := s.SaveSnapshot(ctx, src.Stats()); err != nil {
					s.logger.Error("periodic snapshot failed", "error", err)
				}
			case <-ctx.Done():
				grace, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := s.SaveSnapshot(grace, src.Stats()); err != nil {
					s.logger.Error("final snapshot failed", "error", err)
				}
				cancel()
				return
			}
		}
	}()
}
