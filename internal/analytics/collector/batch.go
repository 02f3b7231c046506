// Package collector batches search events from live sessions and ships
// them to Kafka in bulk. Live sessions settle far more often than HTTP
// searches, so they go through here instead of analytics.Collector.
package collector

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/metrics"
)

// BatchPublisher is the subset of kafka.Producer used for flushing.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// backlogBatches is how many unpublished batches are kept while Kafka is
// failing; older events beyond that are dropped.
const backlogBatches = 3

// BatchCollector publishes once batchSize events are pending or every
// flushInterval, whichever comes first. All publishing happens on the loop
// started by Start.
type BatchCollector struct {
	pub      BatchPublisher
	metrics  *metrics.Metrics
	size     int
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending []kafka.Event

	full chan struct{}
	done chan struct{}
}

func NewBatchCollector(pub BatchPublisher, batchSize int, flushInterval time.Duration, m *metrics.Metrics) *BatchCollector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &BatchCollector{
		pub:      pub,
		metrics:  m,
		size:     batchSize,
		interval: flushInterval,
		logger:   slog.Default().With("component", "batch-collector"),
		full:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start runs the flush loop until ctx is cancelled, then flushes once more
// with a short grace period.
func (bc *BatchCollector) Start(ctx context.Context) {
	bc.logger.Info("batch collector started", "batch_size", bc.size, "flush_interval", bc.interval)
	go func() {
		defer close(bc.done)
		tick := time.NewTicker(bc.interval)
		defer tick.Stop()
		for {
			select {
			case <-tick.C:
			case <-bc.full:
			case <-ctx.Done():
				grace, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				bc.flush(grace)
				cancel()
				return
			}
			bc.flush(ctx)
		}
	}()
}

// TrackSearch implements analytics.Tracker. Events are keyed by their
// lowercased query so repeats of one query share a partition.
func (bc *BatchCollector) TrackSearch(e analytics.SearchEvent) {
	bc.Track(strings.ToLower(strings.TrimSpace(e.Query)), string(e.Type), e)
}

// Track queues one event and wakes the loop once a batch is ready.
func (bc *BatchCollector) Track(key, typ string, value any) {
	bc.mu.Lock()
	bc.pending = append(bc.pending, kafka.Event{Key: key, Type: typ, Value: value})
	ready := len(bc.pending) >= bc.size
	bc.mu.Unlock()
	bc.count("queued", 1)

	if ready {
		select {
		case bc.full <- struct{}{}:
		default:
		}
	}
}

// Close waits for the loop started by Start to finish its final flush.
func (bc *BatchCollector) Close() {
	<-bc.done
}

func (bc *BatchCollector) BufferLen() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.pending)
}

func (bc *BatchCollector) flush(ctx context.Context) {
	bc.mu.Lock()
	batch := bc.pending
	bc.pending = nil
	bc.mu.Unlock()
	if len(batch) == 0 {
		return
	}

	if err := bc.pub.PublishBatch(ctx, batch); err != nil {
		bc.logger.Error("batch flush failed", "events", len(batch), "error", err)
		bc.count("failed", len(batch))
		bc.requeue(batch)
		return
	}
	bc.count("published", len(batch))
	bc.logger.Debug("batch flushed", "events", len(batch))
}

// requeue puts a failed batch back ahead of anything tracked since, keeping
// the oldest backlogBatches worth of events.
func (bc *BatchCollector) requeue(batch []kafka.Event) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.pending = append(batch, bc.pending...)
	if limit := bc.size * backlogBatches; len(bc.pending) > limit {
		dropped := len(bc.pending) - limit
		bc.pending = bc.pending[:limit]
		bc.count("dropped", dropped)
		bc.logger.Warn("analytics backlog full, events dropped", "dropped", dropped)
	}
}

func (bc *BatchCollector) count(status string, n int) {
	if bc.metrics != nil {
		bc.metrics.AnalyticsEventsTotal.WithLabelValues(status).Add(float64(n))
	}
}
