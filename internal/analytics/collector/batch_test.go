package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type batchRecorder struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	fail    bool
}

func (b *batchRecorder) PublishBatch(ctx context.Context, events []kafka.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("broker down")
	}
	b.batches = append(b.batches, events)
	return nil
}

func (b *batchRecorder) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, batch := range b.batches {
		n += len(batch)
	}
	return n
}

var _ analytics.Tracker = (*BatchCollector)(nil)

func TestFlushOnBatchSize(t *testing.T) {
	rec := &batchRecorder{}
	bc := NewBatchCollector(rec, 3, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		bc.Close()
	}()
	bc.Start(ctx)
	for i := 0; i < 3; i++ {
		bc.TrackSearch(analytics.SearchEvent{Query: " Dharma ", Channel: analytics.ChannelLive, Type: analytics.EventSearch})
	}
	deadline := time.Now().Add(time.Second)
	for rec.total() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if rec.total() != 3 {
		t.Fatalf("published %d events, want 3", rec.total())
	}
	rec.mu.Lock()
	got := rec.batches[0][0]
	rec.mu.Unlock()
	if got.Key != "dharma" || got.Type != "search" {
		t.Errorf("event = %+v", got)
	}
}

func TestFinalFlushOnCancel(t *testing.T) {
	rec := &batchRecorder{}
	m := metrics.NewUnregistered()
	bc := NewBatchCollector(rec, 100, time.Hour, m)
	ctx, cancel := context.WithCancel(context.Background())
	bc.Start(ctx)
	bc.Track("k", "search", map[string]string{"q": "jain"})
	bc.Track("k", "search", map[string]string{"q": "dharma"})
	cancel()
	bc.Close()

	if rec.total() != 2 {
		t.Errorf("published %d, want 2", rec.total())
	}
	if bc.BufferLen() != 0 {
		t.Errorf("buffer = %d, want 0", bc.BufferLen())
	}
	if got := testutil.ToFloat64(m.AnalyticsEventsTotal.WithLabelValues("published")); got != 2 {
		t.Errorf("published metric = %v", got)
	}
}

func TestFailedFlushRequeuesAndCaps(t *testing.T) {
	rec := &batchRecorder{fail: true}
	m := metrics.NewUnregistered()
	bc := NewBatchCollector(rec, 2, time.Hour, m)
	for i := 0; i < 7; i++ {
		bc.mu.Lock()
		bc.pending = append(bc.pending, kafka.Event{Key: "k"})
		bc.mu.Unlock()
	}
	bc.flush(context.Background())

	if got := bc.BufferLen(); got != 6 {
		t.Errorf("buffer = %d, want 6 (three batches)", got)
	}
	if got := testutil.ToFloat64(m.AnalyticsEventsTotal.WithLabelValues("dropped")); got != 1 {
		t.Errorf("dropped = %v, want 1", got)
	}
}
