package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	err    error
	block  chan struct{}
}

func (p *recordingPublisher) Publish(ctx context.Context, event kafka.Event) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) published() []kafka.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kafka.Event(nil), p.events...)
}

func TestCollectorPublishesOnClose(t *testing.T) {
	pub := &recordingPublisher{}
	m := metrics.NewUnregistered()
	c := NewCollector(pub, 10, m)
	c.Start(context.Background())

	c.TrackSearch(NewSearchEvent(ChannelHTTP, "jain", "जैन", "fallback", true, 2, 2, 0))
	c.TrackSearch(NewSearchEvent(ChannelHTTP, "xyz", "xyz", "identity", false, 0, 0, 0))
	c.Close()
	c.Close()
	c.TrackSearch(NewSearchEvent(ChannelHTTP, "late", "late", "identity", false, 0, 0, 0))

	got := pub.published()
	if assert.Len(t, got, 2) {
		assert.Equal(t, "http", got[0].Key)
		assert.Equal(t, "search", got[0].Type)
		assert.Equal(t, "zero_result", got[1].Type)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnalyticsEventsTotal.WithLabelValues("published")))
}

func TestCollectorDropsWhenFull(t *testing.T) {
	pub := &recordingPublisher{block: make(chan struct{})}
	m := metrics.NewUnregistered()
	c := NewCollector(pub, 1, m)

	c.TrackSearch(SearchEvent{Query: "a"})
	c.TrackSearch(SearchEvent{Query: "b"})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalyticsEventsTotal.WithLabelValues("dropped")))

	close(pub.block)
	c.Start(context.Background())
	c.Close()
	assert.Len(t, pub.published(), 1)
}

func TestCollectorCountsFailures(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	m := metrics.NewUnregistered()
	c := NewCollector(pub, 4, m)
	c.Start(context.Background())
	c.TrackSearch(SearchEvent{Query: "a"})
	c.Close()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalyticsEventsTotal.WithLabelValues("failed")))
}
