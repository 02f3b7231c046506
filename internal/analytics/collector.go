package analytics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/metrics"
)

// Publisher is the subset of kafka.Producer the collectors need.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Collector forwards events to Kafka one at a time from a buffered channel.
// A full buffer drops the event rather than stall the request.
type Collector struct {
	producer Publisher
	metrics  *metrics.Metrics
	eventCh  chan SearchEvent
	logger   *slog.Logger
	done     chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewCollector(producer Publisher, bufferSize int, m *metrics.Metrics) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		metrics:  m,
		eventCh:  make(chan SearchEvent, bufferSize),
		logger:   slog.Default().With("component", "analytics-collector"),
		done:     make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

func (c *Collector) TrackSearch(event SearchEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- event:
		c.count("queued")
	default:
		c.count("dropped")
		c.logger.Warn("analytics event dropped (buffer full)", "query", event.Query)
	}
}

// Close stops accepting events and waits for the buffer to be published.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.eventCh)
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) publish(ctx context.Context, event SearchEvent) {
	err := c.producer.Publish(ctx, kafka.Event{
		Key:   string(event.Channel),
		Type:  string(event.Type),
		Value: event,
	})
	if err != nil {
		c.count("failed")
		c.logger.Error("failed to publish analytics event", "error", err)
		return
	}
	c.count("published")
}

func (c *Collector) drainRemaining() {
	ctx := context.Background()
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(ctx, event)
		default:
			return
		}
	}
}

func (c *Collector) count(status string) {
	if c.metrics != nil {
		c.metrics.AnalyticsEventsTotal.WithLabelValues(status).Inc()
	}
}
