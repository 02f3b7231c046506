package translate

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "translate:"

// KV is the slice of pkg/redis.Client the cache uses.
type KV interface {
	Lookup(ctx context.Context, key string) (string, bool, error)
	Store(ctx context.Context, key, val string, ttl time.Duration) error
	Purge(ctx context.Context, prefix string) (int64, error)
}

// CachedTranslator remembers successful translations in Redis and collapses
// concurrent lookups of the same text into one remote call. Failures are
// never cached.
type CachedTranslator struct {
	next    Translator
	kv      KV
	ttl     time.Duration
	langs   string
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewCachedTranslator wraps next. source and target are part of the key.
func NewCachedTranslator(next Translator, kv KV, ttl time.Duration, source, target string, m *metrics.Metrics) *CachedTranslator {
	return &CachedTranslator{
		next:    next,
		kv:      kv,
		ttl:     ttl,
		langs:   source + ":" + target,
		metrics: m,
		logger:  slog.Default().With("component", "translate-cache"),
	}
}

func (c *CachedTranslator) Translate(ctx context.Context, text string) (string, error) {
	key := c.buildKey(text)
	if v, ok := c.get(ctx, key); ok {
		return v, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.get(ctx, key); ok {
			return v, nil
		}
		translated, err := c.next.Translate(ctx, text)
		if err != nil {
			return nil, err
		}
		if err := c.kv.Store(ctx, key, translated, c.ttl); err != nil {
			c.logger.Error("cache set failed", "key", key, "error", err)
		}
		return translated, nil
	})
	if err != nil {
		return "", err
	}
	return val.(string), nil
}

// Invalidate removes every cached translation.
func (c *CachedTranslator) Invalidate(ctx context.Context) error {
	deleted, err := c.kv.Purge(ctx, keyPrefix)
	if err != nil {
		return fmt.Errorf("invalidating translate cache: %w", err)
	}
	c.logger.Info("translate cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns hit and miss counts since construction.
func (c *CachedTranslator) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *CachedTranslator) get(ctx context.Context, key string) (string, bool) {
	v, ok, err := c.kv.Lookup(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
	}
	if !ok {
		c.misses.Add(1)
		if c.metrics != nil {
			c.metrics.TranslateCacheMiss.Inc()
		}
		return "", false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.TranslateCacheHits.Inc()
	}
	return v, true
}

func (c *CachedTranslator) buildKey(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	hash := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%s%s:%x", keyPrefix, c.langs, hash[:16])
}
