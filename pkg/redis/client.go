// Package redis is the go-redis/v9 connection behind the translation cache.
// Every key is written under the "bb:" namespace so a shared instance can be
// purged by prefix.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/config"
	"github.com/redis/go-redis/v9"
)

const namespace = "bb:"

// purgeBatch is how many keys one SCAN page returns and one UNLINK removes.
const purgeBatch = 256

type Client struct {
	rdb *redis.Client
}

// NewClient dials cfg.Addr and fails unless the server answers a PING
// within five seconds.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// Lookup returns the value at key. A missing key is reported as ok=false
// with a nil error.
func (c *Client) Lookup(ctx context.Context, key string) (val string, ok bool, err error) {
	val, err = c.rdb.Get(ctx, namespace+key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return val, true, nil
}

// Store writes val at key. A zero ttl keeps the key forever.
func (c *Client) Store(ctx context.Context, key, val string, ttl time.Duration) error {
	return c.rdb.Set(ctx, namespace+key, val, ttl).Err()
}

// Purge unlinks every key starting with prefix and returns how many went.
func (c *Client) Purge(ctx context.Context, prefix string) (int64, error) {
	var removed int64
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, namespace+prefix+"*", purgeBatch).Result()
		if err != nil {
			return removed, fmt.Errorf("scanning %s*: %w", prefix, err)
		}
		if len(keys) > 0 {
			n, err := c.rdb.Unlink(ctx, keys...).Result()
			removed += n
			if err != nil {
				return removed, fmt.Errorf("unlinking %s*: %w", prefix, err)
			}
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

func (c *Client) Close() error { return c.rdb.Close() }

func (c *Client) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }
