// Package redis wraps go-redis/v9 for the search result cache. Cached
// results are grouped under per-artifact key prefixes, so the results of
// one index can be dropped without touching those of another.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/config"
)

// scanBatch is the SCAN COUNT hint and the most keys removed per UNLINK.
const scanBatch = 100

type Client struct {
	rdb *redis.Client
}

// NewClient creates a Redis client and verifies the connection with a PING.
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
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// Get returns the value stored at key. A missing key yields an error for
// which IsNilError reports true.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	return c.rdb.Get(ctx, key).Bytes()
}

func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// DeletePrefix removes every key starting with prefix and returns how many
// were removed.
func (c *Client) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	return c.deleteUnder(ctx, prefix, "")
}

// DeletePrefixExcept removes the keys starting with prefix that do not
// start with keep.
func (c *Client) DeletePrefixExcept(ctx context.Context, prefix, keep string) (int64, error) {
	return c.deleteUnder(ctx, prefix, keep)
}

func (c *Client) deleteUnder(ctx context.Context, prefix, keep string) (int64, error) {
	var deleted int64
	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.rdb.Unlink(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("unlinking %d keys under %q: %w", len(batch), prefix, err)
		}
		deleted += n
		batch = batch[:0]
		return nil
	}

	iter := c.rdb.Scan(ctx, 0, MatchPrefix(prefix), scanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if !outside(key, keep) {
			continue
		}
		batch = append(batch, key)
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scanning keys under %q: %w", prefix, err)
	}
	return deleted, flush()
}

// outside reports whether key is not under keep. An empty keep holds no
// keys.
func outside(key, keep string) bool {
	return keep == "" || !strings.HasPrefix(key, keep)
}

// MatchPrefix returns the SCAN MATCH pattern for keys starting with
// prefix, with glob metacharacters in prefix escaped.
func MatchPrefix(prefix string) string {
	var b strings.Builder
	b.Grow(len(prefix) + 1)
	for _, r := range prefix {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('*')
	return b.String()
}

// IsNilError reports whether err is a Redis nil (key-not-found) error.
func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
