package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"eve-hubarb/internal/engine"
)

// SeenStore implements engine.SeenStore with one string key per route.
// Entries expire after ttl so a route is reported again once forgotten.
type SeenStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSeenStore creates a SeenStore. ttl <= 0 keeps entries forever.
func NewSeenStore(c *Client, prefix string, ttl time.Duration) *SeenStore {
	if prefix == "" {
		prefix = "hubarb"
	}
	return &SeenStore{rdb: c.Underlying(), prefix: prefix, ttl: ttl}
}

func seenKey(prefix string, k engine.RouteKey) string {
	return fmt.Sprintf("%s:seen:%d:%s:%s", prefix, k.TypeID, k.BuyHub, k.SellHub)
}

// Fingerprints implements engine.SeenStore.
func (s *SeenStore) Fingerprints(ctx context.Context, keys []engine.RouteKey) (map[engine.RouteKey]string, error) {
	out := make(map[engine.RouteKey]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = seenKey(s.prefix, k)
	}
	vals, err := s.rdb.MGet(ctx, redisKeys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get seen routes: %w", err)
	}
	for i, v := range vals {
		if fp, ok := v.(string); ok {
			out[keys[i]] = fp
		}
	}
	return out, nil
}

// Remember implements engine.SeenStore.
func (s *SeenStore) Remember(ctx context.Context, entries []engine.SeenEntry) error {
	if len(entries) == 0 {
		return nil
	}
	pipe := s.rdb.TxPipeline()
	for _, e := range entries {
		pipe.Set(ctx, seenKey(s.prefix, e.Key), e.Fingerprint, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: remember %d routes: %w", len(entries), err)
	}
	return nil
}
