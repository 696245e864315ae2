package payment

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers processed webhook event ids. Processors redeliver events,
// so the same completion can arrive more than once.
type Deduper interface {
	FirstSeen(ctx context.Context, eventID string) (bool, error)
}

type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	return d.rdb.SetNX(ctx, "stripe:event:"+eventID, 1, d.ttl).Result()
}

// NopDeduper treats every event as new. The webhook handling is idempotent on
// its own; the deduper only saves work.
type NopDeduper struct{}

func (NopDeduper) FirstSeen(context.Context, string) (bool, error) { return true, nil }
