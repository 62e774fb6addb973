package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper decides whether a webhook delivery has already been processed.
// The platform redelivers events it considers unacknowledged, so each
// message id is processed at most once within the retention window.
type Deduper interface {
	// Seen marks the event id and reports whether it was already marked.
	Seen(ctx context.Context, eventID string) (bool, error)
}

// RedisDeduper tracks processed event ids in Redis with a TTL, so
// deduplication survives restarts and is shared across instances.
type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisDeduper creates a Redis-backed deduper.
func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func (d *RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	// SET NX returns false when the key already exists.
	ok, err := d.rdb.SetNX(ctx, "event:"+eventID, 1, d.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// MemoryDeduper tracks processed event ids in memory. Used when Redis
// is not configured; dedup state is lost on restart.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

// NewMemoryDeduper creates an in-memory deduper.
func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

func (d *MemoryDeduper) Seen(_ context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()

	// Sweep expired entries so the map stays bounded.
	for id, at := range d.seen {
		if now.Sub(at) > d.ttl {
			delete(d.seen, id)
		}
	}

	if _, ok := d.seen[eventID]; ok {
		return true, nil
	}
	d.seen[eventID] = now
	return false, nil
}
