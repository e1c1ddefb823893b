// internal/leaderboard/cache.go
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a leaderboard was never cached.
var ErrCacheMiss = errors.New("leaderboard not cached")

// Snapshot is a cached leaderboard.
type Snapshot struct {
	Kind        Kind            `json:"cache_type"`
	Data        json.RawMessage `json:"data"`
	LastUpdated time.Time       `json:"last_updated"`
}

// Cache stores leaderboard snapshots by kind.
type Cache interface {
	Load(ctx context.Context, kind Kind) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}

// RedisCache keeps snapshots as JSON strings under prefix+kind.
type RedisCache struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisCache)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(c *RedisCache) { c.prefix = prefix }
}

// WithTTL expires snapshots after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(c *RedisCache) { c.ttl = ttl }
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *backend.Client, opts ...RedisOption) *RedisCache {
	c := &RedisCache{
		client: client,
		prefix: "launchpad:leaderboard:",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) key(kind Kind) string {
	return c.prefix + string(kind)
}

func (c *RedisCache) Load(ctx context.Context, kind Kind) (*Snapshot, error) {
	raw, err := c.client.Get(ctx, c.key(kind)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", kind, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", kind, err)
	}
	return &snap, nil
}

func (c *RedisCache) Save(ctx context.Context, snap *Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode %s snapshot: %w", snap.Kind, err)
	}
	if err := c.client.Set(ctx, c.key(snap.Kind), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", snap.Kind, err)
	}
	return nil
}

// MemoryCache is an in-process Cache for single-instance runs.
type MemoryCache struct {
	mu    sync.RWMutex
	snaps map[Kind]Snapshot

	reads  atomic.Uint64
	writes atomic.Uint64
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{snaps: make(map[Kind]Snapshot)}
}

func (c *MemoryCache) Load(_ context.Context, kind Kind) (*Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.reads.Add(1)
	snap, ok := c.snaps[kind]
	if !ok {
		return nil, ErrCacheMiss
	}
	snap.Data = append(json.RawMessage(nil), snap.Data...)
	return &snap, nil
}

func (c *MemoryCache) Save(_ context.Context, snap *Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := *snap
	cp.Data = append(json.RawMessage(nil), snap.Data...)
	c.snaps[snap.Kind] = cp
	c.writes.Add(1)
	return nil
}

// Stats returns read and write counts.
func (c *MemoryCache) Stats() (reads, writes uint64) {
	return c.reads.Load(), c.writes.Load()
}
