// internal/leaderboard/cache_test.go
package leaderboard

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisCache(t *testing.T, opts ...RedisOption) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, opts...), mr
}

func TestRedisCache_RoundTrip(t *testing.T) {
	cache, mr := newRedisCache(t)
	ctx := context.Background()

	_, err := cache.Load(ctx, TopTraders)
	require.ErrorIs(t, err, ErrCacheMiss)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, cache.Save(ctx, &Snapshot{
		Kind:        TopTraders,
		Data:        json.RawMessage(`[{"address":"0xa1","rank":1}]`),
		LastUpdated: at,
	}))
	assert.True(t, mr.Exists("launchpad:leaderboard:top_traders"))

	snap, err := cache.Load(ctx, TopTraders)
	require.NoError(t, err)
	assert.Equal(t, TopTraders, snap.Kind)
	assert.True(t, at.Equal(snap.LastUpdated))
	assert.JSONEq(t, `[{"address":"0xa1","rank":1}]`, string(snap.Data))

	_, err = cache.Load(ctx, MostActive)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_PrefixAndTTL(t *testing.T) {
	cache, mr := newRedisCache(t, WithPrefix("test:"), WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, cache.Save(ctx, &Snapshot{Kind: MostActive, Data: json.RawMessage(`[]`)}))
	assert.True(t, mr.Exists("test:most_active"))
	assert.Equal(t, time.Minute, mr.TTL("test:most_active"))

	mr.FastForward(2 * time.Minute)
	_, err := cache.Load(ctx, MostActive)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_CorruptValue(t *testing.T) {
	cache, mr := newRedisCache(t)
	require.NoError(t, mr.Set("launchpad:leaderboard:top_traders", "not json"))

	_, err := cache.Load(context.Background(), TopTraders)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Unreachable(t *testing.T) {
	cache, mr := newRedisCache(t)
	mr.Close()

	err := cache.Save(context.Background(), &Snapshot{Kind: TopTraders, Data: json.RawMessage(`[]`)})
	assert.Error(t, err)
}

func TestMemoryCache_CopiesData(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	data := json.RawMessage(`[1]`)
	require.NoError(t, cache.Save(ctx, &Snapshot{Kind: TopTraders, Data: data}))
	data[1] = '9'

	snap, err := cache.Load(ctx, TopTraders)
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(snap.Data))

	snap.Data[1] = '7'
	again, err := cache.Load(ctx, TopTraders)
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(again.Data))

	reads, writes := cache.Stats()
	assert.Equal(t, uint64(2), reads)
	assert.Equal(t, uint64(1), writes)
}
