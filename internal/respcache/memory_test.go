package respcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depotroute/depotroute/internal/respcache"
)

type routeKey struct {
	Provider string `json:"provider"`
	Leg      int    `json:"leg"`
}

type cachedValue struct {
	TravelTimeSeconds int     `json:"travelTimeSeconds"`
	Density           float64 `json:"density"`
}

func TestMemory_SetAndGet(t *testing.T) {
	cache := respcache.NewMemory(respcache.MemoryConfig{TTL: time.Minute})
	ctx := context.Background()

	stored := cachedValue{TravelTimeSeconds: 870, Density: 1.45}
	require.NoError(t, cache.Set(ctx, "route", routeKey{Provider: "tomtom", Leg: 1}, stored))

	var got cachedValue
	hit, err := cache.Get(ctx, "route", routeKey{Provider: "tomtom", Leg: 1}, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, stored, got)
}

func TestMemory_MissForUnknownKey(t *testing.T) {
	cache := respcache.NewMemory(respcache.MemoryConfig{TTL: time.Minute})

	var got cachedValue
	hit, err := cache.Get(context.Background(), "route", routeKey{Provider: "tomtom", Leg: 99}, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemory_NamespacesAreIndependent(t *testing.T) {
	cache := respcache.NewMemory(respcache.MemoryConfig{TTL: time.Minute})
	ctx := context.Background()

	key := routeKey{Provider: "tomtom", Leg: 1}
	require.NoError(t, cache.Set(ctx, "route", key, cachedValue{TravelTimeSeconds: 870}))

	var got cachedValue
	hit, err := cache.Get(ctx, "geocode", key, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemory_ExpiredEntriesMiss(t *testing.T) {
	cache := respcache.NewMemory(respcache.MemoryConfig{TTL: 10 * time.Millisecond})
	ctx := context.Background()

	key := routeKey{Provider: "here", Leg: 1}
	require.NoError(t, cache.Set(ctx, "route", key, cachedValue{TravelTimeSeconds: 870}))

	time.Sleep(25 * time.Millisecond)

	var got cachedValue
	hit, err := cache.Get(ctx, "route", key, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemory_OverwriteReplacesValue(t *testing.T) {
	cache := respcache.NewMemory(respcache.MemoryConfig{TTL: time.Minute})
	ctx := context.Background()

	key := routeKey{Provider: "tomtom", Leg: 1}
	require.NoError(t, cache.Set(ctx, "route", key, cachedValue{TravelTimeSeconds: 870}))
	require.NoError(t, cache.Set(ctx, "route", key, cachedValue{TravelTimeSeconds: 910}))

	var got cachedValue
	hit, err := cache.Get(ctx, "route", key, &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 910, got.TravelTimeSeconds)
	assert.Equal(t, 1, cache.Len())
}

func TestKey_StableAcrossEquivalentData(t *testing.T) {
	a, err := respcache.Key("route", routeKey{Provider: "tomtom", Leg: 1})
	require.NoError(t, err)
	b, err := respcache.Key("route", routeKey{Provider: "tomtom", Leg: 1})
	require.NoError(t, err)
	c, err := respcache.Key("route", routeKey{Provider: "tomtom", Leg: 2})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "route:")
}

func TestNop(t *testing.T) {
	cache := respcache.Nop{}
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "route", "key", cachedValue{TravelTimeSeconds: 870}))

	var got cachedValue
	hit, err := cache.Get(ctx, "route", "key", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}
