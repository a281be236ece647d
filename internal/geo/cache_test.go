package geo

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	_, ok := cache.Get(ctx, "8.8.8.8")
	assert.False(t, ok)

	rec := Record{IP: "8.8.8.8", Country: "United States", City: "Mountain View"}
	cache.Set(ctx, "8.8.8.8", rec)

	got, ok := cache.Get(ctx, "8.8.8.8")
	require.True(t, ok)
	assert.Equal(t, rec, got)
	assert.Equal(t, 1, cache.Len())
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCache(client)
	ctx := context.Background()

	rec := Record{
		IP:        "203.0.113.195",
		Country:   "Germany",
		City:      "Berlin",
		Latitude:  52.52,
		Longitude: 13.405,
		ISP:       "Example VPN",
		IsVPN:     true,
	}
	cache.Set(ctx, rec.IP, rec)

	got, ok := cache.Get(ctx, rec.IP)
	require.True(t, ok)
	assert.Equal(t, rec, got)

	// Entries expire eventually.
	assert.Positive(t, mr.TTL(redisKeyPrefix+rec.IP))
}

func TestRedisCacheMissAndCorruption(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCache(client)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "198.51.100.78")
	assert.False(t, ok)

	mr.Set(redisKeyPrefix+"198.51.100.78", "{not json")
	_, ok = cache.Get(ctx, "198.51.100.78")
	assert.False(t, ok, "corrupted entries degrade to misses")
}

func TestRedisCacheDownDegradesToMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCache(client)
	mr.Close()

	_, ok := cache.Get(context.Background(), "8.8.8.8")
	assert.False(t, ok)
	// Set must not panic either.
	cache.Set(context.Background(), "8.8.8.8", Unknown("8.8.8.8"))
}
