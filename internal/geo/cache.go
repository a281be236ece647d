package geo

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores resolved geolocation records keyed by raw IP string. Values
// are idempotent per IP, so last-writer-wins semantics are acceptable.
type Cache interface {
	Get(ctx context.Context, ip string) (Record, bool)
	Set(ctx context.Context, ip string, rec Record)
}

// MemoryCache is a process-lifetime in-memory cache. Unbounded: the universe
// of distinct IPs per session is small.
type MemoryCache struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{records: make(map[string]Record)}
}

func (c *MemoryCache) Get(_ context.Context, ip string) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[ip]
	return rec, ok
}

func (c *MemoryCache) Set(_ context.Context, ip string, rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[ip] = rec
}

// Len returns the number of cached IPs.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

const (
	redisKeyPrefix = "geoip:"
	redisTTL       = 24 * time.Hour
)

// RedisCache shares resolved records across processes through Redis.
// All Redis failures degrade to cache misses; a broken cache never breaks
// a lookup.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an existing Redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, ip string) (Record, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+ip).Result()
	if err != nil {
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return Record{}, false
	}
	return rec, true
}

func (c *RedisCache) Set(ctx context.Context, ip string, rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	c.client.Set(ctx, redisKeyPrefix+ip, string(data), redisTTL)
}
