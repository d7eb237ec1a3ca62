package indicators

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Snapshot is the cached current-value view of both indicators for one
// symbol/timeframe pair.
type Snapshot struct {
	RSI          RSISnapshotJSON `json:"rsi"`
	MACD         MACDSnapshotJSON `json:"macd"`
	CalculatedAt time.Time        `json:"calculated_at"`
	DataPoints   int              `json:"data_points"`
}

// RSISnapshotJSON and MACDSnapshotJSON mirror models.RSISnapshot/MACDSnapshot
// with plain float64 pointers, kept local to avoid indicators importing
// models just for JSON tags.
type RSISnapshotJSON struct {
	Current    *float64 `json:"current,omitempty"`
	Overbought bool     `json:"overbought"`
	Oversold   bool     `json:"oversold"`
}

type MACDSnapshotJSON struct {
	CurrentMACD      *float64 `json:"current_macd,omitempty"`
	CurrentSignal    *float64 `json:"current_signal,omitempty"`
	BullishCrossover bool     `json:"bullish_crossover"`
}

// Cache provides TTL-bounded caching of indicator snapshots, keyed by
// "symbol:timeframe". Grounded on internal/indicators/cache.go
// (IndicatorCache: in-process map + RWMutex + TTL + candle-count
// invalidation), extended with an optional Redis backing so a fleet of
// engine instances can share one cache instead of each warming its own.
// Falls back to the in-process map whenever no Redis client is configured.
type Cache struct {
	mu    sync.RWMutex
	local map[string]Snapshot
	ttl   time.Duration
	redis *redis.Client
}

// NewCache creates an in-process-only cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{local: make(map[string]Snapshot), ttl: ttl}
}

// NewCacheWithRedis creates a cache backed by Redis in addition to the
// in-process map, so a cache hit on another instance is still a hit here.
func NewCacheWithRedis(ttl time.Duration, client *redis.Client) *Cache {
	c := NewCache(ttl)
	c.redis = client
	return c
}

// Get returns a cached snapshot for key if present, not expired, and still
// matches dataPoints (a changed bar count invalidates the entry, the same
// guard the enrichment cache's CandleCount check uses).
func (c *Cache) Get(ctx context.Context, key string, dataPoints int) (Snapshot, bool) {
	c.mu.RLock()
	entry, ok := c.local[key]
	c.mu.RUnlock()

	if ok {
		if time.Since(entry.CalculatedAt) <= c.ttl && entry.DataPoints == dataPoints {
			return entry, true
		}
		return Snapshot{}, false
	}

	if c.redis == nil {
		return Snapshot{}, false
	}
	raw, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return Snapshot{}, false
	}
	var remote Snapshot
	if err := json.Unmarshal([]byte(raw), &remote); err != nil {
		return Snapshot{}, false
	}
	if time.Since(remote.CalculatedAt) > c.ttl || remote.DataPoints != dataPoints {
		return Snapshot{}, false
	}
	return remote, true
}

// Set stores a snapshot for key, stamping CalculatedAt to now.
func (c *Cache) Set(ctx context.Context, key string, snap Snapshot) {
	snap.CalculatedAt = time.Now()

	c.mu.Lock()
	c.local[key] = snap
	c.mu.Unlock()

	if c.redis == nil {
		return
	}
	if raw, err := json.Marshal(snap); err == nil {
		c.redis.Set(ctx, key, raw, c.ttl)
	}
}

// CleanExpired removes expired entries from the in-process map. Redis
// entries expire on their own via the TTL passed to Set.
func (c *Cache) CleanExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.local {
		if now.Sub(entry.CalculatedAt) > c.ttl {
			delete(c.local, key)
		}
	}
}

// Size returns the number of entries in the in-process map.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.local)
}
