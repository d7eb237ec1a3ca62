package indicators

import (
	"context"
	"testing"
	"time"
)

func TestCacheGetSetRoundTrip(t *testing.T) {
	cache := NewCache(time.Minute)
	ctx := context.Background()

	current := 55.0
	snap := Snapshot{RSI: RSISnapshotJSON{Current: &current}, DataPoints: 100}
	cache.Set(ctx, "AAPL:1day", snap)

	got, ok := cache.Get(ctx, "AAPL:1day", 100)
	if !ok {
		t.Fatal("expected a cache hit for a just-set entry with a matching bar count")
	}
	if got.RSI.Current == nil || *got.RSI.Current != current {
		t.Errorf("expected cached RSI current %v, got %+v", current, got.RSI)
	}
}

func TestCacheMissOnBarCountChange(t *testing.T) {
	cache := NewCache(time.Minute)
	ctx := context.Background()

	cache.Set(ctx, "AAPL:1day", Snapshot{DataPoints: 100})

	if _, ok := cache.Get(ctx, "AAPL:1day", 101); ok {
		t.Error("expected a cache miss once the bar count no longer matches")
	}
}

func TestCacheMissOnUnknownKey(t *testing.T) {
	cache := NewCache(time.Minute)
	if _, ok := cache.Get(context.Background(), "MSFT:1day", 100); ok {
		t.Error("expected a cache miss for a key that was never set")
	}
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	cache := NewCache(time.Millisecond)
	ctx := context.Background()

	cache.Set(ctx, "AAPL:1day", Snapshot{DataPoints: 100})
	time.Sleep(5 * time.Millisecond)

	if _, ok := cache.Get(ctx, "AAPL:1day", 100); ok {
		t.Error("expected the entry to have expired after the TTL elapsed")
	}
}

func TestCacheCleanExpiredRemovesStaleEntries(t *testing.T) {
	cache := NewCache(time.Millisecond)
	ctx := context.Background()

	cache.Set(ctx, "AAPL:1day", Snapshot{DataPoints: 100})
	time.Sleep(5 * time.Millisecond)
	cache.CleanExpired()

	if size := cache.Size(); size != 0 {
		t.Errorf("expected CleanExpired to remove the stale entry, cache size is %d", size)
	}
}

func TestCacheSizeTracksEntries(t *testing.T) {
	cache := NewCache(time.Minute)
	ctx := context.Background()

	cache.Set(ctx, "AAPL:1day", Snapshot{DataPoints: 100})
	cache.Set(ctx, "MSFT:1day", Snapshot{DataPoints: 50})

	if size := cache.Size(); size != 2 {
		t.Errorf("expected cache size 2, got %d", size)
	}
}
