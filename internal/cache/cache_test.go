package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Elarafi-trade/pair-agentverse/internal/model"
)

func testEntry(key string, reasoning string) *Entry {
	return &Entry{
		PairKey: key,
		SymbolA: "SOL-PERP",
		SymbolB: "BTC-PERP",
		Metrics: &model.Metrics{
			ZScore: 2.5, Corr: 0.85, Mean: 0.0012, Std: 0.0045, Beta: 1.15, Volatility: 0.023,
		},
		Analysis: &model.Analysis{
			Signal:              model.SignalLong,
			Confidence:          0.78,
			Reasoning:           reasoning,
			RiskLevel:           model.RiskMedium,
			KeyFactors:          []string{"z-score above 2", "strong correlation"},
			EntryRecommendation: "scale in on confirmation",
		},
	}
}

func openTestCache(t *testing.T, ttl time.Duration) *SQLCache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"), ttl)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPairKey(t *testing.T) {
	if got := PairKey("sol-perp", "btc-perp"); got != "SOL-PERP:BTC-PERP" {
		t.Errorf("PairKey = %q, want SOL-PERP:BTC-PERP", got)
	}
	// Order-sensitive: reversed pair is a different key.
	if PairKey("SOL-PERP", "BTC-PERP") == PairKey("BTC-PERP", "SOL-PERP") {
		t.Error("expected reversed pair to produce a different key")
	}
}

func TestFresh(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ttl := 24 * time.Hour

	if !Fresh(base.Add(23*time.Hour), base, ttl) {
		t.Error("entry at t+23h should be fresh with 24h ttl")
	}
	if !Fresh(base.Add(24*time.Hour), base, ttl) {
		t.Error("entry exactly at ttl boundary should be fresh")
	}
	if Fresh(base.Add(25*time.Hour), base, ttl) {
		t.Error("entry at t+25h should be stale with 24h ttl")
	}
}

func TestPutThenGet(t *testing.T) {
	c := openTestCache(t, 24*time.Hour)
	ctx := context.Background()

	key := PairKey("SOL-PERP", "BTC-PERP")
	c.Put(ctx, testEntry(key, "initial reasoning"))

	got, ok := c.Get(ctx, key)
	if !ok {
		t.Fatal("expected cache hit immediately after put")
	}
	if got.Analysis.Reasoning != "initial reasoning" {
		t.Errorf("reasoning = %q, want the payload just written", got.Analysis.Reasoning)
	}
	if got.Analysis.Signal != model.SignalLong {
		t.Errorf("signal = %q, want LONG", got.Analysis.Signal)
	}
	if got.Metrics.ZScore != 2.5 {
		t.Errorf("zScore = %v, want 2.5", got.Metrics.ZScore)
	}
	if len(got.Analysis.KeyFactors) != 2 {
		t.Errorf("key factors = %v, want 2 entries", got.Analysis.KeyFactors)
	}
	if got.ExpiresAt.Sub(got.ComputedAt) != 24*time.Hour {
		t.Errorf("expiry window = %v, want 24h", got.ExpiresAt.Sub(got.ComputedAt))
	}
}

func TestGetMissOnUnknownKey(t *testing.T) {
	c := openTestCache(t, 24*time.Hour)
	if _, ok := c.Get(context.Background(), PairKey("ETH-PERP", "BTC-PERP")); ok {
		t.Error("expected miss for a key never written")
	}
}

func TestExpiry(t *testing.T) {
	c := openTestCache(t, 24*time.Hour)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	key := PairKey("SOL-PERP", "BTC-PERP")
	c.Put(ctx, testEntry(key, "written at t=0"))

	// 23h later: still served.
	c.now = func() time.Time { return base.Add(23 * time.Hour) }
	if got, ok := c.Get(ctx, key); !ok {
		t.Fatal("expected hit at t+23h with 24h ttl")
	} else if got.Analysis.Reasoning != "written at t=0" {
		t.Errorf("reasoning = %q, want the stored payload", got.Analysis.Reasoning)
	}

	// 25h later: stale, reported as a miss.
	c.now = func() time.Time { return base.Add(25 * time.Hour) }
	if _, ok := c.Get(ctx, key); ok {
		t.Error("expected miss at t+25h with 24h ttl")
	}
}

func TestOverwrite(t *testing.T) {
	c := openTestCache(t, 24*time.Hour)
	ctx := context.Background()

	key := PairKey("ETH-PERP", "BTC-PERP")
	c.Put(ctx, testEntry(key, "first"))
	c.Put(ctx, testEntry(key, "second"))

	got, ok := c.Get(ctx, key)
	if !ok {
		t.Fatal("expected hit after overwrite")
	}
	if got.Analysis.Reasoning != "second" {
		t.Errorf("reasoning = %q, want the overwriting payload", got.Analysis.Reasoning)
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalEntries != 1 {
		t.Errorf("total entries = %d, want 1 after overwrite of same key", stats.TotalEntries)
	}
}

func TestConcurrentPuts(t *testing.T) {
	c := openTestCache(t, 24*time.Hour)
	ctx := context.Background()
	key := PairKey("SOL-PERP", "ETH-PERP")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Put(ctx, testEntry(key, fmt.Sprintf("writer-%d", i)))
		}(i)
	}
	wg.Wait()

	got, ok := c.Get(ctx, key)
	if !ok {
		t.Fatal("expected hit after concurrent puts")
	}
	// The surviving row must equal exactly one of the writes.
	found := false
	for i := 0; i < 10; i++ {
		if got.Analysis.Reasoning == fmt.Sprintf("writer-%d", i) {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("stored reasoning %q does not match any writer", got.Analysis.Reasoning)
	}
}

func TestCleanupExpired(t *testing.T) {
	c := openTestCache(t, 24*time.Hour)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	c.Put(ctx, testEntry(PairKey("SOL-PERP", "BTC-PERP"), "old"))

	c.now = func() time.Time { return base.Add(12 * time.Hour) }
	c.Put(ctx, testEntry(PairKey("ETH-PERP", "BTC-PERP"), "newer"))

	// 25h after the first write: only the first entry is expired.
	c.now = func() time.Time { return base.Add(25 * time.Hour) }
	deleted, err := c.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalEntries != 1 || stats.ValidEntries != 1 {
		t.Errorf("stats after cleanup = %+v, want 1 total / 1 valid", stats)
	}
}

func TestNoopCache(t *testing.T) {
	n := NewNoopCache()
	ctx := context.Background()

	if n.Enabled() {
		t.Error("noop cache should report disabled")
	}
	n.Put(ctx, testEntry("SOL-PERP:BTC-PERP", "dropped"))
	if _, ok := n.Get(ctx, "SOL-PERP:BTC-PERP"); ok {
		t.Error("noop cache must always miss")
	}
	if deleted, err := n.CleanupExpired(ctx); err != nil || deleted != 0 {
		t.Errorf("noop cleanup = (%d, %v), want (0, nil)", deleted, err)
	}
	if err := n.Close(); err != nil {
		t.Errorf("noop close: %v", err)
	}
}
