package cache

import (
	"context"
	"strings"
	"time"

	"github.com/Elarafi-trade/pair-agentverse/internal/model"
)

// Entry is one cached analysis result for a trading pair.
type Entry struct {
	PairKey    string
	SymbolA    string
	SymbolB    string
	Metrics    *model.Metrics
	Analysis   *model.Analysis
	ComputedAt time.Time
	ExpiresAt  time.Time
}

// PairKey builds the canonical cache key for an ordered pair.
// The key is order-sensitive: (A,B) and (B,A) cache independently,
// since the signal direction depends on which leg is which.
func PairKey(symbolA, symbolB string) string {
	return strings.ToUpper(symbolA) + ":" + strings.ToUpper(symbolB)
}

// Fresh reports whether an entry computed at computedAt is still servable
// at time now under the given TTL.
func Fresh(now, computedAt time.Time, ttl time.Duration) bool {
	return now.Sub(computedAt) <= ttl
}

// Stats summarizes the state of the backing store.
type Stats struct {
	TotalEntries   int64 `json:"total_entries"`
	ValidEntries   int64 `json:"valid_entries"`
	ExpiredEntries int64 `json:"expired_entries"`
}

// Cache stores analysis results keyed by pair with time-based expiry.
//
// Get and Put fail soft: a store error is logged and reported as a miss
// (or dropped write) so callers always fall back to recomputation instead
// of failing the request.
type Cache interface {
	Get(ctx context.Context, pairKey string) (*Entry, bool)
	Put(ctx context.Context, e *Entry)
	CleanupExpired(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*Stats, error)
	Enabled() bool
	Close() error
}
