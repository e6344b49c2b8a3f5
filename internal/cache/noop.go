package cache

import "context"

// NoopCache is used when no database URL is configured. Every Get is a
// miss and every Put is dropped, so the service always recomputes.
type NoopCache struct{}

func NewNoopCache() *NoopCache { return &NoopCache{} }

func (n *NoopCache) Get(_ context.Context, _ string) (*Entry, bool)   { return nil, false }
func (n *NoopCache) Put(_ context.Context, _ *Entry)                  {}
func (n *NoopCache) CleanupExpired(_ context.Context) (int64, error)  { return 0, nil }
func (n *NoopCache) Stats(_ context.Context) (*Stats, error)          { return &Stats{}, nil }
func (n *NoopCache) Enabled() bool                                    { return false }
func (n *NoopCache) Close() error                                     { return nil }
