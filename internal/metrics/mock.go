package metrics

import (
	"context"
	"math/rand"

	"github.com/Elarafi-trade/pair-agentverse/internal/model"
)

// MockProvider returns synthetic metrics. It serves development without
// the hosted API and acts as the fallback source when the upstream is
// unreachable, so an analysis request still produces a result.
type MockProvider struct {
	// Fixed, when set, is returned as-is instead of random data.
	Fixed *model.Metrics
	Rand  *rand.Rand
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Health(_ context.Context) error { return nil }

func (m *MockProvider) FetchMetrics(_ context.Context, _, _ string, limit int) (*model.Metrics, error) {
	if m.Fixed != nil {
		return m.Fixed, nil
	}
	r := m.Rand
	if r == nil {
		r = rand.New(rand.NewSource(rand.Int63()))
	}
	uniform := func(lo, hi float64) float64 { return lo + r.Float64()*(hi-lo) }

	points := limit
	return &model.Metrics{
		ZScore:     uniform(-3.0, 3.0),
		Corr:       uniform(0.5, 0.95),
		Mean:       uniform(-0.01, 0.01),
		Std:        uniform(0.001, 0.01),
		Beta:       uniform(0.8, 1.5),
		Volatility: uniform(0.01, 0.05),
		DataPoints: &points,
	}, nil
}
