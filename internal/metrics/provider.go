package metrics

import (
	"context"

	"github.com/Elarafi-trade/pair-agentverse/internal/model"
)

// Provider supplies the statistical metrics for a trading pair.
type Provider interface {
	FetchMetrics(ctx context.Context, symbolA, symbolB string, limit int) (*model.Metrics, error)
	Health(ctx context.Context) error
	Name() string
}
