package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/Elarafi-trade/pair-agentverse/internal/model"
)

// DefaultBaseURL is the hosted pair-agent statistics API.
const DefaultBaseURL = "https://pair-agent-a2ol.onrender.com"

// PairAgentProvider fetches pair statistics from the pair-agent REST API.
type PairAgentProvider struct {
	BaseURL string
	Client  *http.Client
}

// NewPairAgentProvider creates a provider with optional proxy support.
func NewPairAgentProvider(baseURL, proxyURL string) *PairAgentProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &PairAgentProvider{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (p *PairAgentProvider) Name() string { return "pair-agent" }

// pairAgentResponse is the expected JSON shape from /api/analyze.
type pairAgentResponse struct {
	Analysis struct {
		ZScore              float64  `json:"zScore"`
		Correlation         float64  `json:"correlation"`
		SpreadMean          float64  `json:"spreadMean"`
		SpreadStd           float64  `json:"spreadStd"`
		Beta                float64  `json:"beta"`
		Volatility          *float64 `json:"volatility"`
		CurrentSpread       *float64 `json:"currentSpread"`
		HalfLife            *float64 `json:"halfLife"`
		CointegrationPValue *float64 `json:"cointegrationPValue"`
		IsCointegrated      *bool    `json:"isCointegrated"`
		Sharpe              *float64 `json:"sharpe"`
		SignalType          *string  `json:"signalType"`
	} `json:"analysis"`
	DataPoints *int `json:"dataPoints"`
}

// FetchMetrics requests statistics for a pair and maps them onto the
// internal metrics shape. Volatility falls back to the spread standard
// deviation when the upstream omits it.
func (p *PairAgentProvider) FetchMetrics(ctx context.Context, symbolA, symbolB string, limit int) (*model.Metrics, error) {
	payload, err := json.Marshal(model.AnalyzeRequest{SymbolA: symbolA, SymbolB: symbolB, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("marshal metrics request: %w", err)
	}

	endpoint := p.BaseURL + "/api/analyze"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create metrics request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metrics: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch metrics: status %d, body: %s", resp.StatusCode, string(body))
	}

	var parsed pairAgentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}

	a := parsed.Analysis
	std := a.SpreadStd
	if std <= 0 {
		std = 1.0
	}

	// Prefer the upstream volatility; otherwise use spread std as a proxy,
	// guarding against non-finite or negative values.
	vol := a.SpreadStd
	if a.Volatility != nil {
		vol = *a.Volatility
	}
	if math.IsNaN(vol) || math.IsInf(vol, 0) || vol < 0 {
		vol = math.Max(a.SpreadStd, 0)
	}

	m := &model.Metrics{
		ZScore:              a.ZScore,
		Corr:                a.Correlation,
		Mean:                a.SpreadMean,
		Std:                 std,
		Beta:                a.Beta,
		Volatility:          vol,
		CurrentSpread:       a.CurrentSpread,
		HalfLife:            a.HalfLife,
		CointegrationPValue: a.CointegrationPValue,
		IsCointegrated:      a.IsCointegrated,
		Sharpe:              a.Sharpe,
		SignalType:          a.SignalType,
		DataPoints:          parsed.DataPoints,
	}
	return m, nil
}

// Health checks the upstream /health endpoint.
func (p *PairAgentProvider) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", p.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("pair-agent health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pair-agent health: status %d", resp.StatusCode)
	}
	return nil
}
