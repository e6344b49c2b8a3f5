package model

// Signal is the trade direction recommended for a pair.
type Signal string

const (
	SignalLong    Signal = "LONG"
	SignalShort   Signal = "SHORT"
	SignalNeutral Signal = "NEUTRAL"
)

// RiskLevel classifies the risk of acting on a signal.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Metrics holds the statistical inputs for a pair analysis.
// The pointer fields are optional extensions the upstream API may omit.
type Metrics struct {
	ZScore     float64 `json:"zScore"`
	Corr       float64 `json:"corr"`
	Mean       float64 `json:"mean"`
	Std        float64 `json:"std"`
	Beta       float64 `json:"beta"`
	Volatility float64 `json:"volatility"`

	CurrentSpread       *float64 `json:"currentSpread,omitempty"`
	HalfLife            *float64 `json:"halfLife,omitempty"`
	CointegrationPValue *float64 `json:"cointegrationPValue,omitempty"`
	IsCointegrated      *bool    `json:"isCointegrated,omitempty"`
	Sharpe              *float64 `json:"sharpe,omitempty"`
	SignalType          *string  `json:"signalType,omitempty"`
	DataPoints          *int     `json:"dataPoints,omitempty"`
}

// Analysis is the structured result produced by the model.
type Analysis struct {
	Signal              Signal    `json:"signal"`
	Confidence          float64   `json:"confidence"`
	Reasoning           string    `json:"reasoning"`
	RiskLevel           RiskLevel `json:"risk_level"`
	KeyFactors          []string  `json:"key_factors"`
	EntryRecommendation string    `json:"entry_recommendation"`
}

// AnalyzeRequest is the inbound API request body.
type AnalyzeRequest struct {
	SymbolA string `json:"symbolA"`
	SymbolB string `json:"symbolB"`
	Limit   int    `json:"limit"`
}

// AnalyzeResponse is the outbound API response body. CachedAt and
// ExpiresAt are only populated when the result was served from cache.
type AnalyzeResponse struct {
	SymbolA   string    `json:"symbolA"`
	SymbolB   string    `json:"symbolB"`
	Metrics   *Metrics  `json:"metrics"`
	Analysis  *Analysis `json:"analysis"`
	Cached    bool      `json:"cached"`
	CachedAt  string    `json:"cached_at,omitempty"`
	ExpiresAt string    `json:"expires_at,omitempty"`
}
