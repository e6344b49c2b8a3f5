package agent

import "encoding/json"

// Schema digests identify the message models of the TradeAnalysis protocol.
const (
	SchemaAnalyzeRequest   = "trade-analysis/v1.0/analyze-request"
	SchemaAnalysisResponse = "trade-analysis/v1.0/analysis-response"
)

// Envelope wraps a protocol message for transport between agents.
// ReplyTo, when set, asks for asynchronous delivery of the response to
// that endpoint instead of a synchronous reply.
type Envelope struct {
	Version int             `json:"version"`
	Sender  string          `json:"sender"`
	Target  string          `json:"target"`
	Session string          `json:"session"`
	Schema  string          `json:"schema_digest"`
	ReplyTo string          `json:"reply_to,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// AnalyzeRequest asks the agent to analyze a pair from precomputed metrics.
// Field names follow the protocol wire format.
type AnalyzeRequest struct {
	SymbolA     string  `json:"symbolA"`
	SymbolB     string  `json:"symbolB"`
	ZScore      float64 `json:"zScore"`
	Correlation float64 `json:"correlation"`
	SpreadMean  float64 `json:"spread_mean"`
	SpreadStd   float64 `json:"spread_std"`
	Beta        float64 `json:"beta"`
	Volatility  float64 `json:"volatility"`
	Limit       int     `json:"limit"`
}

// AnalysisResponse carries the analysis plus the input metrics for reference.
type AnalysisResponse struct {
	SymbolA             string   `json:"symbolA"`
	SymbolB             string   `json:"symbolB"`
	Signal              string   `json:"signal"`
	Confidence          float64  `json:"confidence"`
	Reasoning           string   `json:"reasoning"`
	RiskLevel           string   `json:"risk_level"`
	KeyFactors          []string `json:"key_factors"`
	EntryRecommendation string   `json:"entry_recommendation"`
	ZScore              float64  `json:"zScore"`
	Correlation         float64  `json:"correlation"`
	SpreadMean          float64  `json:"spread_mean"`
	SpreadStd           float64  `json:"spread_std"`
	Beta                float64  `json:"beta"`
}
