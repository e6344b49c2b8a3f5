package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"net/http"
	"time"

	"github.com/Elarafi-trade/pair-agentverse/internal/analyzer"
	"github.com/Elarafi-trade/pair-agentverse/internal/cache"
	"github.com/Elarafi-trade/pair-agentverse/internal/model"
)

// analysisTimeout bounds one upstream model call per message.
const analysisTimeout = 30 * time.Second

// Agent answers TradeAnalysis protocol messages, sharing the analyzer and
// response cache with the HTTP API.
type Agent struct {
	Name     string
	Endpoint string
	Analyzer *analyzer.Analyzer
	Cache    cache.Cache
	Client   *http.Client

	address string
}

// New creates an agent whose address is derived deterministically from seed,
// so restarts keep the same identity.
func New(name, seed, endpoint string, an *analyzer.Analyzer, store cache.Cache) *Agent {
	return &Agent{
		Name:     name,
		Endpoint: endpoint,
		Analyzer: an,
		Cache:    store,
		Client:   &http.Client{Timeout: 30 * time.Second},
		address:  deriveAddress(name, seed),
	}
}

func deriveAddress(name, seed string) string {
	sum := sha256.Sum256([]byte(name + ":" + seed))
	return "agent1" + hex.EncodeToString(sum[:29])
}

// Address returns the agent's stable protocol address.
func (a *Agent) Address() string { return a.address }

// LogIdentity logs the agent's identity and registration status. A missing
// Agentverse key only disables registration; the agent still serves locally.
func (a *Agent) LogIdentity(agentverseKey string, port int) {
	log.Printf("[INFO] agent %s listening on port %d", a.Name, port)
	log.Printf("[INFO] agent address: %s", a.address)
	log.Printf("[INFO] agent endpoint: %s", a.Endpoint)
	if agentverseKey == "" {
		log.Println("[WARN] AGENTVERSE_API_KEY not set, agent runs locally without registration")
	} else {
		log.Println("[INFO] Agentverse registration enabled")
	}
}

// Analyze handles one AnalyzeRequest and always produces a response:
// analyzer failures are reported inside the message, never as a transport
// error, so the requesting agent gets a well-formed answer.
func (a *Agent) Analyze(ctx context.Context, req *AnalyzeRequest) *AnalysisResponse {
	symbolA := model.NormalizeSymbol(req.SymbolA)
	symbolB := model.NormalizeSymbol(req.SymbolB)
	key := cache.PairKey(symbolA, symbolB)

	if entry, ok := a.Cache.Get(ctx, key); ok {
		log.Printf("[INFO] agent cache hit for %s", key)
		return a.respond(req, entry.Analysis)
	}

	m := &model.Metrics{
		ZScore:     req.ZScore,
		Corr:       req.Correlation,
		Mean:       req.SpreadMean,
		Std:        req.SpreadStd,
		Beta:       req.Beta,
		Volatility: req.Volatility,
	}

	ctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()

	analysis, err := a.Analyzer.AnalyzePair(ctx, symbolA, symbolB, m)
	if err != nil {
		log.Printf("[ERROR] agent analysis for %s failed: %v", key, err)
		return &AnalysisResponse{
			SymbolA:             symbolA,
			SymbolB:             symbolB,
			Signal:              string(model.SignalNeutral),
			Confidence:          0.0,
			Reasoning:           "Analysis error: " + err.Error(),
			RiskLevel:           string(model.RiskHigh),
			KeyFactors:          []string{"ERROR"},
			EntryRecommendation: "Do not trade - analysis failed",
			ZScore:              req.ZScore,
			Correlation:         req.Correlation,
			SpreadMean:          req.SpreadMean,
			SpreadStd:           req.SpreadStd,
			Beta:                req.Beta,
		}
	}

	a.Cache.Put(ctx, &cache.Entry{
		PairKey:    key,
		SymbolA:    symbolA,
		SymbolB:    symbolB,
		Metrics:    m,
		Analysis:   analysis,
		ComputedAt: time.Now().UTC(),
	})

	return a.respond(req, analysis)
}

func (a *Agent) respond(req *AnalyzeRequest, analysis *model.Analysis) *AnalysisResponse {
	return &AnalysisResponse{
		SymbolA:             model.NormalizeSymbol(req.SymbolA),
		SymbolB:             model.NormalizeSymbol(req.SymbolB),
		Signal:              string(analysis.Signal),
		Confidence:          analysis.Confidence,
		Reasoning:           analysis.Reasoning,
		RiskLevel:           string(analysis.RiskLevel),
		KeyFactors:          analysis.KeyFactors,
		EntryRecommendation: analysis.EntryRecommendation,
		ZScore:              req.ZScore,
		Correlation:         req.Correlation,
		SpreadMean:          req.SpreadMean,
		SpreadStd:           req.SpreadStd,
		Beta:                req.Beta,
	}
}
