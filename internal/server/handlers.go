package server

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Elarafi-trade/pair-agentverse/internal/analyzer"
	"github.com/Elarafi-trade/pair-agentverse/internal/cache"
	"github.com/Elarafi-trade/pair-agentverse/internal/model"
)

// analysisTimeout bounds the upstream model call for one request.
const analysisTimeout = 30 * time.Second

type healthResponse struct {
	Status        string       `json:"status"`
	Service       string       `json:"service"`
	AgentRunning  bool         `json:"agent_running"`
	AgentAddress  string       `json:"agent_address"`
	AgentPort     int          `json:"agent_port"`
	APIPort       int          `json:"api_port"`
	QwenAvailable bool         `json:"qwen_available"`
	CacheEnabled  bool         `json:"cache_enabled"`
	CacheStats    *cache.Stats `json:"cache_stats"`
}

func (s *Server) handleHealth(c echo.Context) error {
	var stats *cache.Stats
	if s.Cache.Enabled() {
		if st, err := s.Cache.Stats(c.Request().Context()); err == nil {
			stats = st
		}
	}
	var agentAddress string
	if s.Agent != nil {
		agentAddress = s.Agent.Address()
	}
	return c.JSON(http.StatusOK, healthResponse{
		Status:        "ok",
		Service:       serviceName,
		AgentRunning:  s.Agent != nil,
		AgentAddress:  agentAddress,
		AgentPort:     s.AgentPort,
		APIPort:       s.APIPort,
		QwenAvailable: s.Analyzer != nil,
		CacheEnabled:  s.Cache.Enabled(),
		CacheStats:    stats,
	})
}

func (s *Server) handleAnalyze(c echo.Context) error {
	var req model.AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Request body required"})
	}
	if req.SymbolA == "" || req.SymbolB == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "symbolA and symbolB required"})
	}
	if req.Limit <= 0 {
		req.Limit = 200
	}

	if !model.PairAllowed(req.SymbolA, req.SymbolB) {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error": "Trading pair not allowed. Only these pairs are supported: " +
				strings.Join(model.AllowedPairStrings(), ", "),
			"requested_pair": model.BaseSymbol(req.SymbolA) + "/" + model.BaseSymbol(req.SymbolB),
			"allowed_pairs":  model.AllowedPairStrings(),
		})
	}

	symbolA := model.NormalizeSymbol(req.SymbolA)
	symbolB := model.NormalizeSymbol(req.SymbolB)
	ctx := c.Request().Context()

	key := cache.PairKey(symbolA, symbolB)
	if entry, ok := s.Cache.Get(ctx, key); ok {
		log.Printf("[INFO] cache hit for %s", key)
		return c.JSON(http.StatusOK, model.AnalyzeResponse{
			SymbolA:   entry.SymbolA,
			SymbolB:   entry.SymbolB,
			Metrics:   entry.Metrics,
			Analysis:  entry.Analysis,
			Cached:    true,
			CachedAt:  entry.ComputedAt.Format(time.RFC3339),
			ExpiresAt: entry.ExpiresAt.Format(time.RFC3339),
		})
	}

	m, err := s.Provider.FetchMetrics(ctx, symbolA, symbolB, req.Limit)
	if err != nil {
		log.Printf("[WARN] metrics fetch from %s failed, using %s fallback: %v", s.Provider.Name(), s.Fallback.Name(), err)
		m, err = s.Fallback.FetchMetrics(ctx, symbolA, symbolB, req.Limit)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to calculate metrics"})
		}
	}

	log.Printf("[INFO] analyzing %s/%s", symbolA, symbolB)
	actx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()
	analysis, err := s.Analyzer.AnalyzePair(actx, symbolA, symbolB, m)
	if err != nil {
		log.Printf("[ERROR] analysis for %s failed: %v", key, err)
		guidance := "OpenRouter request failed. Check OPENROUTER_API_KEY and account access."
		if analyzer.IsAuthError(err) {
			guidance = "OpenRouter rejected the API key. Verify OPENROUTER_API_KEY in the service environment."
		}
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error":    "Upstream analysis error",
			"details":  err.Error(),
			"guidance": guidance,
		})
	}

	s.Cache.Put(ctx, &cache.Entry{
		PairKey:    key,
		SymbolA:    symbolA,
		SymbolB:    symbolB,
		Metrics:    m,
		Analysis:   analysis,
		ComputedAt: time.Now().UTC(),
	})

	return c.JSON(http.StatusOK, model.AnalyzeResponse{
		SymbolA:  symbolA,
		SymbolB:  symbolB,
		Metrics:  m,
		Analysis: analysis,
		Cached:   false,
	})
}

func (s *Server) handleCacheCleanup(c echo.Context) error {
	if !s.Cache.Enabled() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Cache not enabled"})
	}
	ctx := c.Request().Context()
	deleted, err := s.Cache.CleanupExpired(ctx)
	if err != nil {
		log.Printf("[ERROR] cache cleanup: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	stats, err := s.Cache.Stats(ctx)
	if err != nil {
		log.Printf("[WARN] cache stats after cleanup: %v", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"deleted":   deleted,
		"remaining": stats,
	})
}
