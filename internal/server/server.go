package server

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Elarafi-trade/pair-agentverse/internal/agent"
	"github.com/Elarafi-trade/pair-agentverse/internal/analyzer"
	"github.com/Elarafi-trade/pair-agentverse/internal/cache"
	"github.com/Elarafi-trade/pair-agentverse/internal/metrics"
)

const serviceName = "elara-combined"

// Server is the public HTTP API. It shares the analyzer and response
// cache with the agent and delegates metric computation to the upstream
// pair-agent API, falling back to synthetic metrics when it is down.
type Server struct {
	Echo      *echo.Echo
	Cache     cache.Cache
	Analyzer  *analyzer.Analyzer
	Provider  metrics.Provider
	Fallback  metrics.Provider
	Agent     *agent.Agent
	AgentPort int
	APIPort   int
}

// New wires up routes and middleware.
func New(store cache.Cache, an *analyzer.Analyzer, provider metrics.Provider, ag *agent.Agent, agentPort, apiPort int) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method} path=${uri} status=${status} latency=${latency_human}\n",
	}))

	s := &Server{
		Echo:      e,
		Cache:     store,
		Analyzer:  an,
		Provider:  provider,
		Fallback:  &metrics.MockProvider{},
		Agent:     ag,
		AgentPort: agentPort,
		APIPort:   apiPort,
	}

	e.GET("/health", s.handleHealth)
	e.POST("/api/analyze", s.handleAnalyze)
	e.POST("/cache/cleanup", s.handleCacheCleanup)

	return s
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	return s.Echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
