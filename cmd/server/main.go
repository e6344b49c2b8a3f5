package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Elarafi-trade/pair-agentverse/internal/agent"
	"github.com/Elarafi-trade/pair-agentverse/internal/analyzer"
	"github.com/Elarafi-trade/pair-agentverse/internal/cache"
	"github.com/Elarafi-trade/pair-agentverse/internal/config"
	"github.com/Elarafi-trade/pair-agentverse/internal/metrics"
	"github.com/Elarafi-trade/pair-agentverse/internal/scheduler"
	"github.com/Elarafi-trade/pair-agentverse/internal/server"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] ELARA combined server starting...")

	if err := godotenv.Load(); err == nil {
		log.Println("[INFO] loaded environment from .env")
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init cache
	var store cache.Cache
	if cfg.Database.URL != "" {
		sc, err := cache.Open(cfg.Database.URL, cfg.TTL())
		if err != nil {
			log.Printf("[WARN] init cache store failed, caching disabled: %v", err)
			store = cache.NewNoopCache()
		} else {
			store = sc
			defer sc.Close()
		}
	} else {
		log.Println("[WARN] DATABASE_URL not set, caching disabled")
		store = cache.NewNoopCache()
	}

	// Init analyzer
	an, err := analyzer.New(cfg.OpenRouter.APIKey, cfg.OpenRouter.Model, cfg.OpenRouter.BaseURL, cfg.Proxy)
	if err != nil {
		log.Fatalf("[FATAL] init analyzer: %v", err)
	}
	log.Printf("[INFO] analyzer ready (model: %s)", an.Model)

	// Init metrics provider
	provider := metrics.NewPairAgentProvider(cfg.PairAgent.BaseURL, cfg.Proxy)
	log.Printf("[INFO] metrics source: %s (%s)", provider.Name(), provider.BaseURL)

	// Init agent
	ag := agent.New(cfg.Agent.Name, cfg.Agent.Seed, cfg.Agent.Endpoint, an, store)
	ag.LogIdentity(cfg.Agent.AgentverseKey, cfg.Agent.Port)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler and run one sweep at startup
	sched := scheduler.NewScheduler(ctx, store)
	if err := sched.Register(cfg.Cache.CleanupCron); err != nil {
		log.Fatalf("[FATAL] register cache sweep: %v", err)
	}
	sched.Start()
	defer sched.Stop()
	sched.RunSweepNow()

	// Agent endpoint on its own port
	agentEcho := echo.New()
	agentEcho.HideBanner = true
	agentEcho.Use(middleware.Recover())
	ag.Routes(agentEcho)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Agent.Port)
		if err := agentEcho.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[FATAL] agent server: %v", err)
		}
	}()

	// Public API
	srv := server.New(store, an, provider, ag, cfg.Agent.Port, cfg.Server.Port)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("[INFO] API listening on %s", addr)
		if err := srv.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[FATAL] API server: %v", err)
		}
	}()

	log.Println("[INFO] ELARA is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] API shutdown: %v", err)
	}
	if err := agentEcho.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] agent shutdown: %v", err)
	}
	log.Println("[INFO] ELARA stopped")
}
