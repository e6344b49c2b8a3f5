package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/Elarafi-trade/pair-agentverse/internal/cache"
)

// Scheduler runs the periodic cache sweep. Expired rows are already
// invisible to reads; the sweep just keeps the table from growing.
type Scheduler struct {
	Cron  *cron.Cron
	Cache cache.Cache
	Ctx   context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, store cache.Cache) *Scheduler {
	return &Scheduler{
		Cron:  cron.New(cron.WithSeconds()),
		Cache: store,
		Ctx:   ctx,
	}
}

// Register adds the cleanup job with the given cron spec.
func (s *Scheduler) Register(cleanupCron string) error {
	if _, err := s.Cron.AddFunc(cleanupCron, s.sweep); err != nil {
		return fmt.Errorf("register cleanup task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunSweepNow executes the cleanup immediately (used at startup).
func (s *Scheduler) RunSweepNow() {
	s.sweep()
}

func (s *Scheduler) sweep() {
	if !s.Cache.Enabled() {
		return
	}
	deleted, err := s.Cache.CleanupExpired(s.Ctx)
	if err != nil {
		log.Printf("[ERROR] cache sweep: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[INFO] cache sweep removed %d expired entries", deleted)
	}
	if stats, err := s.Cache.Stats(s.Ctx); err == nil {
		log.Printf("[INFO] cache: %d valid entries (%d expired pending sweep)", stats.ValidEntries, stats.ExpiredEntries)
	}
}
