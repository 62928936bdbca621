package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/botdeck/botdeck/internal/db"
	"github.com/botdeck/botdeck/internal/logger"
	"github.com/botdeck/botdeck/internal/services"
)

// Scheduler runs the nightly metric rollup. Each run recomputes a short
// trailing window of daily metrics for every chatbot, so sessions closed
// after their day's first rollup still get counted.
type Scheduler struct {
	config       db.ConfigStore
	metrics      *services.MetricsService
	cron         *cron.Cron
	cronExpr     string
	backfillDays int
	running      bool
	mu           sync.RWMutex
}

// New creates a new scheduler
func New(config db.ConfigStore, metrics *services.MetricsService, cronExpr string, backfillDays int) *Scheduler {
	if backfillDays < 1 {
		backfillDays = 1
	}
	return &Scheduler{
		config:       config,
		metrics:      metrics,
		cron:         cron.New(),
		cronExpr:     cronExpr,
		backfillDays: backfillDays,
	}
}

// Start registers the rollup job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if _, err := s.cron.AddFunc(s.cronExpr, func() {
		if err := s.RunOnce(context.Background()); err != nil {
			logger.Error("Metric rollup failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.running = true

	logger.Info("Scheduler started, rollup cron: %s (backfill %d days)", s.cronExpr, s.backfillDays)
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cron.Stop()
	s.running = false

	logger.Info("Scheduler stopped")
}

// RunOnce runs one rollup pass over every chatbot. A chatbot failing its
// rollup does not stop the pass; the first error is reported at the end.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	chatbots, err := s.config.ListChatbots(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list chatbots: %w", err)
	}

	logger.Info("Rolling up daily metrics for %d chatbots", len(chatbots))

	var firstErr error
	for _, chatbot := range chatbots {
		if err := s.metrics.BackfillChatbot(ctx, chatbot.ID, s.backfillDays); err != nil {
			logger.Error("Rollup failed for chatbot %s: %v", chatbot.ID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	logger.Info("Rollup pass completed")
	return firstErr
}
