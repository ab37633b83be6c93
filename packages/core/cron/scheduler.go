package cron

import (
	"context"
	"log/slog"
	"time"

	"core/services"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 30 * time.Second

type Scheduler struct {
	cron             *cron.Cron
	schedule         string
	autoCloseService *services.AutoCloseService
	logger           *slog.Logger
}

// NewScheduler builds a scheduler for the round deadline job. An empty
// schedule disables it.
func NewScheduler(schedule string, autoCloseService *services.AutoCloseService, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	// Create cron with seconds precision and logging
	c := cron.New(cron.WithSeconds(), cron.WithLogger(
		cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug)),
	))

	return &Scheduler{
		cron:             c,
		schedule:         schedule,
		autoCloseService: autoCloseService,
		logger:           logger,
	}
}

// Start registers the deadline job and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.schedule == "" {
		s.logger.Info("round deadline schedule not set, scheduler idle")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.runAutoClose); err != nil {
		s.logger.Error("error scheduling round deadline job", "schedule", s.schedule, "error", err)
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started", "schedule", s.schedule)
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("cron scheduler stopped")
}

func (s *Scheduler) runAutoClose() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	outcome, err := s.autoCloseService.CloseLatestOpenRound(ctx)
	if err != nil {
		s.logger.Error("round deadline job failed", "error", err)
		return
	}

	if outcome.Closed == nil {
		s.logger.Debug("no open round to close")
		return
	}
	s.logger.Info("round closed at deadline",
		"round_id", outcome.Closed.RoundID,
		"ranked", len(outcome.Closed.Rankings))

	if outcome.Next != nil {
		s.logger.Info("next round opened", "round_id", outcome.Next.Round.ID, "teams", len(outcome.Next.Teams))
	}
}

// RunNow manually triggers the deadline job (useful for testing)
func (s *Scheduler) RunNow() {
	s.runAutoClose()
}
