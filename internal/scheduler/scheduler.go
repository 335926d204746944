package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"loanflow-backend/internal/config"
	"loanflow-backend/internal/jobs"
	"loanflow-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.Runner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(runner *jobs.Runner, cfg config.SchedulerConfig) *Scheduler {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: runner,
	}

	_, err := c.AddFunc(cfg.OverdueLoanReport, runner.OverdueLoanReport)
	if err != nil {
		logger.Error("Failed to register OverdueLoanReport job", "error", err)
	}

	return s
}

// Start begins job scheduling in its own goroutine
func (s *Scheduler) Start() {
	logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop halts job scheduling and waits for running jobs to finish
func (s *Scheduler) Stop() {
	logger.Info("Stopping scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
}
