package jobs

import (
	"time"

	"loanflow-backend/internal/logger"
	"loanflow-backend/internal/repository"
)

// Runner coordinates the storage process's scheduled jobs. Jobs are
// read-only: every ledger mutation flows through the engine's apply
// path.
type Runner struct {
	ledger *repository.Ledger
	now    func() time.Time
}

func NewRunner(ledger *repository.Ledger) *Runner {
	return &Runner{ledger: ledger, now: time.Now}
}

// WithClock overrides the runner clock, used by tests.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// runWithRecovery wraps job execution with panic recovery
func (r *Runner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Job panicked", "job", jobName, "panic", rec)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}
