package jobs

import (
	"context"

	"loanflow-backend/internal/domain"
	"loanflow-backend/internal/logger"
)

// OverdueLoanReport logs how many ACTIVE loans are past their due date.
func (r *Runner) OverdueLoanReport() {
	r.runWithRecovery("OverdueLoanReport", func() {
		ctx := context.Background()
		asOf := domain.FormatTimestamp(r.now())

		count, err := r.ledger.Loans.CountOverdue(ctx, asOf)
		if err != nil {
			logger.Error("Failed to count overdue loans", "error", err)
			return
		}
		logger.Info("Overdue loan report", "as_of", asOf, "overdue", count)
	})
}
