package sqlite

import (
	"context"

	"loanflow-backend/internal/domain"
	"loanflow-backend/internal/repository"
)

type loanRepository struct {
	q repository.Querier
}

func NewLoanRepository(q repository.Querier) repository.LoanRepository {
	return &loanRepository{q: q}
}

func (r *loanRepository) LatestActive(ctx context.Context, bookID, userID, site string) (*domain.Loan, error) {
	l := &domain.Loan{}
	query := `SELECT id, request_id, user_id, book_id, site, loan_date, due_date, status
	            FROM loans
	           WHERE book_id = ? AND user_id = ? AND site = ? AND status = 'ACTIVE'
	           ORDER BY id DESC LIMIT 1`
	err := r.q.QueryRowContext(ctx, query, bookID, userID, site).
		Scan(&l.ID, &l.RequestID, &l.UserID, &l.BookID, &l.Site, &l.LoanDate, &l.DueDate, &l.Status)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *loanRepository) MarkReturned(ctx context.Context, id int64, returnedAt string) error {
	// due_date doubles as the return timestamp once the loan closes.
	query := `UPDATE loans SET status = 'RETURNED', due_date = ? WHERE id = ?`
	_, err := r.q.ExecContext(ctx, query, returnedAt, id)
	return err
}

func (r *loanRepository) UpdateDueDate(ctx context.Context, id int64, dueDate string) error {
	query := `UPDATE loans SET due_date = ? WHERE id = ?`
	_, err := r.q.ExecContext(ctx, query, dueDate, id)
	return err
}

func (r *loanRepository) CountOverdue(ctx context.Context, asOf string) (int, error) {
	var count int
	query := `SELECT count(*) FROM loans WHERE status = 'ACTIVE' AND due_date < ?`
	err := r.q.QueryRowContext(ctx, query, asOf).Scan(&count)
	return count, err
}
