package repository

import (
	"context"
	"database/sql"

	"loanflow-backend/internal/domain"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repositories are constructed over whichever handle the caller holds,
// so the storage engine can run the same repositories inside its
// per-operation transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type BookRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Book, error)
	// IncrementAvailable frees one copy, clamped so available never
	// exceeds the total.
	IncrementAvailable(ctx context.Context, id string) error
}

type LoanRepository interface {
	// LatestActive selects the current ACTIVE loan for
	// (bookID, userID, site): the most recently created one when
	// duplicates exist. Returns sql.ErrNoRows when there is none.
	LatestActive(ctx context.Context, bookID, userID, site string) (*domain.Loan, error)
	MarkReturned(ctx context.Context, id int64, returnedAt string) error
	UpdateDueDate(ctx context.Context, id int64, dueDate string) error
	CountOverdue(ctx context.Context, asOf string) (int, error)
}

type AppliedOperationRepository interface {
	Exists(ctx context.Context, key string) (bool, error)
	Create(ctx context.Context, rec *domain.AppliedOperation) error
}

// Ledger bundles the three repositories over one handle.
type Ledger struct {
	Books   BookRepository
	Loans   LoanRepository
	Applied AppliedOperationRepository
}

// LedgerFactory builds a Ledger over a live handle, typically the
// storage engine's open transaction.
type LedgerFactory func(q Querier) *Ledger
