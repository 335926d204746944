package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"loanflow-backend/internal/repository"
)

// Open opens the embedded ledger store. The pool is pinned to a single
// connection: the storage engine serializes every operation through it
// and that serialization is the system's sole concurrency control.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=10000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger store: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// OpenInMemory opens a fresh private in-memory store, used by tests.
func OpenInMemory() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory ledger store: %w", err)
	}
	// The store lives and dies with its one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)
	return db, nil
}

// NewLedger builds the sqlite repositories over a live handle.
func NewLedger(q repository.Querier) *repository.Ledger {
	return &repository.Ledger{
		Books:   NewBookRepository(q),
		Loans:   NewLoanRepository(q),
		Applied: NewAppliedOperationRepository(q),
	}
}
