package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"loanflow-backend/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS books (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	site             TEXT NOT NULL,
	total_copies     INTEGER NOT NULL,
	available_copies INTEGER NOT NULL,
	CHECK (available_copies >= 0 AND available_copies <= total_copies)
);

CREATE TABLE IF NOT EXISTS loans (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	book_id    TEXT NOT NULL REFERENCES books(id),
	site       TEXT NOT NULL,
	loan_date  TEXT NOT NULL,
	due_date   TEXT NOT NULL,
	status     TEXT NOT NULL CHECK (status IN ('ACTIVE', 'RETURNED'))
);

CREATE INDEX IF NOT EXISTS idx_loans_lookup ON loans(book_id, user_id, site, status);

CREATE TABLE IF NOT EXISTS applied_operations (
	idempotency_key TEXT PRIMARY KEY,
	op              TEXT NOT NULL,
	request_id      TEXT NOT NULL,
	timestamp       TEXT NOT NULL
);
`

// EnsureSchema creates the ledger tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return nil
}

// SeedOptions shapes the generated data set. The defaults reproduce
// the stock catalog: 1000 single-copy books split across two sites,
// with 50 active loans at the first site and 150 at the second.
type SeedOptions struct {
	Books        int
	LoansSite1   int
	LoansSite2   int
	RandomSeed   int64
	Now          time.Time
	LoanDuration time.Duration
}

func DefaultSeedOptions() SeedOptions {
	return SeedOptions{
		Books:        1000,
		LoansSite1:   50,
		LoansSite2:   150,
		RandomSeed:   42,
		Now:          time.Now().UTC(),
		LoanDuration: 14 * 24 * time.Hour,
	}
}

// Seed populates an empty store with the generated catalog and active
// loans. Loaned books have their single copy checked out, so
// available_copies drops to 0.
func Seed(ctx context.Context, db *sql.DB, opts SeedOptions) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	half := opts.Books / 2
	for i := 1; i <= opts.Books; i++ {
		site := "SEDE1"
		if i > half {
			site = "SEDE2"
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO books(id, title, site, total_copies, available_copies) VALUES (?, ?, ?, 1, 1)`,
			fmt.Sprintf("L%04d", i), fmt.Sprintf("Book %04d", i), site)
		if err != nil {
			return fmt.Errorf("failed to seed book %d: %w", i, err)
		}
	}

	rng := rand.New(rand.NewSource(opts.RandomSeed))
	loanDate := domain.FormatTimestamp(opts.Now)
	dueDate := domain.FormatTimestamp(opts.Now.Add(opts.LoanDuration))

	seedLoans := func(site string, lo, hi, n int) error {
		for _, i := range sampleRange(rng, lo, hi, n) {
			bookID := fmt.Sprintf("L%04d", i)
			if _, err := tx.ExecContext(ctx,
				`UPDATE books SET available_copies = 0 WHERE id = ?`, bookID); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO loans(request_id, user_id, book_id, site, loan_date, due_date, status)
				 VALUES (?, ?, ?, ?, ?, ?, 'ACTIVE')`,
				fmt.Sprintf("S-INIT-%s-%04d", site, i), fmt.Sprintf("U%04d", i), bookID, site, loanDate, dueDate)
			if err != nil {
				return err
			}
		}
		return nil
	}

	if err := seedLoans("SEDE1", 1, half, opts.LoansSite1); err != nil {
		return fmt.Errorf("failed to seed SEDE1 loans: %w", err)
	}
	if err := seedLoans("SEDE2", half+1, opts.Books, opts.LoansSite2); err != nil {
		return fmt.Errorf("failed to seed SEDE2 loans: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}
	return nil
}

// sampleRange picks n distinct values from [lo, hi].
func sampleRange(rng *rand.Rand, lo, hi, n int) []int {
	pool := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		pool = append(pool, i)
	}
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n]
}
