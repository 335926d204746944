package domain

type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "ACTIVE"
	LoanStatusReturned LoanStatus = "RETURNED"
)

// Book is a title held at one site. AvailableCopies never leaves the
// range [0, TotalCopies]; only the storage engine mutates it.
type Book struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Site            string `json:"site"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
}

// Loan is one lending of one book copy. Status only ever moves
// ACTIVE -> RETURNED (terminal); a renewal keeps it ACTIVE with a new
// due date. On return, DueDate records the return timestamp.
type Loan struct {
	ID        int64      `json:"id"`
	RequestID string     `json:"request_id"`
	UserID    string     `json:"user_id"`
	BookID    string     `json:"book_id"`
	Site      string     `json:"site"`
	LoanDate  string     `json:"loan_date"`
	DueDate   string     `json:"due_date"`
	Status    LoanStatus `json:"status"`
}

// AppliedOperation is one row of the dedup ledger: which idempotency
// keys have already produced their effect. Rows are inserted in the
// same transaction as the effect and never mutated or deleted.
type AppliedOperation struct {
	IdempotencyKey string `json:"idempotency_key"`
	Op             Op     `json:"op"`
	RequestID      string `json:"request_id"`
	Timestamp      string `json:"timestamp"`
}
