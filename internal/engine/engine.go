package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"loanflow-backend/internal/domain"
	"loanflow-backend/internal/logger"
	"loanflow-backend/internal/repository"
)

// Engine applies validated operations against the ledger store, one
// request fully before the next, each inside its own transaction. The
// dedup record and the domain effect commit or roll back together.
type Engine struct {
	db     *sql.DB
	ledger repository.LedgerFactory
	now    func() time.Time
}

func New(db *sql.DB, ledger repository.LedgerFactory) *Engine {
	return &Engine{
		db:     db,
		ledger: ledger,
		now:    time.Now,
	}
}

// WithClock overrides the engine clock, used by tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Apply processes one raw operation payload and always produces a
// reply; failures are reported in the reply, never by panic or by a
// dropped message.
func (e *Engine) Apply(ctx context.Context, payload []byte) domain.Reply {
	req, err := domain.DecodeRequest(payload)
	if err != nil {
		return domain.Reply{OK: false, Msg: fmt.Sprintf("invalid JSON: %v", err)}
	}

	op, opErr := domain.ParseOp(string(req.Op))
	requestID := req.RequestID
	if requestID == "" {
		requestID = "?"
	}

	key := req.IdempotencyKey
	if key == "" {
		key = domain.FallbackKey(op, req.RequestID)
	}
	ts := req.Timestamp
	if ts == "" {
		ts = domain.FormatTimestamp(e.now())
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Reply{OK: false, Msg: fmt.Sprintf("error applying operation: %v", err)}
	}

	reply, commit := e.applyInTx(ctx, tx, req, op, opErr, key, requestID, ts)
	if commit {
		if err := tx.Commit(); err != nil {
			return domain.Reply{OK: false, Msg: fmt.Sprintf("error applying operation: %v", err)}
		}
	} else {
		if err := tx.Rollback(); err != nil {
			logger.Error("rollback failed", "request_id", requestID, "error", err)
		}
	}

	logger.Info("operation processed", "op", string(op), "request_id", requestID, "ok", reply.OK, "msg", reply.Msg)
	return reply
}

// applyInTx runs steps 4-6 of the per-request algorithm and reports
// whether the open transaction should commit.
func (e *Engine) applyInTx(ctx context.Context, tx *sql.Tx, req domain.Request, op domain.Op, opErr error, key, requestID, ts string) (domain.Reply, bool) {
	ledger := e.ledger(tx)

	seen, err := ledger.Applied.Exists(ctx, key)
	if err != nil {
		return domain.Reply{OK: false, Msg: fmt.Sprintf("error applying operation: %v", err)}, false
	}
	if seen {
		// Committing the no-op keeps the read consistent with the
		// serialized stream of already-applied work.
		return domain.Reply{OK: true, Msg: "already applied"}, true
	}

	if opErr != nil {
		return domain.Reply{OK: false, Msg: "unsupported operation"}, false
	}

	rec := &domain.AppliedOperation{IdempotencyKey: key, Op: op, RequestID: requestID, Timestamp: ts}
	if err := ledger.Applied.Create(ctx, rec); err != nil {
		return domain.Reply{OK: false, Msg: fmt.Sprintf("error applying operation: %v", err)}, false
	}

	switch op {
	case domain.OpReturn:
		return e.applyReturn(ctx, ledger, req, ts)
	case domain.OpRenew:
		return e.applyRenew(ctx, ledger, req)
	default:
		return domain.Reply{OK: false, Msg: "unsupported operation"}, false
	}
}

func (e *Engine) applyReturn(ctx context.Context, ledger *repository.Ledger, req domain.Request, ts string) (domain.Reply, bool) {
	loan, err := ledger.Loans.LatestActive(ctx, req.BookID, req.UserID, req.Site)
	if errors.Is(err, sql.ErrNoRows) {
		// A prior return may already have closed it; absence is success.
		return domain.Reply{OK: true, Msg: "no active loan (idempotent)"}, true
	}
	if err != nil {
		return domain.Reply{OK: false, Msg: fmt.Sprintf("error applying operation: %v", err)}, false
	}

	if err := ledger.Loans.MarkReturned(ctx, loan.ID, ts); err != nil {
		return domain.Reply{OK: false, Msg: fmt.Sprintf("error applying operation: %v", err)}, false
	}
	if err := ledger.Books.IncrementAvailable(ctx, req.BookID); err != nil {
		return domain.Reply{OK: false, Msg: fmt.Sprintf("error applying operation: %v", err)}, false
	}
	return domain.Reply{OK: true, Msg: fmt.Sprintf("return applied on loan %d", loan.ID)}, true
}

func (e *Engine) applyRenew(ctx context.Context, ledger *repository.Ledger, req domain.Request) (domain.Reply, bool) {
	newDueDate := req.NewDueDate
	if newDueDate == "" {
		// The renew worker normally computes this; fall back to the
		// same computation when the message arrived unenriched.
		newDueDate = domain.RenewalDueDate(req.Timestamp, e.now)
	}

	loan, err := ledger.Loans.LatestActive(ctx, req.BookID, req.UserID, req.Site)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Reply{OK: false, Msg: "no active loan to renew"}, false
	}
	if err != nil {
		return domain.Reply{OK: false, Msg: fmt.Sprintf("error applying operation: %v", err)}, false
	}

	if err := ledger.Loans.UpdateDueDate(ctx, loan.ID, newDueDate); err != nil {
		return domain.Reply{OK: false, Msg: fmt.Sprintf("error applying operation: %v", err)}, false
	}
	return domain.Reply{OK: true, Msg: fmt.Sprintf("renew applied on loan %d new due date %s", loan.ID, newDueDate)}, true
}
