package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"loanflow-backend/internal/domain"
	"loanflow-backend/internal/repository"
)

type appliedOperationRepository struct {
	q repository.Querier
}

func NewAppliedOperationRepository(q repository.Querier) repository.AppliedOperationRepository {
	return &appliedOperationRepository{q: q}
}

func (r *appliedOperationRepository) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	query := `SELECT 1 FROM applied_operations WHERE idempotency_key = ?`
	err := r.q.QueryRowContext(ctx, query, key).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *appliedOperationRepository) Create(ctx context.Context, rec *domain.AppliedOperation) error {
	query := `INSERT INTO applied_operations(idempotency_key, op, request_id, timestamp) VALUES (?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, query, rec.IdempotencyKey, rec.Op, rec.RequestID, rec.Timestamp)
	return err
}
