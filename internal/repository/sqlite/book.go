package sqlite

import (
	"context"

	"loanflow-backend/internal/domain"
	"loanflow-backend/internal/repository"
)

type bookRepository struct {
	q repository.Querier
}

func NewBookRepository(q repository.Querier) repository.BookRepository {
	return &bookRepository{q: q}
}

func (r *bookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	b := &domain.Book{}
	query := `SELECT id, title, site, total_copies, available_copies FROM books WHERE id = ?`
	err := r.q.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.Title, &b.Site, &b.TotalCopies, &b.AvailableCopies)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bookRepository) IncrementAvailable(ctx context.Context, id string) error {
	// Clamped so duplicate effective returns can never push available
	// past total.
	query := `UPDATE books
	             SET available_copies = MIN(total_copies, available_copies + 1)
	           WHERE id = ?`
	_, err := r.q.ExecContext(ctx, query, id)
	return err
}
