package review

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres implementation of Store.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Create(ctx context.Context, r Review) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO reviews (name, rating, text, approved)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		r.Name, r.Rating, r.Text, r.Approved,
	).Scan(&id)
	return id, err
}

func (s *PGStore) ListApproved(ctx context.Context, limit int) ([]Review, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, rating, text, approved, created_at
		FROM reviews
		WHERE approved = true
		ORDER BY created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Review, error) {
		var r Review
		err := row.Scan(&r.ID, &r.Name, &r.Rating, &r.Text, &r.Approved, &r.CreatedAt)
		return r, err
	})
}

var _ Store = (*PGStore)(nil)
