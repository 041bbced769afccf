package progress

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commtype/api/pkg/pg"
)

// PGStore is the Postgres implementation of Store.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Upsert(ctx context.Context, p TestProgress) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO test_progress (email, answers, current_question, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			answers = EXCLUDED.answers,
			current_question = EXCLUDED.current_question,
			completed_at = COALESCE(test_progress.completed_at, EXCLUDED.completed_at),
			updated_at = EXCLUDED.updated_at`,
		p.Email, p.Answers, p.CurrentQuestion, p.CompletedAt, p.UpdatedAt,
	)
	return err
}

func (s *PGStore) GetByEmail(ctx context.Context, email string) (*TestProgress, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT email, answers, current_question, completed_at, updated_at
		FROM test_progress
		WHERE email = $1`,
		email,
	)

	var p TestProgress
	err := row.Scan(&p.Email, &p.Answers, &p.CurrentQuestion, &p.CompletedAt, &p.UpdatedAt)
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

var _ Store = (*PGStore)(nil)
