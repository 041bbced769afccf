package coupon

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commtype/api/pkg/pg"
)

// Store persists coupons in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// GetActiveByCode returns the active coupon for a normalized code.
// Inactive and unknown codes both come back as ErrNotFound; callers cannot
// tell the difference, which keeps code probing uninformative.
func (s *Store) GetActiveByCode(ctx context.Context, code string) (*Coupon, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, code, discount_type, max_uses, current_uses, active, expires_at, created_at
		FROM coupons
		WHERE code = $1 AND active = true`,
		NormalizeCode(code),
	)

	var c Coupon
	err := row.Scan(&c.ID, &c.Code, &c.DiscountType, &c.MaxUses, &c.CurrentUses, &c.Active, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// IncrementUses bumps the use counter. It takes the caller's transaction
// because the increment is always part of a larger redemption write.
func IncrementUses(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE coupons SET current_uses = current_uses + 1 WHERE id = $1`,
		id,
	)
	return err
}

// InsertBatch creates all coupons from a bulk request in one transaction.
// Either every row lands or none does.
func (s *Store) InsertBatch(ctx context.Context, inputs []Input) ([]Coupon, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created := make([]Coupon, 0, len(inputs))
	for _, in := range inputs {
		row := tx.QueryRow(ctx, `
			INSERT INTO coupons (code, discount_type, max_uses, active, expires_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, code, discount_type, max_uses, current_uses, active, expires_at, created_at`,
			NormalizeCode(in.Code), in.DiscountType, in.MaxUses, in.Active, in.ExpiresAt,
		)

		var c Coupon
		if err := row.Scan(&c.ID, &c.Code, &c.DiscountType, &c.MaxUses, &c.CurrentUses, &c.Active, &c.ExpiresAt, &c.CreatedAt); err != nil {
			if pg.IsDuplicateKey(err) {
				return nil, errors.Join(ErrInvalidInput, errors.New("duplicate coupon code: "+NormalizeCode(in.Code)))
			}
			return nil, err
		}
		created = append(created, c)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}
