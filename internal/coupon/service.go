package coupon

import (
	"context"
	"fmt"
	"log/slog"
)

// BatchInserter is implemented by Store; the indirection exists for tests.
type BatchInserter interface {
	InsertBatch(ctx context.Context, inputs []Input) ([]Coupon, error)
}

// Service handles coupon administration.
type Service struct {
	store BatchInserter
	log   *slog.Logger
}

func NewService(store BatchInserter, log *slog.Logger) *Service {
	if store == nil {
		panic("coupon: store is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, log: log}
}

// BulkCreate validates and inserts a batch of coupon definitions.
// The batch is all-or-nothing: one bad entry rejects the whole request.
func (s *Service) BulkCreate(ctx context.Context, inputs []Input) ([]Coupon, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidInput)
	}

	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidInput, i, err)
		}
	}

	created, err := s.store.InsertBatch(ctx, inputs)
	if err != nil {
		s.log.ErrorContext(ctx, "bulk coupon insert failed", "count", len(inputs), "error", err)
		return nil, err
	}

	s.log.InfoContext(ctx, "coupons created", "count", len(created))
	return created, nil
}
