// Package review stores customer reviews shown on the marketing pages.
// New reviews start unapproved; only approved ones are served publicly.
package review

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/commtype/api/pkg/validator"
)

var ErrCreateFailed = errors.New("failed to create review")

// Review is one customer testimonial.
type Review struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRequest is the submission payload.
type CreateRequest struct {
	Name   string `json:"name"`
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

func (r CreateRequest) Validate() error {
	return validator.Apply(
		validator.Required("name", r.Name),
		validator.MaxLen("name", r.Name, 100),
		validator.Between("rating", r.Rating, 1, 5),
		validator.MinLen("text", strings.TrimSpace(r.Text), 10),
		validator.MaxLen("text", r.Text, 2000),
	)
}

// Store persists reviews.
type Store interface {
	Create(ctx context.Context, r Review) (uuid.UUID, error)
	ListApproved(ctx context.Context, limit int) ([]Review, error)
}

// Service wraps the store with validation.
type Service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store, log *slog.Logger) *Service {
	if store == nil {
		panic("review: store is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, log: log}
}

// Create validates and persists a review, unapproved.
func (s *Service) Create(ctx context.Context, req CreateRequest) (uuid.UUID, error) {
	if err := req.Validate(); err != nil {
		return uuid.Nil, err
	}

	id, err := s.store.Create(ctx, Review{
		Name:     strings.TrimSpace(req.Name),
		Rating:   req.Rating,
		Text:     strings.TrimSpace(req.Text),
		Approved: false,
	})
	if err != nil {
		s.log.ErrorContext(ctx, "failed to create review", "error", err)
		return uuid.Nil, ErrCreateFailed
	}
	return id, nil
}

// ListApproved returns up to limit approved reviews, newest first.
func (s *Service) ListApproved(ctx context.Context, limit int) ([]Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.ListApproved(ctx, limit)
}
