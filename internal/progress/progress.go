// Package progress stores partially completed quiz runs so a visitor can
// resume on another device by entering the same email.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/commtype/api/internal/billing"
	"github.com/commtype/api/pkg/validator"
)

var (
	ErrNotFound     = errors.New("no saved progress for this email")
	ErrInvalidInput = errors.New("invalid progress input")
	ErrSaveFailed   = errors.New("failed to save progress")
)

// TestProgress is one visitor's quiz state, keyed by email.
type TestProgress struct {
	Email           string          `json:"email"`
	Answers         json.RawMessage `json:"answers"`
	CurrentQuestion int             `json:"current_question"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SaveRequest is the upsert payload.
type SaveRequest struct {
	Email           string          `json:"email"`
	Answers         json.RawMessage `json:"answers"`
	CurrentQuestion int             `json:"current_question"`
	Completed       bool            `json:"completed"`
}

func (r SaveRequest) Validate() error {
	return validator.Apply(
		validator.ValidEmail("email", r.Email),
		validator.Between("current_question", r.CurrentQuestion, 0, 500),
	)
}

// Store persists quiz progress.
type Store interface {
	Upsert(ctx context.Context, p TestProgress) error
	GetByEmail(ctx context.Context, email string) (*TestProgress, error)
}

// Service wraps the store with validation and email normalization.
type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func NewService(store Store, log *slog.Logger) *Service {
	if store == nil {
		panic("progress: store is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, log: log, now: time.Now}
}

// Save upserts the visitor's quiz state. A completed run stamps CompletedAt
// once; saving again afterwards keeps overwriting answers.
func (s *Service) Save(ctx context.Context, req SaveRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	answers := req.Answers
	if len(answers) == 0 {
		answers = json.RawMessage("{}")
	}

	p := TestProgress{
		Email:           billing.NormalizeEmail(req.Email),
		Answers:         answers,
		CurrentQuestion: req.CurrentQuestion,
		UpdatedAt:       s.now().UTC(),
	}
	if req.Completed {
		completedAt := s.now().UTC()
		p.CompletedAt = &completedAt
	}

	if err := s.store.Upsert(ctx, p); err != nil {
		s.log.ErrorContext(ctx, "failed to save quiz progress", "error", err)
		return ErrSaveFailed
	}
	return nil
}

// Get returns the saved state for email, or ErrNotFound.
func (s *Service) Get(ctx context.Context, emailAddr string) (*TestProgress, error) {
	if err := validator.Apply(validator.ValidEmail("email", emailAddr)); err != nil {
		return nil, err
	}
	return s.store.GetByEmail(ctx, billing.NormalizeEmail(emailAddr))
}
