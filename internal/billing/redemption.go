package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/commtype/api/internal/coupon"
)

// RedemptionStore is the persistence contract for coupon redemption.
// CreateRedemption must perform its three writes (subscription insert,
// ledger insert, coupon counter increment) in a single transaction.
type RedemptionStore interface {
	GetActiveCouponByCode(ctx context.Context, code string) (*coupon.Coupon, error)
	HasActiveSubscription(ctx context.Context, email string) (bool, error)
	CreateRedemption(ctx context.Context, params CreateRedemptionParams) (*RedemptionOutcome, error)
}

// CreateRedemptionParams carries the pre-computed redemption writes.
type CreateRedemptionParams struct {
	CouponID              uuid.UUID
	CouponCode            string
	Email                 string
	PlanType              PlanType
	PriceCents            int64
	NextBillingDate       time.Time
	NextChargeDate        time.Time
	NextChargeAmountCents int64
	Month3PriceCents      int64
}

// RedemptionOutcome reports the rows the transaction created.
type RedemptionOutcome struct {
	SubscriptionID uuid.UUID
	RedemptionID   uuid.UUID
}

// RedemptionResult is what the API returns on success.
type RedemptionResult struct {
	SubscriptionID uuid.UUID
	ExpiresAt      time.Time // end of the free month
}

// RedemptionService exchanges a coupon code for a discounted subscription.
// It owns the invariant linking the coupon use counter, the subscription
// row, and the redemption ledger entry.
type RedemptionService struct {
	store RedemptionStore
	cfg   Config
	log   *slog.Logger
	now   func() time.Time
}

// RedemptionOption configures the service.
type RedemptionOption func(*RedemptionService)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) RedemptionOption {
	return func(s *RedemptionService) { s.now = now }
}

func NewRedemptionService(store RedemptionStore, cfg Config, log *slog.Logger, opts ...RedemptionOption) *RedemptionService {
	if store == nil {
		panic("billing: redemption store is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &RedemptionService{store: store, cfg: cfg, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Redeem validates the coupon and creates the subscription, the ledger
// entry, and the counter increment as one transaction.
//
// Validation failures come back as the distinct business-rule errors;
// anything that goes wrong talking to storage is collapsed into
// ErrRedemptionFailed so infrastructure detail never reaches the caller.
func (s *RedemptionService) Redeem(ctx context.Context, email, couponCode string) (*RedemptionResult, error) {
	email = NormalizeEmail(email)
	code := coupon.NormalizeCode(couponCode)

	c, err := s.store.GetActiveCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			return nil, ErrInvalidCoupon
		}
		s.log.ErrorContext(ctx, "coupon lookup failed", "code", code, "error", err)
		return nil, ErrRedemptionFailed
	}

	now := s.now().UTC()
	if c.IsExhausted() {
		return nil, ErrCouponExhausted
	}
	if c.IsExpired(now) {
		return nil, ErrCouponExpired
	}

	exists, err := s.store.HasActiveSubscription(ctx, email)
	if err != nil {
		s.log.ErrorContext(ctx, "subscription pre-check failed", "error", err)
		return nil, ErrRedemptionFailed
	}
	if exists {
		return nil, ErrDuplicateSubscription
	}

	nextBilling := now.AddDate(0, 1, 0)
	outcome, err := s.store.CreateRedemption(ctx, CreateRedemptionParams{
		CouponID:              c.ID,
		CouponCode:            code,
		Email:                 email,
		PlanType:              PlanPro,
		PriceCents:            0, // month 1 is free
		NextBillingDate:       nextBilling,
		NextChargeDate:        nextBilling,
		NextChargeAmountCents: s.cfg.PromoPriceCents,
		Month3PriceCents:      s.cfg.FullPriceCents,
	})
	if err != nil {
		// The partial unique index catches the race the pre-check can miss.
		if errors.Is(err, ErrDuplicateSubscription) {
			return nil, ErrDuplicateSubscription
		}
		if errors.Is(err, ErrCouponExhausted) {
			return nil, ErrCouponExhausted
		}
		s.log.ErrorContext(ctx, "redemption transaction failed", "code", code, "error", err)
		return nil, ErrRedemptionFailed
	}

	s.log.InfoContext(ctx, "coupon redeemed",
		"coupon", code,
		"subscription_id", outcome.SubscriptionID,
	)

	return &RedemptionResult{
		SubscriptionID: outcome.SubscriptionID,
		ExpiresAt:      nextBilling,
	}, nil
}
