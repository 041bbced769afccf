package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/commtype/api/internal/billing"
	"github.com/commtype/api/internal/coupon"
)

type mockRedemptionStore struct {
	mock.Mock
}

func (m *mockRedemptionStore) GetActiveCouponByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coupon.Coupon), args.Error(1)
}

func (m *mockRedemptionStore) HasActiveSubscription(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockRedemptionStore) CreateRedemption(ctx context.Context, params billing.CreateRedemptionParams) (*billing.RedemptionOutcome, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.RedemptionOutcome), args.Error(1)
}

func testCoupon() *coupon.Coupon {
	return &coupon.Coupon{
		ID:           uuid.New(),
		Code:         "LAUNCH50",
		DiscountType: coupon.DiscountFreeMonth,
		MaxUses:      100,
		CurrentUses:  10,
		Active:       true,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRedemptionService_Redeem(t *testing.T) {
	t.Parallel()

	cfg := billing.Config{PromoPriceCents: 499, FullPriceCents: 999}
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	t.Run("successful redemption", func(t *testing.T) {
		t.Parallel()

		c := testCoupon()
		subID := uuid.New()
		store := &mockRedemptionStore{}
		store.On("GetActiveCouponByCode", mock.Anything, "LAUNCH50").Return(c, nil)
		store.On("HasActiveSubscription", mock.Anything, "user@example.com").Return(false, nil)
		store.On("CreateRedemption", mock.Anything, mock.MatchedBy(func(p billing.CreateRedemptionParams) bool {
			return p.CouponID == c.ID &&
				p.Email == "user@example.com" &&
				p.PlanType == billing.PlanPro &&
				p.PriceCents == 0 &&
				p.NextBillingDate.Equal(now.AddDate(0, 1, 0)) &&
				p.NextChargeAmountCents == 499 &&
				p.Month3PriceCents == 999
		})).Return(&billing.RedemptionOutcome{SubscriptionID: subID, RedemptionID: uuid.New()}, nil)

		svc := billing.NewRedemptionService(store, cfg, nil, billing.WithClock(fixedClock(now)))

		result, err := svc.Redeem(context.Background(), "User@Example.com", "launch50")
		require.NoError(t, err)
		assert.Equal(t, subID, result.SubscriptionID)
		assert.Equal(t, now.AddDate(0, 1, 0), result.ExpiresAt)

		store.AssertExpectations(t)
	})

	t.Run("unknown code", func(t *testing.T) {
		t.Parallel()

		store := &mockRedemptionStore{}
		store.On("GetActiveCouponByCode", mock.Anything, "NOPE").Return(nil, coupon.ErrNotFound)

		svc := billing.NewRedemptionService(store, cfg, nil, billing.WithClock(fixedClock(now)))

		_, err := svc.Redeem(context.Background(), "user@example.com", "nope")
		assert.ErrorIs(t, err, billing.ErrInvalidCoupon)

		store.AssertNotCalled(t, "CreateRedemption", mock.Anything, mock.Anything)
	})

	t.Run("exhausted coupon", func(t *testing.T) {
		t.Parallel()

		c := testCoupon()
		c.CurrentUses = c.MaxUses
		store := &mockRedemptionStore{}
		store.On("GetActiveCouponByCode", mock.Anything, "LAUNCH50").Return(c, nil)

		svc := billing.NewRedemptionService(store, cfg, nil, billing.WithClock(fixedClock(now)))

		_, err := svc.Redeem(context.Background(), "user@example.com", "LAUNCH50")
		assert.ErrorIs(t, err, billing.ErrCouponExhausted)

		store.AssertNotCalled(t, "CreateRedemption", mock.Anything, mock.Anything)
	})

	t.Run("expired coupon", func(t *testing.T) {
		t.Parallel()

		c := testCoupon()
		expiry := now.Add(-time.Hour)
		c.ExpiresAt = &expiry
		store := &mockRedemptionStore{}
		store.On("GetActiveCouponByCode", mock.Anything, "LAUNCH50").Return(c, nil)

		svc := billing.NewRedemptionService(store, cfg, nil, billing.WithClock(fixedClock(now)))

		_, err := svc.Redeem(context.Background(), "user@example.com", "LAUNCH50")
		assert.ErrorIs(t, err, billing.ErrCouponExpired)

		store.AssertNotCalled(t, "CreateRedemption", mock.Anything, mock.Anything)
	})

	t.Run("duplicate active subscription leaves coupon untouched", func(t *testing.T) {
		t.Parallel()

		c := testCoupon()
		store := &mockRedemptionStore{}
		store.On("GetActiveCouponByCode", mock.Anything, "LAUNCH50").Return(c, nil)
		store.On("HasActiveSubscription", mock.Anything, "user@example.com").Return(true, nil)

		svc := billing.NewRedemptionService(store, cfg, nil, billing.WithClock(fixedClock(now)))

		_, err := svc.Redeem(context.Background(), "user@example.com", "LAUNCH50")
		assert.ErrorIs(t, err, billing.ErrDuplicateSubscription)

		store.AssertNotCalled(t, "CreateRedemption", mock.Anything, mock.Anything)
	})

	t.Run("duplicate race caught by the store", func(t *testing.T) {
		t.Parallel()

		c := testCoupon()
		store := &mockRedemptionStore{}
		store.On("GetActiveCouponByCode", mock.Anything, "LAUNCH50").Return(c, nil)
		store.On("HasActiveSubscription", mock.Anything, "user@example.com").Return(false, nil)
		store.On("CreateRedemption", mock.Anything, mock.Anything).Return(nil, billing.ErrDuplicateSubscription)

		svc := billing.NewRedemptionService(store, cfg, nil, billing.WithClock(fixedClock(now)))

		_, err := svc.Redeem(context.Background(), "user@example.com", "LAUNCH50")
		assert.ErrorIs(t, err, billing.ErrDuplicateSubscription)
	})

	t.Run("storage failure collapses to redemption failed", func(t *testing.T) {
		t.Parallel()

		c := testCoupon()
		store := &mockRedemptionStore{}
		store.On("GetActiveCouponByCode", mock.Anything, "LAUNCH50").Return(c, nil)
		store.On("HasActiveSubscription", mock.Anything, "user@example.com").Return(false, nil)
		store.On("CreateRedemption", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

		svc := billing.NewRedemptionService(store, cfg, nil, billing.WithClock(fixedClock(now)))

		_, err := svc.Redeem(context.Background(), "user@example.com", "LAUNCH50")
		assert.ErrorIs(t, err, billing.ErrRedemptionFailed)
	})

	t.Run("lookup failure collapses to redemption failed", func(t *testing.T) {
		t.Parallel()

		store := &mockRedemptionStore{}
		store.On("GetActiveCouponByCode", mock.Anything, "LAUNCH50").Return(nil, errors.New("timeout"))

		svc := billing.NewRedemptionService(store, cfg, nil, billing.WithClock(fixedClock(now)))

		_, err := svc.Redeem(context.Background(), "user@example.com", "LAUNCH50")
		assert.ErrorIs(t, err, billing.ErrRedemptionFailed)
		assert.NotErrorIs(t, err, billing.ErrInvalidCoupon)
	})
}
