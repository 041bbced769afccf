package billing

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commtype/api/internal/coupon"
	"github.com/commtype/api/pkg/pg"
)

// Store is the Postgres implementation of RedemptionStore, WebhookStore,
// and CustomerLookup.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) GetActiveCouponByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, code, discount_type, max_uses, current_uses, active, expires_at, created_at
		FROM coupons
		WHERE code = $1 AND active = true`,
		coupon.NormalizeCode(code),
	)

	var c coupon.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.DiscountType, &c.MaxUses, &c.CurrentUses, &c.Active, &c.ExpiresAt, &c.CreatedAt)
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, coupon.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) HasActiveSubscription(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions WHERE email = $1 AND status = 'active'
		)`,
		NormalizeEmail(email),
	).Scan(&exists)
	return exists, err
}

// CreateRedemption performs the three redemption writes in one
// transaction. The coupon row is locked and its counter re-checked under
// the lock, so two concurrent redemptions of the last use cannot both
// succeed; the partial unique index on active subscriptions likewise turns
// a duplicate-email race into ErrDuplicateSubscription.
func (s *Store) CreateRedemption(ctx context.Context, params CreateRedemptionParams) (*RedemptionOutcome, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var currentUses, maxUses int
	err = tx.QueryRow(ctx, `
		SELECT current_uses, max_uses FROM coupons
		WHERE id = $1 AND active = true
		FOR UPDATE`,
		params.CouponID,
	).Scan(&currentUses, &maxUses)
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, ErrInvalidCoupon
		}
		return nil, err
	}
	if currentUses >= maxUses {
		return nil, ErrCouponExhausted
	}

	var outcome RedemptionOutcome
	err = tx.QueryRow(ctx, `
		INSERT INTO subscriptions (email, plan_type, status, current_price_cents, next_billing_date, coupon_used)
		VALUES ($1, $2, 'active', $3, $4, $5)
		RETURNING id`,
		params.Email, params.PlanType, params.PriceCents, params.NextBillingDate, params.CouponCode,
	).Scan(&outcome.SubscriptionID)
	if err != nil {
		if pg.IsDuplicateKey(err) {
			return nil, ErrDuplicateSubscription
		}
		return nil, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO coupon_redemptions (coupon_id, subscription_id, month_1_free, current_month, next_charge_date, next_charge_amount_cents, month_3_price_cents)
		VALUES ($1, $2, true, 1, $3, $4, $5)
		RETURNING id`,
		params.CouponID, outcome.SubscriptionID, params.NextChargeDate, params.NextChargeAmountCents, params.Month3PriceCents,
	).Scan(&outcome.RedemptionID)
	if err != nil {
		return nil, err
	}

	if err := coupon.IncrementUses(ctx, tx, params.CouponID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &outcome, nil
}

func (s *Store) FindProviderCustomerID(ctx context.Context, email string) (string, error) {
	var customerID *string
	err := s.pool.QueryRow(ctx, `
		SELECT provider_customer_id FROM subscriptions
		WHERE email = $1 AND provider_customer_id IS NOT NULL
		ORDER BY created_at DESC
		LIMIT 1`,
		NormalizeEmail(email),
	).Scan(&customerID)
	if err != nil {
		if pg.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	if customerID == nil {
		return "", nil
	}
	return *customerID, nil
}

// CreateFromCheckout inserts a webhook-reported subscription. Conflict on
// the provider subscription ID means a redelivered event; that insert is
// silently skipped.
func (s *Store) CreateFromCheckout(ctx context.Context, sub Subscription) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscriptions (email, plan_type, status, current_price_cents, next_billing_date, provider_customer_id, provider_subscription_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider_subscription_id) WHERE provider_subscription_id IS NOT NULL DO NOTHING`,
		sub.Email, sub.PlanType, sub.Status, sub.CurrentPriceCents, sub.NextBillingDate, sub.ProviderCustomerID, sub.ProviderSubID,
	)
	if err != nil && pg.IsDuplicateKey(err) {
		// The active-email index can still fire when the customer already
		// holds an active subscription; treat redelivery the same way.
		return nil
	}
	return err
}

func (s *Store) UpdateStatusByProviderSubID(ctx context.Context, providerSubID string, status Status) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE subscriptions SET status = $2, updated_at = now()
		WHERE provider_subscription_id = $1`,
		providerSubID, status,
	)
	return err
}

func (s *Store) RecordPurchase(ctx context.Context, p Purchase) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO purchases (email, provider_transaction_id, provider_subscription_id, plan_type, amount_cents)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider_transaction_id) DO NOTHING`,
		p.Email, p.ProviderTransactionID, p.ProviderSubID, p.PlanType, p.AmountCents,
	)
	return err
}

var _ RedemptionStore = (*Store)(nil)
var _ WebhookStore = (*Store)(nil)
var _ CustomerLookup = (*Store)(nil)
