// Package billing covers everything that turns a visitor into a paying
// customer: coupon redemption, hosted Paddle checkout, and the webhook
// receiver that reflects provider-confirmed state back into the
// subscription store.
package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PlanType identifies the product tier a subscription grants.
type PlanType string

const (
	PlanFree PlanType = "free"
	PlanPro  PlanType = "pro"
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Subscription is one customer's subscription, keyed by email.
// At most one active subscription may exist per email; the store enforces
// this with a partial unique index and the redemption service pre-checks it
// for a friendlier error.
type Subscription struct {
	ID                 uuid.UUID
	Email              string // lower-cased
	PlanType           PlanType
	Status             Status
	CurrentPriceCents  int64
	NextBillingDate    time.Time
	CouponUsed         *string
	ProviderCustomerID *string
	ProviderSubID      *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Redemption is the ledger entry written once per successful coupon
// redemption. It snapshots the 3-month step-up schedule: month 1 free,
// month 2 at the promotional rate, month 3 onward at full price.
// Never mutated after creation.
type Redemption struct {
	ID                    uuid.UUID
	CouponID              uuid.UUID
	SubscriptionID        uuid.UUID
	Month1Free            bool
	CurrentMonth          int
	NextChargeDate        time.Time
	NextChargeAmountCents int64
	Month3PriceCents      int64
	CreatedAt             time.Time
}

// Purchase records a completed checkout reported by the payment provider.
type Purchase struct {
	ID                    uuid.UUID
	Email                 string
	ProviderTransactionID string
	ProviderSubID         string
	PlanType              PlanType
	AmountCents           int64
	CreatedAt             time.Time
}

// NormalizeEmail lower-cases and trims an email the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Config carries the pricing knobs for coupon-redeemed subscriptions.
type Config struct {
	PromoPriceCents int64 `env:"REDEMPTION_PROMO_PRICE_CENTS" envDefault:"499"`
	FullPriceCents  int64 `env:"REDEMPTION_FULL_PRICE_CENTS" envDefault:"999"`
}
