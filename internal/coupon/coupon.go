// Package coupon holds promotional coupon definitions and their usage
// accounting. Redemption itself lives in the billing package, which owns
// the cross-table invariant between coupons, subscriptions, and the
// redemption ledger.
package coupon

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/commtype/api/pkg/validator"
)

var (
	ErrNotFound     = errors.New("coupon not found")
	ErrInvalidInput = errors.New("invalid coupon input")
)

// DiscountType describes how a coupon discounts the subscription.
type DiscountType string

const (
	DiscountFreeMonth DiscountType = "free_month"
	DiscountPercent   DiscountType = "percent"
)

// Coupon is a promotional code with a usage cap.
// Invariant: CurrentUses never exceeds MaxUses.
type Coupon struct {
	ID           uuid.UUID
	Code         string // Stored upper-case; lookups normalize before matching
	DiscountType DiscountType
	MaxUses      int
	CurrentUses  int
	Active       bool
	ExpiresAt    *time.Time
	CreatedAt    time.Time
}

// IsExhausted reports whether the usage cap has been reached.
func (c *Coupon) IsExhausted() bool {
	return c.CurrentUses >= c.MaxUses
}

// IsExpired reports whether the coupon's optional expiry has passed.
func (c *Coupon) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// NormalizeCode upper-cases and trims a code the way it is stored.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Input is one coupon definition in a bulk creation request.
type Input struct {
	Code         string       `json:"code"`
	DiscountType DiscountType `json:"discount_type"`
	MaxUses      int          `json:"max_uses"`
	Active       bool         `json:"active"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
}

// Validate checks a single bulk-creation entry.
func (in Input) Validate() error {
	return validator.Apply(
		validator.Required("code", in.Code),
		validator.MinLen("code", strings.TrimSpace(in.Code), 3),
		validator.MaxLen("code", in.Code, 64),
		validator.InList("discount_type", in.DiscountType, []DiscountType{DiscountFreeMonth, DiscountPercent}),
		validator.Between("max_uses", in.MaxUses, 1, 1_000_000),
	)
}
