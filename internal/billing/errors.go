package billing

import "errors"

var (
	// Business-rule violations, safe to show to the caller.
	ErrInvalidCoupon         = errors.New("coupon code is invalid or inactive")
	ErrCouponExhausted       = errors.New("coupon has reached its usage limit")
	ErrCouponExpired         = errors.New("coupon has expired")
	ErrDuplicateSubscription = errors.New("an active subscription already exists for this email")

	// ErrRedemptionFailed covers lookup/write failures. Deliberately
	// generic so callers can distinguish "your input is bad" from
	// "the system failed" without seeing internals.
	ErrRedemptionFailed = errors.New("coupon redemption failed")

	ErrInvalidRequest = errors.New("email and price id are required")

	ErrCheckoutFailed       = errors.New("failed to create checkout session")
	ErrWebhookVerification  = errors.New("webhook signature verification failed")
	ErrWebhookProcessing    = errors.New("webhook processing failed")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)
