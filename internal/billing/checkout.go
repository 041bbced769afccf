package billing

import (
	"context"
	"log/slog"
	"strings"
)

// CheckoutProvider creates hosted checkout sessions. Implemented by
// PaddleProvider.
type CheckoutProvider interface {
	CreateCheckout(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
}

// CustomerLookup resolves a known provider customer ID for an email.
// Returns "" when the email has never gone through a checkout before.
type CustomerLookup interface {
	FindProviderCustomerID(ctx context.Context, email string) (string, error)
}

// CheckoutService prepares hosted payment sessions. All business state
// change happens later through the webhook receiver; this service only
// hands the customer to the provider.
type CheckoutService struct {
	provider  CheckoutProvider
	customers CustomerLookup
	log       *slog.Logger
}

func NewCheckoutService(provider CheckoutProvider, customers CustomerLookup, log *slog.Logger) *CheckoutService {
	if provider == nil {
		panic("billing: checkout provider is required")
	}
	if customers == nil {
		panic("billing: customer lookup is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &CheckoutService{provider: provider, customers: customers, log: log}
}

// CreateSession creates a checkout for priceID and returns the hosted URL.
// origin is the scheme+host of the caller, used for the success redirect.
func (s *CheckoutService) CreateSession(ctx context.Context, email, priceID, origin string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" || priceID == "" {
		return "", ErrInvalidRequest
	}

	// A returning customer gets attached to their existing provider
	// record instead of creating a duplicate keyed by email.
	customerID, err := s.customers.FindProviderCustomerID(ctx, email)
	if err != nil {
		s.log.ErrorContext(ctx, "provider customer lookup failed", "error", err)
		return "", ErrCheckoutFailed
	}

	session, err := s.provider.CreateCheckout(ctx, CheckoutParams{
		PriceID:            priceID,
		Email:              email,
		PlanType:           PlanPro,
		ProviderCustomerID: customerID,
		SuccessURL:         successURL(origin),
	})
	if err != nil {
		s.log.ErrorContext(ctx, "checkout session creation failed", "price_id", priceID, "error", err)
		return "", ErrCheckoutFailed
	}

	s.log.InfoContext(ctx, "checkout session created", "session_id", session.SessionID)
	return session.URL, nil
}

func successURL(origin string) string {
	if origin == "" {
		return ""
	}
	return strings.TrimSuffix(origin, "/") + "/checkout/success"
}
