package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds Paddle credentials.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleProvider talks to Paddle for hosted checkouts and verifies inbound
// webhook signatures.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
}

// NewPaddleProvider creates the provider, selecting the sandbox or
// production API by configuration.
func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("paddle API key is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, errors.New("paddle webhook secret is required")
	}

	var client *paddle.SDK
	var err error
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("invalid paddle environment: %s", cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
	}, nil
}

// CheckoutParams describes a checkout session to create.
type CheckoutParams struct {
	PriceID            string
	Email              string
	PlanType           PlanType
	ProviderCustomerID string // Paddle customer ID when the email is already known to Paddle
	SuccessURL         string
}

// CheckoutSession is the hosted checkout the customer is redirected to.
type CheckoutSession struct {
	URL       string
	SessionID string
	ExpiresAt time.Time
}

// CreateCheckout creates a Paddle transaction for one catalog price and
// returns its hosted checkout URL. The customer identity rides in the
// transaction custom data; Paddle resolves or creates the customer at
// checkout time and reports it back through the webhook.
func (p *PaddleProvider) CreateCheckout(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	if params.PriceID == "" {
		return nil, errors.New("price ID is required")
	}
	if params.Email == "" {
		return nil, errors.New("email is required")
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  params.PriceID,
		Quantity: 1,
	})

	req := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"email": params.Email,
		},
	}
	if params.PlanType != "" {
		// The webhook reads the plan back from here when the transaction
		// completes.
		req.CustomData["plan"] = string(params.PlanType)
	}
	if params.ProviderCustomerID != "" {
		req.CustomData["customer_id"] = params.ProviderCustomerID
	}
	if params.SuccessURL != "" {
		req.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(params.SuccessURL),
		}
	}

	txn, err := p.client.TransactionsClient.CreateTransaction(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle transaction: %w", err)
	}

	if txn.Checkout == nil || txn.Checkout.URL == nil || *txn.Checkout.URL == "" {
		return nil, errors.New("no checkout URL returned from paddle")
	}

	return &CheckoutSession{
		URL:       *txn.Checkout.URL,
		SessionID: txn.ID,
		// Paddle checkout links expire after roughly a day.
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

// EventType is the normalized webhook event type.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout_completed"
	EventSubscriptionUpdated EventType = "subscription_updated"
	EventSubscriptionDeleted EventType = "subscription_deleted"
	EventIgnored             EventType = "ignored"
)

// WebhookEvent is a verified, parsed provider event.
type WebhookEvent struct {
	Type           EventType
	ProviderEvent  string
	TransactionID  string
	SubscriptionID string
	CustomerID     string
	Email          string
	Plan           PlanType
	PriceID        string
	Status         string
	AmountCents    int64
}

// ParseWebhookRequest verifies the Paddle-Signature header against the
// shared secret and extracts the fields the receiver acts on. Verification
// failure is reported before any payload inspection.
func (p *PaddleProvider) ParseWebhookRequest(r *http.Request) (*WebhookEvent, error) {
	valid, err := p.verifier.Verify(r)
	if err != nil {
		return nil, errors.Join(ErrWebhookVerification, err)
	}
	if !valid {
		return nil, ErrWebhookVerification
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook body: %w", err)
	}

	var raw struct {
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	event := &WebhookEvent{
		Type:          mapPaddleEventType(raw.EventType),
		ProviderEvent: raw.EventType,
	}

	if id, ok := raw.Data["id"].(string); ok {
		if strings.HasPrefix(raw.EventType, "transaction.") {
			event.TransactionID = id
		} else {
			event.SubscriptionID = id
		}
	}
	if subID, ok := raw.Data["subscription_id"].(string); ok {
		event.SubscriptionID = subID
	}
	if custID, ok := raw.Data["customer_id"].(string); ok {
		event.CustomerID = custID
	}
	if status, ok := raw.Data["status"].(string); ok {
		event.Status = status
	}
	if custom, ok := raw.Data["custom_data"].(map[string]any); ok {
		if email, ok := custom["email"].(string); ok {
			event.Email = email
		}
		if plan, ok := custom["plan"].(string); ok {
			event.Plan = mapProviderPlan(plan)
		}
	}
	if items, ok := raw.Data["items"].([]any); ok && len(items) > 0 {
		if item, ok := items[0].(map[string]any); ok {
			if priceID, ok := item["price_id"].(string); ok {
				event.PriceID = priceID
			} else if price, ok := item["price"].(map[string]any); ok {
				if priceID, ok := price["id"].(string); ok {
					event.PriceID = priceID
				}
			}
		}
	}
	if details, ok := raw.Data["details"].(map[string]any); ok {
		if totals, ok := details["totals"].(map[string]any); ok {
			if grand, ok := totals["grand_total"].(string); ok {
				event.AmountCents = parseCents(grand)
			}
		}
	}

	return event, nil
}

// mapPaddleEventType folds provider event names into the handful the
// receiver distinguishes; everything else is an accepted no-op.
func mapPaddleEventType(providerEvent string) EventType {
	switch providerEvent {
	case "transaction.completed":
		return EventCheckoutCompleted
	case "subscription.updated":
		return EventSubscriptionUpdated
	case "subscription.canceled", "subscription.cancelled":
		return EventSubscriptionDeleted
	default:
		return EventIgnored
	}
}

// mapProviderPlan folds the plan carried in transaction custom data into a
// known tier. Unknown values come back empty so the receiver can apply its
// own default.
func mapProviderPlan(plan string) PlanType {
	switch PlanType(strings.ToLower(plan)) {
	case PlanFree:
		return PlanFree
	case PlanPro:
		return PlanPro
	default:
		return ""
	}
}

// mapProviderStatus folds Paddle subscription statuses into ours.
func mapProviderStatus(providerStatus string) Status {
	switch strings.ToLower(providerStatus) {
	case "active", "trialing":
		return StatusActive
	case "canceled", "cancelled":
		return StatusCancelled
	default:
		return StatusExpired
	}
}

// parseCents parses Paddle's string-encoded integer amounts ("1299").
func parseCents(s string) int64 {
	var cents int64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		cents = cents*10 + int64(r-'0')
	}
	return cents
}
