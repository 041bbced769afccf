package billing

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// WebhookParser verifies and parses a signed provider event.
// Implemented by PaddleProvider.
type WebhookParser interface {
	ParseWebhookRequest(r *http.Request) (*WebhookEvent, error)
}

// WebhookStore is the persistence contract for webhook-driven mutations.
// All three operations must be idempotent: the provider delivers
// at-least-once and will redeliver on slow responses.
type WebhookStore interface {
	// CreateFromCheckout inserts a subscription for a completed checkout.
	// Repeated delivery of the same provider subscription ID is a no-op.
	CreateFromCheckout(ctx context.Context, sub Subscription) error

	// UpdateStatusByProviderSubID sets the status of the subscription
	// matching the provider's subscription ID. Unknown IDs are not an
	// error; the event may precede the checkout insert.
	UpdateStatusByProviderSubID(ctx context.Context, providerSubID string, status Status) error

	// RecordPurchase inserts a purchase row, deduplicated by provider
	// transaction ID.
	RecordPurchase(ctx context.Context, p Purchase) error
}

// WebhookReceiver consumes asynchronous payment-provider events.
type WebhookReceiver struct {
	parser WebhookParser
	store  WebhookStore
	log    *slog.Logger
	now    func() time.Time
}

func NewWebhookReceiver(parser WebhookParser, store WebhookStore, log *slog.Logger) *WebhookReceiver {
	if parser == nil {
		panic("billing: webhook parser is required")
	}
	if store == nil {
		panic("billing: webhook store is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &WebhookReceiver{parser: parser, store: store, log: log, now: time.Now}
}

// Handle verifies the request signature and applies the event. Signature
// failures return ErrWebhookVerification without touching storage.
// Unrecognized event types are accepted and ignored.
func (w *WebhookReceiver) Handle(ctx context.Context, r *http.Request) error {
	event, err := w.parser.ParseWebhookRequest(r)
	if err != nil {
		w.log.WarnContext(ctx, "webhook rejected", "error", err)
		return err
	}

	switch event.Type {
	case EventCheckoutCompleted:
		return w.handleCheckoutCompleted(ctx, event)
	case EventSubscriptionUpdated:
		return w.updateStatus(ctx, event)
	case EventSubscriptionDeleted:
		return w.setStatus(ctx, event.SubscriptionID, StatusCancelled, event.ProviderEvent)
	default:
		w.log.DebugContext(ctx, "webhook event ignored", "provider_event", event.ProviderEvent)
		return nil
	}
}

func (w *WebhookReceiver) handleCheckoutCompleted(ctx context.Context, event *WebhookEvent) error {
	now := w.now().UTC()
	email := NormalizeEmail(event.Email)

	// The plan rides in the transaction custom data set at checkout time.
	// Events without one predate the plan tag and were all pro checkouts.
	plan := event.Plan
	if plan == "" {
		plan = PlanPro
	}

	sub := Subscription{
		Email:             email,
		PlanType:          plan,
		Status:            StatusActive,
		CurrentPriceCents: event.AmountCents,
		NextBillingDate:   now.AddDate(0, 1, 0),
	}
	if event.CustomerID != "" {
		sub.ProviderCustomerID = &event.CustomerID
	}
	if event.SubscriptionID != "" {
		sub.ProviderSubID = &event.SubscriptionID
	}

	if err := w.store.CreateFromCheckout(ctx, sub); err != nil {
		w.log.ErrorContext(ctx, "failed to create subscription from checkout",
			"transaction_id", event.TransactionID, "error", err)
		return ErrWebhookProcessing
	}

	if event.TransactionID != "" {
		err := w.store.RecordPurchase(ctx, Purchase{
			Email:                 email,
			ProviderTransactionID: event.TransactionID,
			ProviderSubID:         event.SubscriptionID,
			PlanType:              plan,
			AmountCents:           event.AmountCents,
		})
		if err != nil {
			// The subscription is in place; a lost purchase row is a
			// reporting gap, not a customer-facing failure.
			w.log.ErrorContext(ctx, "failed to record purchase",
				"transaction_id", event.TransactionID, "error", err)
		}
	}

	w.log.InfoContext(ctx, "checkout completed", "transaction_id", event.TransactionID)
	return nil
}

func (w *WebhookReceiver) updateStatus(ctx context.Context, event *WebhookEvent) error {
	return w.setStatus(ctx, event.SubscriptionID, mapProviderStatus(event.Status), event.ProviderEvent)
}

func (w *WebhookReceiver) setStatus(ctx context.Context, providerSubID string, status Status, providerEvent string) error {
	if providerSubID == "" {
		w.log.WarnContext(ctx, "webhook event without subscription id", "provider_event", providerEvent)
		return nil
	}

	if err := w.store.UpdateStatusByProviderSubID(ctx, providerSubID, status); err != nil {
		w.log.ErrorContext(ctx, "failed to update subscription status",
			"provider_sub_id", providerSubID, "status", status, "error", err)
		return ErrWebhookProcessing
	}

	w.log.InfoContext(ctx, "subscription status updated",
		"provider_sub_id", providerSubID, "status", status)
	return nil
}
