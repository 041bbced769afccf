// Package api wires the HTTP surface: routing, CORS, request logging, and
// the JSON handlers over the domain services.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/commtype/api/internal/billing"
	"github.com/commtype/api/internal/coupon"
	"github.com/commtype/api/internal/progress"
	"github.com/commtype/api/internal/review"
	"github.com/commtype/api/internal/support"
	"github.com/commtype/api/pkg/httpserver"
)

// Service contracts consumed by the handlers. Satisfied by the concrete
// services; narrowed here so handler tests can mock them.
type (
	RedemptionService interface {
		Redeem(ctx context.Context, email, couponCode string) (*billing.RedemptionResult, error)
	}

	CheckoutService interface {
		CreateSession(ctx context.Context, email, priceID, origin string) (string, error)
	}

	WebhookReceiver interface {
		Handle(ctx context.Context, r *http.Request) error
	}

	CouponService interface {
		BulkCreate(ctx context.Context, inputs []coupon.Input) ([]coupon.Coupon, error)
	}

	SupportService interface {
		Submit(ctx context.Context, req support.SubmitRequest, clientIP, userAgent string) (uuid.UUID, error)
	}

	ProgressService interface {
		Save(ctx context.Context, req progress.SaveRequest) error
		Get(ctx context.Context, email string) (*progress.TestProgress, error)
	}

	ReviewService interface {
		Create(ctx context.Context, req review.CreateRequest) (uuid.UUID, error)
		ListApproved(ctx context.Context, limit int) ([]review.Review, error)
	}
)

// Deps bundles everything the router needs.
type Deps struct {
	Redemption RedemptionService
	Checkout   CheckoutService
	Webhooks   WebhookReceiver
	Coupons    CouponService
	Support    SupportService
	Progress   ProgressService
	Reviews    ReviewService

	HealthChecks []httpserver.HealthCheck
	Log          *slog.Logger
}

// NewRouter builds the chi router with permissive CORS for the browser
// front-end and the webhook endpoint's signature header.
func NewRouter(deps Deps) http.Handler {
	log := deps.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Paddle-Signature"},
		MaxAge:         300,
	}))

	h := &handlers{deps: deps, log: log}

	r.Route("/api", func(r chi.Router) {
		r.Post("/redeem-coupon", h.redeemCoupon)
		r.Post("/create-checkout", h.createCheckout)
		r.Post("/coupons/bulk", h.bulkCreateCoupons)
		r.Post("/webhooks/paddle", h.paddleWebhook)
		r.Post("/support", h.submitSupport)
		r.Post("/progress", h.saveProgress)
		r.Get("/progress", h.getProgress)
		r.Post("/reviews", h.createReview)
		r.Get("/reviews", h.listReviews)
	})

	r.Get("/healthz", httpserver.HealthHandler(deps.HealthChecks...))

	return r
}

type handlers struct {
	deps Deps
	log  *slog.Logger
}

// requestLogger logs each request with method, path, status, and duration.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
