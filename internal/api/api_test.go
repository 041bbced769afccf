package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/commtype/api/internal/api"
	"github.com/commtype/api/internal/billing"
	"github.com/commtype/api/internal/coupon"
	"github.com/commtype/api/internal/progress"
	"github.com/commtype/api/internal/review"
	"github.com/commtype/api/internal/support"
)

type mockRedemption struct{ mock.Mock }

func (m *mockRedemption) Redeem(ctx context.Context, email, code string) (*billing.RedemptionResult, error) {
	args := m.Called(ctx, email, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.RedemptionResult), args.Error(1)
}

type mockCheckout struct{ mock.Mock }

func (m *mockCheckout) CreateSession(ctx context.Context, email, priceID, origin string) (string, error) {
	args := m.Called(ctx, email, priceID, origin)
	return args.String(0), args.Error(1)
}

type mockWebhooks struct{ mock.Mock }

func (m *mockWebhooks) Handle(ctx context.Context, r *http.Request) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

type mockCoupons struct{ mock.Mock }

func (m *mockCoupons) BulkCreate(ctx context.Context, inputs []coupon.Input) ([]coupon.Coupon, error) {
	args := m.Called(ctx, inputs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]coupon.Coupon), args.Error(1)
}

type mockSupport struct{ mock.Mock }

func (m *mockSupport) Submit(ctx context.Context, req support.SubmitRequest, clientIP, userAgent string) (uuid.UUID, error) {
	args := m.Called(ctx, req, clientIP, userAgent)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type mockProgress struct{ mock.Mock }

func (m *mockProgress) Save(ctx context.Context, req progress.SaveRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *mockProgress) Get(ctx context.Context, email string) (*progress.TestProgress, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*progress.TestProgress), args.Error(1)
}

type mockReviews struct{ mock.Mock }

func (m *mockReviews) Create(ctx context.Context, req review.CreateRequest) (uuid.UUID, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockReviews) ListApproved(ctx context.Context, limit int) ([]review.Review, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]review.Review), args.Error(1)
}

type testDeps struct {
	redemption *mockRedemption
	checkout   *mockCheckout
	webhooks   *mockWebhooks
	coupons    *mockCoupons
	support    *mockSupport
	progress   *mockProgress
	reviews    *mockReviews
	router     http.Handler
}

func newTestDeps() *testDeps {
	d := &testDeps{
		redemption: &mockRedemption{},
		checkout:   &mockCheckout{},
		webhooks:   &mockWebhooks{},
		coupons:    &mockCoupons{},
		support:    &mockSupport{},
		progress:   &mockProgress{},
		reviews:    &mockReviews{},
	}
	d.router = api.NewRouter(api.Deps{
		Redemption: d.redemption,
		Checkout:   d.checkout,
		Webhooks:   d.webhooks,
		Coupons:    d.coupons,
		Support:    d.support,
		Progress:   d.progress,
		Reviews:    d.reviews,
	})
	return d
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRedeemCoupon(t *testing.T) {
	t.Parallel()

	t.Run("success envelope", func(t *testing.T) {
		t.Parallel()

		d := newTestDeps()
		subID := uuid.New()
		expires := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
		d.redemption.On("Redeem", mock.Anything, "user@example.com", "LAUNCH50").
			Return(&billing.RedemptionResult{SubscriptionID: subID, ExpiresAt: expires}, nil)

		rec := doJSON(t, d.router, http.MethodPost, "/api/redeem-coupon",
			`{"email":"user@example.com","coupon_code":"LAUNCH50"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, subID.String(), body["subscription_id"])
	})

	t.Run("business errors are 400", func(t *testing.T) {
		t.Parallel()

		d := newTestDeps()
		d.redemption.On("Redeem", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, billing.ErrCouponExhausted)

		rec := doJSON(t, d.router, http.MethodPost, "/api/redeem-coupon",
			`{"email":"user@example.com","coupon_code":"GONE"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["error"], "usage limit")
	})

	t.Run("system failure is 500", func(t *testing.T) {
		t.Parallel()

		d := newTestDeps()
		d.redemption.On("Redeem", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, billing.ErrRedemptionFailed)

		rec := doJSON(t, d.router, http.MethodPost, "/api/redeem-coupon",
			`{"email":"user@example.com","coupon_code":"X"}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		t.Parallel()

		d := newTestDeps()
		rec := doJSON(t, d.router, http.MethodPost, "/api/redeem-coupon", `{"email":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCreateCheckout(t *testing.T) {
	t.Parallel()

	t.Run("returns checkout url", func(t *testing.T) {
		t.Parallel()

		d := newTestDeps()
		d.checkout.On("CreateSession", mock.Anything, "user@example.com", "pri_1", "").
			Return("https://pay.paddle.com/c/1", nil)

		rec := doJSON(t, d.router, http.MethodPost, "/api/create-checkout",
			`{"email":"user@example.com","price_id":"pri_1"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://pay.paddle.com/c/1", decodeBody(t, rec)["url"])
	})

	t.Run("provider failure is 500", func(t *testing.T) {
		t.Parallel()

		d := newTestDeps()
		d.checkout.On("CreateSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", billing.ErrCheckoutFailed)

		rec := doJSON(t, d.router, http.MethodPost, "/api/create-checkout",
			`{"email":"user@example.com","price_id":"pri_1"}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("missing fields are 400", func(t *testing.T) {
		t.Parallel()

		d := newTestDeps()
		d.checkout.On("CreateSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", billing.ErrInvalidRequest)

		rec := doJSON(t, d.router, http.MethodPost, "/api/create-checkout", `{"email":""}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBulkCreateCoupons(t *testing.T) {
	t.Parallel()

	t.Run("reports created count", func(t *testing.T) {
		t.Parallel()

		d := newTestDeps()
		d.coupons.On("BulkCreate", mock.Anything, mock.Anything).Return([]coupon.Coupon{
			{Code: "AAA111"}, {Code: "BBB222"},
		}, nil)

		rec := doJSON(t, d.router, http.MethodPost, "/api/coupons/bulk",
			`{"coupons":[{"code":"AAA111","discount_type":"free_month","max_uses":10,"active":true},{"code":"BBB222","discount_type":"free_month","max_uses":10,"active":true}]}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(2), decodeBody(t, rec)["count"])
	})

	t.Run("invalid entries are 400", func(t *testing.T) {
		t.Parallel()

		d := newTestDeps()
		d.coupons.On("BulkCreate", mock.Anything, mock.Anything).Return(nil, coupon.ErrInvalidInput)

		rec := doJSON(t, d.router, http.MethodPost, "/api/coupons/bulk", `{"coupons":[{"code":""}]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPaddleWebhook(t *testing.T) {
	t.Parallel()

	t.Run("acknowledges processed event", func(t *testing.T) {
		t.Parallel()

		d := newTestDeps()
		d.webhooks.On("Handle", mock.Anything, mock.Anything).Return(nil)

		rec := doJSON(t, d.router, http.MethodPost, "/api/webhooks/paddle", `{}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decodeBody(t, rec)["received"])
	})

	t.Run("rejected event is 400", func(t *testing.T) {
		t.Parallel()

		d := newTestDeps()
		d.webhooks.On("Handle", mock.Anything, mock.Anything).Return(billing.ErrWebhookVerification)

		rec := doJSON(t, d.router, http.MethodPost, "/api/webhooks/paddle", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSubmitSupport(t *testing.T) {
	t.Parallel()

	t.Run("success envelope", func(t *testing.T) {
		t.Parallel()

		d := newTestDeps()
		ticketID := uuid.New()
		d.support.On("Submit", mock.Anything, support.SubmitRequest{
			Name:    "Jamie",
			Email:   "jamie@example.com",
			Subject: "Feedback",
			Message: "Loved the quiz, very accurate.",
		}, mock.Anything, mock.Anything).Return(ticketID, nil)

		rec := doJSON(t, d.router, http.MethodPost, "/api/support",
			`{"name":"Jamie","email":"jamie@example.com","subject":"Feedback","message":"Loved the quiz, very accurate."}`)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, ticketID.String(), body["ticketId"])
	})

	t.Run("validation failure carries field messages", func(t *testing.T) {
		t.Parallel()

		d := newTestDeps()
		d.support.On("Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(uuid.Nil, support.SubmitRequest{Message: "short"}.Validate())

		rec := doJSON(t, d.router, http.MethodPost, "/api/support",
			`{"name":"","email":"bad","subject":"Nope","message":"short"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody(t, rec)
		assert.Contains(t, body, "fields")
	})

	t.Run("rate limit is 429", func(t *testing.T) {
		t.Parallel()

		d := newTestDeps()
		d.support.On("Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(uuid.Nil, support.ErrRateLimitExceeded)

		rec := doJSON(t, d.router, http.MethodPost, "/api/support",
			`{"name":"Jamie","email":"jamie@example.com","subject":"Other","message":"Message long enough."}`)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})
}

func TestProgressEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("save then fetch", func(t *testing.T) {
		t.Parallel()

		d := newTestDeps()
		d.progress.On("Save", mock.Anything, mock.Anything).Return(nil)
		d.progress.On("Get", mock.Anything, "user@example.com").Return(&progress.TestProgress{
			Email:           "user@example.com",
			CurrentQuestion: 4,
		}, nil)

		rec := doJSON(t, d.router, http.MethodPost, "/api/progress",
			`{"email":"user@example.com","current_question":4}`)
		require.Equal(t, http.StatusOK, rec.Code)

		req := httptest.NewRequest(http.MethodGet, "/api/progress?email=user@example.com", nil)
		getRec := httptest.NewRecorder()
		d.router.ServeHTTP(getRec, req)

		require.Equal(t, http.StatusOK, getRec.Code)
		assert.Equal(t, float64(4), decodeBody(t, getRec)["current_question"])
	})

	t.Run("missing progress is 404", func(t *testing.T) {
		t.Parallel()

		d := newTestDeps()
		d.progress.On("Get", mock.Anything, "ghost@example.com").Return(nil, progress.ErrNotFound)

		req := httptest.NewRequest(http.MethodGet, "/api/progress?email=ghost@example.com", nil)
		rec := httptest.NewRecorder()
		d.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestReviewEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("list returns empty array not null", func(t *testing.T) {
		t.Parallel()

		d := newTestDeps()
		d.reviews.On("ListApproved", mock.Anything, 0).Return([]review.Review(nil), nil)

		req := httptest.NewRequest(http.MethodGet, "/api/reviews", nil)
		rec := httptest.NewRecorder()
		d.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"reviews":[]}`, rec.Body.String())
	})

	t.Run("create review", func(t *testing.T) {
		t.Parallel()

		d := newTestDeps()
		id := uuid.New()
		d.reviews.On("Create", mock.Anything, review.CreateRequest{
			Name:   "Sam",
			Rating: 5,
			Text:   "Changed how I communicate.",
		}).Return(id, nil)

		rec := doJSON(t, d.router, http.MethodPost, "/api/reviews",
			`{"name":"Sam","rating":5,"text":"Changed how I communicate."}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, id.String(), decodeBody(t, rec)["id"])
	})
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	d := newTestDeps()
	req := httptest.NewRequest(http.MethodOptions, "/api/support", nil)
	req.Header.Set("Origin", "https://quiz.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	d.router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
