package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/commtype/api/internal/billing"
	"github.com/commtype/api/internal/coupon"
	"github.com/commtype/api/internal/progress"
	"github.com/commtype/api/internal/review"
	"github.com/commtype/api/internal/support"
	"github.com/commtype/api/pkg/clientip"
	"github.com/commtype/api/pkg/validator"
)

type redeemRequest struct {
	Email      string `json:"email"`
	CouponCode string `json:"coupon_code"`
}

func (h *handlers) redeemCoupon(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.deps.Redemption.Redeem(r.Context(), req.Email, req.CouponCode)
	if err != nil {
		if errors.Is(err, billing.ErrRedemptionFailed) {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"subscription_id": result.SubscriptionID,
		"expires_at":      result.ExpiresAt,
		"message":         "Coupon redeemed! Your first month is free.",
	})
}

type checkoutRequest struct {
	Email   string `json:"email"`
	PriceID string `json:"price_id"`
}

func (h *handlers) createCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	origin := r.Header.Get("Origin")
	url, err := h.deps.Checkout.CreateSession(r.Context(), req.Email, req.PriceID, origin)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidRequest) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

type bulkCouponsRequest struct {
	Coupons []coupon.Input `json:"coupons"`
}

func (h *handlers) bulkCreateCoupons(w http.ResponseWriter, r *http.Request) {
	var req bulkCouponsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.deps.Coupons.BulkCreate(r.Context(), req.Coupons)
	if err != nil {
		if errors.Is(err, coupon.ErrInvalidInput) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create coupons")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(created),
		"coupons": created,
	})
}

func (h *handlers) paddleWebhook(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Webhooks.Handle(r.Context(), r); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *handlers) submitSupport(w http.ResponseWriter, r *http.Request) {
	var req support.SubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ticketID, err := h.deps.Support.Submit(r.Context(), req, clientip.GetIP(r), r.UserAgent())
	if err != nil {
		if ve := validator.Extract(err); ve != nil {
			respondValidationError(w, ve)
			return
		}
		if errors.Is(err, support.ErrRateLimitExceeded) {
			respondError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"ticketId": ticketID,
		"message":  "Thanks! We received your message and will reply soon.",
	})
}

func (h *handlers) saveProgress(w http.ResponseWriter, r *http.Request) {
	var req progress.SaveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.deps.Progress.Save(r.Context(), req); err != nil {
		if ve := validator.Extract(err); ve != nil {
			respondValidationError(w, ve)
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *handlers) getProgress(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Progress.Get(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		if ve := validator.Extract(err); ve != nil {
			respondValidationError(w, ve)
			return
		}
		if errors.Is(err, progress.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load progress")
		return
	}

	respondJSON(w, http.StatusOK, p)
}

func (h *handlers) createReview(w http.ResponseWriter, r *http.Request) {
	var req review.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.deps.Reviews.Create(r.Context(), req)
	if err != nil {
		if ve := validator.Extract(err); ve != nil {
			respondValidationError(w, ve)
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (h *handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	reviews, err := h.deps.Reviews.ListApproved(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load reviews")
		return
	}
	if reviews == nil {
		reviews = []review.Review{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}
