package checkout

import (
	"errors"
	"net/http"

	"github.com/payhuk02/payhula-sub010/internal/common"
	"github.com/payhuk02/payhula-sub010/internal/coupon"
	"github.com/payhuk02/payhula-sub010/internal/pricing"
)

// Handler exposes quote and order placement endpoints.
type Handler struct {
	Svc *Service
}

// Quote prices a cart.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	q, err := h.Svc.Quote(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

// PlaceOrder prices a cart and records the order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	placement, err := h.Svc.PlaceOrder(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": placement})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (QuoteInput, bool) {
	var in QuoteInput
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return in, false
	}
	if err := common.DecodeJSON(r, &in); err != nil {
		h.writeError(w, err)
		return in, false
	}
	return in, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	if common.WriteAppError(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrCartNotFound):
		common.JSONError(w, http.StatusNotFound, "CART_NOT_FOUND", "cart not found", nil)
	case errors.Is(err, pricing.ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "CART_EMPTY", "cart is empty", nil)
	case errors.Is(err, ErrCouponNotFound),
		errors.Is(err, coupon.ErrNotEligible),
		errors.Is(err, coupon.ErrUsageLimitReached),
		errors.Is(err, coupon.ErrCouponInactive),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrMinimumSpendUnmet):
		common.JSONError(w, http.StatusUnprocessableEntity, "COUPON_REJECTED", err.Error(), nil)
	case errors.Is(err, ErrGiftCardNotFound):
		common.JSONError(w, http.StatusUnprocessableEntity, "GIFT_CARD_REJECTED", "gift card not found", nil)
	case isCalculationError(err):
		common.JSONError(w, http.StatusUnprocessableEntity, "CALCULATION_FAILED", "Unable to calculate total, please retry", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
