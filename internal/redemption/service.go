package redemption

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/payhuk02/payhula-sub010/internal/money"
	"github.com/payhuk02/payhula-sub010/internal/obs"
)

var (
	// ErrInsufficientBalance is returned when a gift card cannot cover the redemption.
	ErrInsufficientBalance = errors.New("redemption: insufficient gift card balance")
	// ErrUsageLimitReached is returned when a coupon has no uses left.
	ErrUsageLimitReached = errors.New("redemption: coupon usage limit reached")
	// ErrNotFound is returned when the gift card or coupon does not exist.
	ErrNotFound = errors.New("redemption: not found")
	// ErrInvalidInput is returned for missing ids or negative amounts.
	ErrInvalidInput = errors.New("redemption: invalid input")
)

const (
	KindGiftCard = "gift_card"
	KindCoupon   = "coupon"
)

// GiftCardRedemption debits a gift card for an order.
type GiftCardRedemption struct {
	GiftCardID uuid.UUID
	OrderID    uuid.UUID
	Amount     money.Money
}

// CouponUsage records the use of a coupon by an order.
type CouponUsage struct {
	CouponID       uuid.UUID
	OrderID        uuid.UUID
	DiscountAmount money.Money
}

// Store applies redemptions durably. Both operations are idempotent per order: a repeated
// call for the same order returns applied=false without changing balances or counters.
type Store interface {
	RedeemGiftCard(ctx context.Context, in GiftCardRedemption) (applied bool, err error)
	ConsumeCoupon(ctx context.Context, in CouponUsage) (applied bool, err error)
}

// Service settles gift card and coupon usage after an order is created.
type Service struct {
	Store  Store
	Logger zerolog.Logger
}

// RedeemGiftCard debits the gift card once per order. Zero amounts are no-ops.
func (s *Service) RedeemGiftCard(ctx context.Context, in GiftCardRedemption) error {
	if s == nil || s.Store == nil {
		return errors.New("redemption service not configured")
	}
	if in.GiftCardID == uuid.Nil || in.OrderID == uuid.Nil || in.Amount.Amount < 0 {
		return fmt.Errorf("gift card redemption: %w", ErrInvalidInput)
	}
	if in.Amount.IsZero() {
		return nil
	}
	applied, err := s.Store.RedeemGiftCard(ctx, in)
	s.record(KindGiftCard, applied, err)
	if err != nil {
		s.Logger.Warn().Err(err).
			Str("gift_card_id", in.GiftCardID.String()).
			Str("order_id", in.OrderID.String()).
			Int64("amount", in.Amount.Amount).
			Msg("gift card redemption failed")
		return err
	}
	return nil
}

// ConsumeCoupon records the coupon usage once per order. Zero discounts are no-ops.
func (s *Service) ConsumeCoupon(ctx context.Context, in CouponUsage) error {
	if s == nil || s.Store == nil {
		return errors.New("redemption service not configured")
	}
	if in.CouponID == uuid.Nil || in.OrderID == uuid.Nil || in.DiscountAmount.Amount < 0 {
		return fmt.Errorf("coupon usage: %w", ErrInvalidInput)
	}
	if in.DiscountAmount.IsZero() {
		return nil
	}
	applied, err := s.Store.ConsumeCoupon(ctx, in)
	s.record(KindCoupon, applied, err)
	if err != nil {
		s.Logger.Warn().Err(err).
			Str("coupon_id", in.CouponID.String()).
			Str("order_id", in.OrderID.String()).
			Msg("coupon usage failed")
		return err
	}
	return nil
}

func (s *Service) record(kind string, applied bool, err error) {
	if obs.RedemptionTotal == nil {
		return
	}
	result := "applied"
	switch {
	case err != nil:
		result = "failed"
	case !applied:
		result = "duplicate"
	}
	obs.RedemptionTotal.WithLabelValues(kind, result).Inc()
}
