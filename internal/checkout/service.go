package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/payhuk02/payhula-sub010/internal/coupon"
	"github.com/payhuk02/payhula-sub010/internal/events"
	"github.com/payhuk02/payhula-sub010/internal/money"
	"github.com/payhuk02/payhula-sub010/internal/obs"
	"github.com/payhuk02/payhula-sub010/internal/pricing"
	"github.com/payhuk02/payhula-sub010/internal/redemption"
)

var (
	// ErrCartNotFound is returned when the cart does not exist.
	ErrCartNotFound = errors.New("checkout: cart not found")
	// ErrCouponNotFound is returned when no active coupon matches the code.
	ErrCouponNotFound = errors.New("checkout: coupon not found")
	// ErrGiftCardNotFound is returned when no active gift card matches the code.
	ErrGiftCardNotFound = errors.New("checkout: gift card not found")
)

// Warning codes attached to a placed order when post-order redemption fails.
const (
	WarningGiftCardNotRedeemed = "gift_card_not_redeemed"
	WarningCouponNotRecorded   = "coupon_not_recorded"
)

// Cart is the snapshot of a cart at checkout time.
type Cart struct {
	ID       uuid.UUID
	Currency string
	Lines    []pricing.CartLine
}

// Order is the durable record of a priced checkout.
type Order struct {
	ID           uuid.UUID     `json:"id"`
	CartID       uuid.UUID     `json:"cartId"`
	Country      string        `json:"country"`
	Status       string        `json:"status"`
	Subtotal     money.Money   `json:"subtotal"`
	CartDiscount money.Money   `json:"cartDiscount"`
	CouponID     *uuid.UUID    `json:"couponId,omitempty"`
	GiftCardID   *uuid.UUID    `json:"giftCardId,omitempty"`
	Total        pricing.Total `json:"total"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Store loads checkout inputs and persists orders.
type Store interface {
	LoadCart(ctx context.Context, cartID uuid.UUID) (Cart, error)
	FindCouponRule(ctx context.Context, code string) (coupon.Rule, error)
	FindGiftCard(ctx context.Context, code string) (pricing.GiftCard, error)
	CreateOrder(ctx context.Context, o Order) (Order, error)
}

// Redeemer settles gift card and coupon usage for a created order.
type Redeemer interface {
	RedeemGiftCard(ctx context.Context, in redemption.GiftCardRedemption) error
	ConsumeCoupon(ctx context.Context, in redemption.CouponUsage) error
}

// QuoteInput identifies the cart and the optional codes to apply.
type QuoteInput struct {
	CartID       uuid.UUID `json:"cartId" validate:"required"`
	CouponCode   string    `json:"couponCode" validate:"omitempty,max=64"`
	GiftCardCode string    `json:"giftCardCode" validate:"omitempty,max=64"`
	Country      string    `json:"country" validate:"required,len=2,alpha"`
}

// Quote is a priced cart.
type Quote struct {
	CartID       uuid.UUID       `json:"cartId"`
	Country      string          `json:"country"`
	Subtotal     money.Money     `json:"subtotal"`
	CartDiscount money.Money     `json:"cartDiscount"`
	Coupon       *pricing.Coupon `json:"coupon,omitempty"`
	GiftCardID   string          `json:"giftCardId,omitempty"`
	Total        pricing.Total   `json:"total"`
}

// Placement is the outcome of PlaceOrder. Warnings list redemptions that failed after the
// order was created; the order stands regardless.
type Placement struct {
	Order    Order    `json:"order"`
	Warnings []string `json:"warnings"`
}

// Service prices carts and turns quotes into orders.
type Service struct {
	Store      Store
	Calculator pricing.Calculator
	Redeemer   Redeemer
	Events     *events.Bus
	Now        func() time.Time
	Logger     zerolog.Logger
}

// Quote prices the cart without side effects.
func (s *Service) Quote(ctx context.Context, in QuoteInput) (Quote, error) {
	q, err := s.quote(ctx, in)
	countQuote(err)
	return q, err
}

func (s *Service) quote(ctx context.Context, in QuoteInput) (Quote, error) {
	if s == nil || s.Store == nil {
		return Quote{}, errors.New("checkout service not configured")
	}
	cart, err := s.Store.LoadCart(ctx, in.CartID)
	if err != nil {
		return Quote{}, err
	}
	subtotal, cartDiscount, err := pricing.Summarize(cart.Lines)
	if err != nil {
		return Quote{}, err
	}

	var appliedCoupon *pricing.Coupon
	if code := strings.TrimSpace(in.CouponCode); code != "" {
		rule, err := s.Store.FindCouponRule(ctx, code)
		if err != nil {
			return Quote{}, err
		}
		if appliedCoupon, err = coupon.Resolve(rule, cart.Lines, s.now()); err != nil {
			return Quote{}, err
		}
	}

	var card *pricing.GiftCard
	if code := strings.TrimSpace(in.GiftCardCode); code != "" {
		found, err := s.Store.FindGiftCard(ctx, code)
		if err != nil {
			return Quote{}, err
		}
		card = &found
	}

	country := strings.ToUpper(strings.TrimSpace(in.Country))
	total, err := s.Calculator.ComputeTotal(pricing.TotalInput{
		Subtotal:     subtotal,
		CartDiscount: cartDiscount,
		Coupon:       appliedCoupon,
		GiftCard:     card,
		Country:      country,
	})
	if err != nil {
		return Quote{}, err
	}
	if total.UnknownCountry {
		s.Logger.Warn().Str("country", country).Str("cart_id", cart.ID.String()).Msg("unknown country, default tax and international shipping applied")
	}

	q := Quote{
		CartID:       cart.ID,
		Country:      country,
		Subtotal:     subtotal,
		CartDiscount: cartDiscount,
		Coupon:       appliedCoupon,
		Total:        total,
	}
	if card != nil {
		q.GiftCardID = card.ID
	}
	return q, nil
}

// PlaceOrder prices the cart, persists the order and settles redemptions. Redemption
// failures are logged and reported as warnings without reversing the order.
func (s *Service) PlaceOrder(ctx context.Context, in QuoteInput) (Placement, error) {
	q, err := s.Quote(ctx, in)
	if err != nil {
		return Placement{}, err
	}
	order := Order{
		ID:           uuid.New(),
		CartID:       q.CartID,
		Country:      q.Country,
		Status:       "pending_payment",
		Subtotal:     q.Subtotal,
		CartDiscount: q.CartDiscount,
		Total:        q.Total,
		CreatedAt:    s.now().UTC(),
	}
	if q.Coupon != nil {
		if id, err := uuid.Parse(q.Coupon.ID); err == nil {
			order.CouponID = &id
		}
	}
	if q.GiftCardID != "" {
		if id, err := uuid.Parse(q.GiftCardID); err == nil {
			order.GiftCardID = &id
		}
	}
	created, err := s.Store.CreateOrder(ctx, order)
	if err != nil {
		return Placement{}, fmt.Errorf("create order: %w", err)
	}

	placement := Placement{Order: created, Warnings: []string{}}
	if warning := s.redeemGiftCard(ctx, created); warning != "" {
		placement.Warnings = append(placement.Warnings, warning)
	}
	if warning := s.consumeCoupon(ctx, created); warning != "" {
		placement.Warnings = append(placement.Warnings, warning)
	}
	s.emit(ctx, events.TopicOrderCreated, created.ID, created)
	if len(placement.Warnings) > 0 {
		s.emit(ctx, events.TopicRedemptionFailed, created.ID, map[string]any{
			"orderId":  created.ID,
			"warnings": placement.Warnings,
		})
	}
	return placement, nil
}

func (s *Service) redeemGiftCard(ctx context.Context, o Order) string {
	if s.Redeemer == nil || o.GiftCardID == nil || o.Total.GiftCardApplied.IsZero() {
		return ""
	}
	err := s.Redeemer.RedeemGiftCard(ctx, redemption.GiftCardRedemption{
		GiftCardID: *o.GiftCardID,
		OrderID:    o.ID,
		Amount:     o.Total.GiftCardApplied,
	})
	if err != nil {
		s.Logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("gift card not redeemed after order creation")
		return WarningGiftCardNotRedeemed
	}
	return ""
}

func (s *Service) consumeCoupon(ctx context.Context, o Order) string {
	if s.Redeemer == nil || o.CouponID == nil || o.Total.CouponDiscount.IsZero() {
		return ""
	}
	err := s.Redeemer.ConsumeCoupon(ctx, redemption.CouponUsage{
		CouponID:       *o.CouponID,
		OrderID:        o.ID,
		DiscountAmount: o.Total.CouponDiscount,
	})
	if err != nil {
		s.Logger.Error().Err(err).Str("order_id", o.ID.String()).Msg("coupon usage not recorded after order creation")
		return WarningCouponNotRecorded
	}
	return ""
}

func (s *Service) emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, topic, aggregateID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Msg("emit checkout event")
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func countQuote(err error) {
	if obs.QuoteTotal == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case isCalculationError(err):
		result = "invalid"
	default:
		result = "error"
	}
	obs.QuoteTotal.WithLabelValues(result).Inc()
}

func isCalculationError(err error) bool {
	return errors.Is(err, pricing.ErrInvalidDiscount) ||
		errors.Is(err, pricing.ErrCurrencyMismatch) ||
		errors.Is(err, pricing.ErrInvalidQuantity) ||
		errors.Is(err, money.ErrNegativeAmount) ||
		errors.Is(err, money.ErrOverflow)
}
