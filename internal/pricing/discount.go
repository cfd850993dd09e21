package pricing

import (
	"fmt"

	"github.com/payhuk02/payhula-sub010/internal/money"
)

// ResolveCoupon returns the coupon discount to subtract from base, clamped to base.
func ResolveCoupon(base money.Money, coupon *Coupon) (money.Money, error) {
	if coupon == nil {
		return money.Zero(base.Currency), nil
	}
	amount := coupon.DiscountAmount
	if amount.Amount < 0 {
		return money.Money{}, fmt.Errorf("coupon %s: %w", coupon.Code, ErrInvalidDiscount)
	}
	if amount.Currency == "" {
		amount.Currency = base.Currency
	}
	return base.Min(amount)
}

// ResolveGiftCard returns how much of the gift card balance to request for redemption:
// min(balance, due).
func ResolveGiftCard(due money.Money, card *GiftCard) (money.Money, error) {
	if card == nil {
		return money.Zero(due.Currency), nil
	}
	balance := card.Balance
	if balance.Amount < 0 {
		return money.Money{}, fmt.Errorf("gift card %s: negative balance: %w", card.Code, ErrInvalidDiscount)
	}
	if balance.Currency == "" {
		balance.Currency = due.Currency
	}
	return due.Min(balance)
}
