package coupon

import (
	"errors"
	"strings"
	"time"

	"github.com/payhuk02/payhula-sub010/internal/money"
	"github.com/payhuk02/payhula-sub010/internal/pricing"
)

var (
	// ErrNotEligible is returned when the coupon cannot be applied to the provided cart.
	ErrNotEligible = errors.New("coupon not eligible")
	// ErrUsageLimitReached indicates the coupon has exhausted its global usage quota.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrCouponInactive is returned when attempting to use a coupon before its active window.
	ErrCouponInactive = errors.New("coupon not active")
	// ErrCouponExpired is returned when the coupon has already expired.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrMinimumSpendUnmet indicates the cart subtotal did not meet the coupon requirement.
	ErrMinimumSpendUnmet = errors.New("coupon minimum spend not met")
)

// Kind distinguishes fixed-amount coupons from percentage coupons.
type Kind string

const (
	KindAmount  Kind = "amount"
	KindPercent Kind = "percent"
)

// Rule captures the runtime constraints of a stored coupon.
type Rule struct {
	ID           string
	Code         string
	Kind         Kind
	Value        int64
	PercentBps   *int32
	MinSpend     int64
	UsageLimit   *int32
	UsedCount    int32
	ValidFrom    *time.Time
	ValidTo      *time.Time
	ProductIDs   []string
	ProductTypes []pricing.ProductType
}

// Validate ensures the rule can be applied at the provided instant and subtotal.
func (r Rule) Validate(now time.Time, subtotal int64) error {
	if subtotal < r.MinSpend {
		return ErrMinimumSpendUnmet
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrCouponInactive
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return ErrCouponExpired
	}
	if r.UsageLimit != nil && *r.UsageLimit >= 0 && r.UsedCount >= *r.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}

// EligibleSubtotal sums the net totals of the lines the rule applies to.
func EligibleSubtotal(lines []pricing.CartLine, r Rule) int64 {
	var total int64
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		net := line.UnitPrice.Amount*int64(line.Quantity) - line.LineDiscount.Amount
		if net <= 0 {
			continue
		}
		if ruleMatchesLine(r, line) {
			total += net
		}
	}
	return total
}

func ruleMatchesLine(r Rule, line pricing.CartLine) bool {
	if len(r.ProductIDs) == 0 && len(r.ProductTypes) == 0 {
		return true
	}
	for _, id := range r.ProductIDs {
		if id == line.ProductID {
			return true
		}
	}
	for _, pt := range r.ProductTypes {
		if pt == line.ProductType {
			return true
		}
	}
	return false
}

// Compute determines the discount amount based on the rule and eligible subtotal.
func Compute(eligible int64, r Rule) int64 {
	if eligible <= 0 {
		return 0
	}
	discount := r.Value
	if strings.EqualFold(string(r.Kind), string(KindPercent)) {
		if r.PercentBps == nil || *r.PercentBps <= 0 {
			return 0
		}
		bps := min(int64(*r.PercentBps), 10000)
		discount = eligible/10000*bps + eligible%10000*bps/10000
	}
	if discount > eligible {
		discount = eligible
	}
	if discount < 0 {
		return 0
	}
	return discount
}

// Resolve validates the rule against the cart and turns it into the absolute discount the
// order total calculator consumes.
func Resolve(r Rule, lines []pricing.CartLine, now time.Time) (*pricing.Coupon, error) {
	subtotal, cartDiscount, err := pricing.Summarize(lines)
	if err != nil {
		return nil, err
	}
	if err := r.Validate(now, subtotal.Amount-cartDiscount.Amount); err != nil {
		return nil, err
	}
	discount := Compute(EligibleSubtotal(lines, r), r)
	if discount <= 0 {
		return nil, ErrNotEligible
	}
	return &pricing.Coupon{
		ID:             r.ID,
		Code:           r.Code,
		DiscountAmount: money.Money{Amount: discount, Currency: subtotal.Currency},
	}, nil
}
