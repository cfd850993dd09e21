package pricing

import (
	"errors"
	"fmt"

	"github.com/payhuk02/payhula-sub010/internal/money"
)

var (
	// ErrInvalidDiscount is returned when a discount is negative or exceeds what it may reduce.
	ErrInvalidDiscount = errors.New("pricing: invalid discount")
	// ErrCurrencyMismatch is returned when inputs of a computation use different currencies.
	ErrCurrencyMismatch = money.ErrCurrencyMismatch
	// ErrUnknownCountry flags a destination missing from the lookup tables. It is a warning:
	// callers receive the default tax rate and the international shipping tier.
	ErrUnknownCountry = errors.New("pricing: unknown country")
	// ErrEmptyCart is returned when a cart has no lines to price.
	ErrEmptyCart = errors.New("pricing: cart is empty")
	// ErrInvalidQuantity is returned for lines with a non-positive quantity.
	ErrInvalidQuantity = errors.New("pricing: quantity must be positive")
	// ErrOverflow is returned when an amount no longer fits in int64 minor units.
	ErrOverflow = money.ErrOverflow
)

// ProductType enumerates what a cart line sells.
type ProductType string

const (
	ProductDigital  ProductType = "digital"
	ProductCourse   ProductType = "course"
	ProductPhysical ProductType = "physical"
	ProductService  ProductType = "service"
)

// CartLine is an immutable snapshot of a line taken when checkout starts.
type CartLine struct {
	ProductID    string      `json:"productId"`
	ProductType  ProductType `json:"productType"`
	UnitPrice    money.Money `json:"unitPrice"`
	Quantity     int         `json:"quantity"`
	LineDiscount money.Money `json:"lineDiscount"`
}

// Coupon is a pre-resolved fixed discount.
type Coupon struct {
	ID             string      `json:"id"`
	Code           string      `json:"code"`
	DiscountAmount money.Money `json:"discountAmount"`
}

// GiftCard carries the balance reported by the external ledger.
type GiftCard struct {
	ID      string      `json:"id"`
	Code    string      `json:"code"`
	Balance money.Money `json:"balance"`
}

// TotalInput groups the arguments of ComputeTotal.
type TotalInput struct {
	Subtotal     money.Money
	CartDiscount money.Money
	Coupon       *Coupon
	GiftCard     *GiftCard
	Country      string
}

// Total aggregates computed pricing components.
type Total struct {
	TaxableBase             money.Money `json:"taxableBase"`
	TaxAmount               money.Money `json:"taxAmount"`
	ShippingAmount          money.Money `json:"shippingAmount"`
	CouponDiscount          money.Money `json:"couponDiscount"`
	GiftCardApplied         money.Money `json:"giftCardApplied"`
	AmountDueBeforeGiftCard money.Money `json:"amountDueBeforeGiftCard"`
	FinalTotal              money.Money `json:"finalTotal"`
	UnknownCountry          bool        `json:"unknownCountry"`
}

// Calculator computes order totals from lookup tables.
type Calculator struct {
	Tax      TaxTable
	Shipping ShippingTable
}

// NewCalculator returns a calculator using the provided tables.
func NewCalculator(tax TaxTable, shipping ShippingTable) Calculator {
	return Calculator{Tax: tax, Shipping: shipping}
}

// Summarize folds cart lines into a subtotal and the sum of their line discounts.
func Summarize(lines []CartLine) (subtotal, cartDiscount money.Money, err error) {
	if len(lines) == 0 {
		return money.Money{}, money.Money{}, ErrEmptyCart
	}
	currency := lines[0].UnitPrice.Currency
	subtotal = money.Zero(currency)
	cartDiscount = money.Zero(currency)
	for i, line := range lines {
		if line.Quantity <= 0 {
			return money.Money{}, money.Money{}, fmt.Errorf("line %d (%s): %w", i, line.ProductID, ErrInvalidQuantity)
		}
		if line.UnitPrice.Amount < 0 || line.LineDiscount.Amount < 0 {
			return money.Money{}, money.Money{}, fmt.Errorf("line %d (%s): %w", i, line.ProductID, ErrInvalidDiscount)
		}
		gross, err := line.UnitPrice.MulInt(int64(line.Quantity))
		if err != nil {
			return money.Money{}, money.Money{}, err
		}
		discount := line.LineDiscount
		if discount.Currency == "" {
			discount = money.Zero(gross.Currency)
		}
		if !discount.SameCurrency(gross) {
			return money.Money{}, money.Money{}, fmt.Errorf("line %d (%s): %w", i, line.ProductID, ErrCurrencyMismatch)
		}
		if discount.Amount > gross.Amount {
			return money.Money{}, money.Money{}, fmt.Errorf("line %d (%s): line discount exceeds line total: %w", i, line.ProductID, ErrInvalidDiscount)
		}
		if subtotal, err = subtotal.Add(gross); err != nil {
			return money.Money{}, money.Money{}, fmt.Errorf("line %d (%s): %w", i, line.ProductID, err)
		}
		if cartDiscount, err = cartDiscount.Add(discount); err != nil {
			return money.Money{}, money.Money{}, fmt.Errorf("line %d (%s): %w", i, line.ProductID, err)
		}
	}
	return subtotal, cartDiscount, nil
}

// ComputeTotal applies coupon, tax, shipping and gift card in that order. The order is not
// commutative: the coupon reduces the taxable base while the gift card only pays down the
// amount due. The function is pure; redemption happens elsewhere once the order exists.
func (c Calculator) ComputeTotal(in TotalInput) (Total, error) {
	currency := in.Subtotal.Currency
	if in.Subtotal.Amount < 0 {
		return Total{}, fmt.Errorf("negative subtotal: %w", ErrInvalidDiscount)
	}
	cartDiscount := in.CartDiscount
	if cartDiscount.Currency == "" {
		cartDiscount = money.Zero(currency)
	}
	if cartDiscount.Amount < 0 {
		return Total{}, fmt.Errorf("negative cart discount: %w", ErrInvalidDiscount)
	}
	afterCart, err := in.Subtotal.Sub(cartDiscount)
	if err != nil {
		if errors.Is(err, money.ErrCurrencyMismatch) {
			return Total{}, err
		}
		return Total{}, fmt.Errorf("cart discount exceeds subtotal: %w", ErrInvalidDiscount)
	}

	couponDiscount, err := ResolveCoupon(afterCart, in.Coupon)
	if err != nil {
		return Total{}, err
	}
	taxableBase, err := afterCart.ClampSub(couponDiscount)
	if err != nil {
		return Total{}, err
	}

	unknown := false
	tax, err := c.Tax.Tax(taxableBase, in.Country)
	if err != nil {
		if !errors.Is(err, ErrUnknownCountry) {
			return Total{}, err
		}
		unknown = true
	}
	shipping, err := c.Shipping.Fee(Destination{CountryCode: in.Country}, currency)
	if err != nil {
		if !errors.Is(err, ErrUnknownCountry) {
			return Total{}, err
		}
		unknown = true
	}

	due, err := taxableBase.Add(tax)
	if err != nil {
		return Total{}, fmt.Errorf("amount due: %w", err)
	}
	if due, err = due.Add(shipping); err != nil {
		return Total{}, fmt.Errorf("amount due: %w", err)
	}
	giftCardApplied, err := ResolveGiftCard(due, in.GiftCard)
	if err != nil {
		return Total{}, err
	}
	final, err := due.ClampSub(giftCardApplied)
	if err != nil {
		return Total{}, err
	}

	return Total{
		TaxableBase:             taxableBase,
		TaxAmount:               tax,
		ShippingAmount:          shipping,
		CouponDiscount:          couponDiscount,
		GiftCardApplied:         giftCardApplied,
		AmountDueBeforeGiftCard: due,
		FinalTotal:              final,
		UnknownCountry:          unknown,
	}, nil
}
