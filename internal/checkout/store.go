package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/payhuk02/payhula-sub010/internal/coupon"
	"github.com/payhuk02/payhula-sub010/internal/money"
	"github.com/payhuk02/payhula-sub010/internal/pricing"
)

// PostgresStore implements Store on top of pgx.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// LoadCart reads the cart and its lines in insertion order.
func (s PostgresStore) LoadCart(ctx context.Context, cartID uuid.UUID) (Cart, error) {
	cart := Cart{ID: cartID}
	err := s.Pool.QueryRow(ctx, `SELECT currency FROM carts WHERE id = $1`, cartID).Scan(&cart.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cart{}, ErrCartNotFound
	}
	if err != nil {
		return Cart{}, err
	}

	rows, err := s.Pool.Query(ctx, `SELECT product_id, product_type, unit_price, quantity, line_discount
FROM cart_lines
WHERE cart_id = $1
ORDER BY position, product_id`, cartID)
	if err != nil {
		return Cart{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			line                pricing.CartLine
			productType         string
			unitPrice, discount int64
		)
		if err := rows.Scan(&line.ProductID, &productType, &unitPrice, &line.Quantity, &discount); err != nil {
			return Cart{}, err
		}
		line.ProductType = pricing.ProductType(productType)
		line.UnitPrice = money.Money{Amount: unitPrice, Currency: cart.Currency}
		line.LineDiscount = money.Money{Amount: discount, Currency: cart.Currency}
		cart.Lines = append(cart.Lines, line)
	}
	return cart, rows.Err()
}

// FindCouponRule loads an active coupon by case-insensitive code.
func (s PostgresStore) FindCouponRule(ctx context.Context, code string) (coupon.Rule, error) {
	var (
		r            coupon.Rule
		id           uuid.UUID
		kind         string
		productTypes []string
	)
	err := s.Pool.QueryRow(ctx, `SELECT id, code, kind, value, percent_bps, min_spend, usage_limit, used_count,
       valid_from, valid_to, product_ids, product_types
FROM coupons
WHERE lower(code) = lower($1) AND active`, code).Scan(
		&id, &r.Code, &kind, &r.Value, &r.PercentBps, &r.MinSpend, &r.UsageLimit, &r.UsedCount,
		&r.ValidFrom, &r.ValidTo, &r.ProductIDs, &productTypes)
	if errors.Is(err, pgx.ErrNoRows) {
		return coupon.Rule{}, ErrCouponNotFound
	}
	if err != nil {
		return coupon.Rule{}, err
	}
	r.ID = id.String()
	r.Kind = coupon.Kind(kind)
	for _, pt := range productTypes {
		r.ProductTypes = append(r.ProductTypes, pricing.ProductType(pt))
	}
	return r, nil
}

// FindGiftCard loads an active, unexpired gift card by code.
func (s PostgresStore) FindGiftCard(ctx context.Context, code string) (pricing.GiftCard, error) {
	var (
		id       uuid.UUID
		card     pricing.GiftCard
		balance  int64
		currency string
	)
	err := s.Pool.QueryRow(ctx, `SELECT id, code, balance, currency
FROM gift_cards
WHERE code = $1 AND active AND (expires_at IS NULL OR expires_at > $2)`, code, time.Now().UTC()).
		Scan(&id, &card.Code, &balance, &currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return pricing.GiftCard{}, ErrGiftCardNotFound
	}
	if err != nil {
		return pricing.GiftCard{}, err
	}
	card.ID = id.String()
	card.Balance = money.Money{Amount: balance, Currency: currency}
	return card, nil
}

// CreateOrder inserts the order with its full price breakdown.
func (s PostgresStore) CreateOrder(ctx context.Context, o Order) (Order, error) {
	t := o.Total
	_, err := s.Pool.Exec(ctx, `INSERT INTO orders (
  id, cart_id, country, status, currency, subtotal, cart_discount,
  coupon_id, coupon_discount, taxable_base, tax_amount, shipping_amount,
  gift_card_id, gift_card_applied, amount_due, total, unknown_country, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		o.ID, o.CartID, o.Country, o.Status, o.Subtotal.Currency, o.Subtotal.Amount, o.CartDiscount.Amount,
		o.CouponID, t.CouponDiscount.Amount, t.TaxableBase.Amount, t.TaxAmount.Amount, t.ShippingAmount.Amount,
		o.GiftCardID, t.GiftCardApplied.Amount, t.AmountDueBeforeGiftCard.Amount, t.FinalTotal.Amount, t.UnknownCountry, o.CreatedAt)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}
