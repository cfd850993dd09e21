package redemption

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore writes redemption ledgers and balances in one transaction.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// RedeemGiftCard implements Store.
func (s PostgresStore) RedeemGiftCard(ctx context.Context, in GiftCardRedemption) (bool, error) {
	var applied bool
	err := pgx.BeginTxFunc(ctx, s.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var (
			balance  int64
			currency string
		)
		err := tx.QueryRow(ctx, `SELECT balance, currency FROM gift_cards WHERE id = $1 FOR UPDATE`, in.GiftCardID).
			Scan(&balance, &currency)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if currency != in.Amount.Currency {
			return fmt.Errorf("gift card currency %s, redemption %s: %w", currency, in.Amount.Currency, ErrInvalidInput)
		}
		tag, err := tx.Exec(ctx, `INSERT INTO gift_card_redemptions (gift_card_id, order_id, amount, currency)
VALUES ($1, $2, $3, $4)
ON CONFLICT (order_id, gift_card_id) DO NOTHING`, in.GiftCardID, in.OrderID, in.Amount.Amount, in.Amount.Currency)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if balance < in.Amount.Amount {
			return ErrInsufficientBalance
		}
		if _, err := tx.Exec(ctx, `UPDATE gift_cards SET balance = balance - $2, updated_at = now() WHERE id = $1`,
			in.GiftCardID, in.Amount.Amount); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

// ConsumeCoupon implements Store.
func (s PostgresStore) ConsumeCoupon(ctx context.Context, in CouponUsage) (bool, error) {
	var applied bool
	err := pgx.BeginTxFunc(ctx, s.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `INSERT INTO coupon_usages (coupon_id, order_id, discount_amount, currency)
VALUES ($1, $2, $3, $4)
ON CONFLICT (order_id, coupon_id) DO NOTHING`, in.CouponID, in.OrderID, in.DiscountAmount.Amount, in.DiscountAmount.Currency)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		tag, err = tx.Exec(ctx, `UPDATE coupons SET used_count = used_count + 1
WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`, in.CouponID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM coupons WHERE id = $1)`, in.CouponID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return ErrNotFound
			}
			return ErrUsageLimitReached
		}
		applied = true
		return nil
	})
	return applied, err
}
