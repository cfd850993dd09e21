package money

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrCurrencyMismatch is returned when two amounts in different currencies are combined.
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	// ErrNegativeAmount is returned when an amount would drop below zero.
	ErrNegativeAmount = errors.New("money: negative amount")
	// ErrCurrencyRequired is returned when an amount carries no currency code.
	ErrCurrencyRequired = errors.New("money: currency is required")
	// ErrOverflow is returned when a result does not fit in an int64 minor-unit amount.
	ErrOverflow = errors.New("money: amount overflows int64")
)

// Money is a non-negative amount expressed in the currency's minor unit.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// New validates and constructs a Money value.
func New(amount int64, currency string) (Money, error) {
	code := normalize(currency)
	if code == "" {
		return Money{}, ErrCurrencyRequired
	}
	if amount < 0 {
		return Money{}, fmt.Errorf("%w: %d", ErrNegativeAmount, amount)
	}
	return Money{Amount: amount, Currency: code}, nil
}

// Zero returns an empty amount in the given currency.
func Zero(currency string) Money {
	return Money{Currency: normalize(currency)}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// SameCurrency reports whether both values share a currency.
func (m Money) SameCurrency(o Money) bool {
	return normalize(m.Currency) == normalize(o.Currency)
}

// Add returns m+o.
func (m Money) Add(o Money) (Money, error) {
	if !m.SameCurrency(o) {
		return Money{}, mismatch(m, o)
	}
	if (o.Amount > 0 && m.Amount > math.MaxInt64-o.Amount) || (o.Amount < 0 && m.Amount < math.MinInt64-o.Amount) {
		return Money{}, fmt.Errorf("%w: %d + %d", ErrOverflow, m.Amount, o.Amount)
	}
	return Money{Amount: m.Amount + o.Amount, Currency: normalize(m.Currency)}, nil
}

// Sub returns m-o and rejects results below zero.
func (m Money) Sub(o Money) (Money, error) {
	if !m.SameCurrency(o) {
		return Money{}, mismatch(m, o)
	}
	if o.Amount > m.Amount {
		return Money{}, fmt.Errorf("%w: %d - %d", ErrNegativeAmount, m.Amount, o.Amount)
	}
	if subOverflows(m.Amount, o.Amount) {
		return Money{}, fmt.Errorf("%w: %d - %d", ErrOverflow, m.Amount, o.Amount)
	}
	return Money{Amount: m.Amount - o.Amount, Currency: normalize(m.Currency)}, nil
}

// ClampSub returns max(0, m-o).
func (m Money) ClampSub(o Money) (Money, error) {
	if !m.SameCurrency(o) {
		return Money{}, mismatch(m, o)
	}
	if subOverflows(m.Amount, o.Amount) {
		return Money{}, fmt.Errorf("%w: %d - %d", ErrOverflow, m.Amount, o.Amount)
	}
	diff := m.Amount - o.Amount
	if diff < 0 {
		diff = 0
	}
	return Money{Amount: diff, Currency: normalize(m.Currency)}, nil
}

// Min returns the smaller of the two amounts.
func (m Money) Min(o Money) (Money, error) {
	if !m.SameCurrency(o) {
		return Money{}, mismatch(m, o)
	}
	if o.Amount < m.Amount {
		return Money{Amount: o.Amount, Currency: normalize(m.Currency)}, nil
	}
	return Money{Amount: m.Amount, Currency: normalize(m.Currency)}, nil
}

// MulInt multiplies the amount by a non-negative factor.
func (m Money) MulInt(factor int64) (Money, error) {
	if factor < 0 {
		return Money{}, fmt.Errorf("%w: factor %d", ErrNegativeAmount, factor)
	}
	if m.Amount != 0 && factor != 0 {
		if m.Amount == math.MinInt64 || abs(m.Amount) > math.MaxInt64/factor {
			return Money{}, fmt.Errorf("%w: %d * %d", ErrOverflow, m.Amount, factor)
		}
	}
	return Money{Amount: m.Amount * factor, Currency: normalize(m.Currency)}, nil
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, normalize(m.Currency))
}

func mismatch(a, b Money) error {
	return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, normalize(a.Currency), normalize(b.Currency))
}

func subOverflows(a, b int64) bool {
	return (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
