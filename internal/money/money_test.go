package money_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/payhuk02/payhula-sub010/internal/money"
)

func TestNewRejectsInvalid(t *testing.T) {
	_, err := money.New(-1, "XOF")
	require.ErrorIs(t, err, money.ErrNegativeAmount)

	_, err = money.New(100, " ")
	require.ErrorIs(t, err, money.ErrCurrencyRequired)

	m, err := money.New(100, "xof")
	require.NoError(t, err)
	require.Equal(t, "XOF", m.Currency)
}

func TestArithmeticRequiresSameCurrency(t *testing.T) {
	xof := money.Money{Amount: 100, Currency: "XOF"}
	eur := money.Money{Amount: 100, Currency: "EUR"}

	_, err := xof.Add(eur)
	require.ErrorIs(t, err, money.ErrCurrencyMismatch)
	_, err = xof.Sub(eur)
	require.ErrorIs(t, err, money.ErrCurrencyMismatch)
	_, err = xof.ClampSub(eur)
	require.ErrorIs(t, err, money.ErrCurrencyMismatch)
	_, err = xof.Min(eur)
	require.ErrorIs(t, err, money.ErrCurrencyMismatch)
}

func TestSubAndClampSub(t *testing.T) {
	a := money.Money{Amount: 500, Currency: "XOF"}
	b := money.Money{Amount: 800, Currency: "XOF"}

	_, err := a.Sub(b)
	require.ErrorIs(t, err, money.ErrNegativeAmount)

	clamped, err := a.ClampSub(b)
	require.NoError(t, err)
	require.Equal(t, int64(0), clamped.Amount)

	diff, err := b.Sub(a)
	require.NoError(t, err)
	require.Equal(t, int64(300), diff.Amount)
}

func TestMinAndMul(t *testing.T) {
	a := money.Money{Amount: 500, Currency: "XOF"}
	b := money.Money{Amount: 800, Currency: "xof"}
	lo, err := b.Min(a)
	require.NoError(t, err)
	require.Equal(t, int64(500), lo.Amount)

	line, err := a.MulInt(3)
	require.NoError(t, err)
	require.Equal(t, int64(1500), line.Amount)

	_, err = a.MulInt(-2)
	require.ErrorIs(t, err, money.ErrNegativeAmount)
}

func TestArithmeticRejectsOverflow(t *testing.T) {
	big := money.Money{Amount: math.MaxInt64 - 10, Currency: "XOF"}

	sum, err := big.Add(money.Money{Amount: 10, Currency: "XOF"})
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxInt64), sum.Amount)

	_, err = big.Add(money.Money{Amount: 11, Currency: "XOF"})
	require.ErrorIs(t, err, money.ErrOverflow)

	half := money.Money{Amount: math.MaxInt64/2 + 1, Currency: "XOF"}
	_, err = half.MulInt(2)
	require.ErrorIs(t, err, money.ErrOverflow)

	exact, err := money.Money{Amount: math.MaxInt64 / 3, Currency: "XOF"}.MulInt(3)
	require.NoError(t, err)
	require.Equal(t, int64(math.MaxInt64/3*3), exact.Amount)

	zero, err := money.Money{Currency: "XOF"}.MulInt(math.MaxInt64)
	require.NoError(t, err)
	require.Zero(t, zero.Amount)

	_, err = big.ClampSub(money.Money{Amount: -100, Currency: "XOF"})
	require.ErrorIs(t, err, money.ErrOverflow)
}
