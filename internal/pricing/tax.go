package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/payhuk02/payhula-sub010/internal/money"
)

// DefaultTaxBps is applied to destinations missing from the table (18%).
const DefaultTaxBps = 1800

var (
	bpsDivisor = decimal.NewFromInt(10000)
	maxAmount  = decimal.NewFromInt(math.MaxInt64)
)

// TaxTable maps ISO 3166-1 alpha-2 country codes to tax rates in basis points.
type TaxTable struct {
	RatesBps   map[string]int
	DefaultBps int
}

// DefaultTaxTable returns the reference table.
func DefaultTaxTable() TaxTable {
	return TaxTable{RatesBps: map[string]int{"BF": 1800}, DefaultBps: DefaultTaxBps}
}

// Rate returns the rate for country. Unknown countries yield the default rate along with
// ErrUnknownCountry.
func (t TaxTable) Rate(country string) (int, error) {
	code := normalizeCountry(country)
	if bps, ok := t.RatesBps[code]; ok && code != "" {
		return bps, nil
	}
	def := t.DefaultBps
	if def <= 0 {
		def = DefaultTaxBps
	}
	return def, fmt.Errorf("tax rate for %q: %w", code, ErrUnknownCountry)
}

// Tax computes base*rate rounded half-up to the minor unit. A non-nil error wrapping
// ErrUnknownCountry still comes with a usable amount.
func (t TaxTable) Tax(base money.Money, country string) (money.Money, error) {
	bps, rateErr := t.Rate(country)
	if base.Amount < 0 {
		return money.Money{}, fmt.Errorf("negative taxable base: %w", ErrInvalidDiscount)
	}
	amount := decimal.NewFromInt(base.Amount).
		Mul(decimal.NewFromInt(int64(bps))).
		Div(bpsDivisor).
		Round(0)
	if amount.GreaterThan(maxAmount) {
		return money.Money{}, fmt.Errorf("tax on %d at %d bps: %w", base.Amount, bps, money.ErrOverflow)
	}
	return money.Money{Amount: amount.IntPart(), Currency: base.Currency}, rateErr
}

func normalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
