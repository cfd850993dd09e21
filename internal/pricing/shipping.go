package pricing

import (
	"fmt"

	"github.com/payhuk02/payhula-sub010/internal/money"
)

const (
	// DefaultDomesticFee is the reference flat fee for domestic deliveries.
	DefaultDomesticFee int64 = 5000
	// DefaultInternationalFee is the reference flat fee for every other destination.
	DefaultInternationalFee int64 = 15000
)

// Destination is where an order ships to, as an ISO 3166-1 alpha-2 code.
type Destination struct {
	CountryCode string `json:"countryCode"`
}

// Code returns the upper-cased, trimmed country code.
func (d Destination) Code() string {
	return normalizeCountry(d.CountryCode)
}

// ShippingTable maps country codes to flat fees in minor units.
type ShippingTable struct {
	Fees             map[string]int64
	InternationalFee int64
}

// DefaultShippingTable returns the two-tier reference table with Burkina Faso as the domestic market.
func DefaultShippingTable() ShippingTable {
	return ShippingTable{Fees: map[string]int64{"BF": DefaultDomesticFee}, InternationalFee: DefaultInternationalFee}
}

// Fee returns the flat shipping fee for the destination. Unknown countries fall back to the
// international tier and report ErrUnknownCountry.
func (s ShippingTable) Fee(dest Destination, currency string) (money.Money, error) {
	code := dest.Code()
	if fee, ok := s.Fees[code]; ok && code != "" {
		return money.Money{Amount: fee, Currency: currency}, nil
	}
	return money.Money{Amount: s.InternationalFee, Currency: currency}, fmt.Errorf("shipping fee for %q: %w", code, ErrUnknownCountry)
}
