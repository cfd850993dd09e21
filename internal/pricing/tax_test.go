package pricing

import (
	"errors"
	"testing"

	"github.com/payhuk02/payhula-sub010/internal/money"
)

func TestTaxRoundsHalfUp(t *testing.T) {
	table := TaxTable{RatesBps: map[string]int{"BF": 1800}, DefaultBps: 1800}
	// 25 * 0.18 = 4.5 -> 5
	tax, err := table.Tax(money.Money{Amount: 25, Currency: "XOF"}, "bf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tax.Amount != 5 {
		t.Fatalf("expected 5, got %d", tax.Amount)
	}
	// 24 * 0.18 = 4.32 -> 4
	tax, _ = table.Tax(money.Money{Amount: 24, Currency: "XOF"}, "BF")
	if tax.Amount != 4 {
		t.Fatalf("expected 4, got %d", tax.Amount)
	}
}

func TestTaxUnknownCountryUsesDefault(t *testing.T) {
	table := TaxTable{RatesBps: map[string]int{"BF": 1000}}
	tax, err := table.Tax(money.Money{Amount: 10000, Currency: "XOF"}, "FR")
	if !errors.Is(err, ErrUnknownCountry) {
		t.Fatalf("expected ErrUnknownCountry, got %v", err)
	}
	if tax.Amount != 1800 {
		t.Fatalf("expected default 18%% tax, got %d", tax.Amount)
	}
}

func TestShippingTiers(t *testing.T) {
	table := DefaultShippingTable()
	fee, err := table.Fee(Destination{CountryCode: " bf "}, "XOF")
	if err != nil || fee.Amount != DefaultDomesticFee {
		t.Fatalf("expected domestic fee, got %v (%v)", fee, err)
	}
	fee, err = table.Fee(Destination{CountryCode: "CI"}, "XOF")
	if !errors.Is(err, ErrUnknownCountry) {
		t.Fatalf("expected ErrUnknownCountry, got %v", err)
	}
	if fee.Amount != DefaultInternationalFee {
		t.Fatalf("expected international fee, got %d", fee.Amount)
	}
}
