package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/payhuk02/payhula-sub010/internal/config"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":                   "postgres://localhost/payhula",
		"REDIS_URL":                      "redis://localhost:6379/0",
		"TAX_RATES_BPS":                  "",
		"SHIPPING_FEES":                  "",
		"CAPACITY_LOW_THRESHOLD_PERCENT": "",
		"AVAILABILITY_CACHE_TTL":         "",
		"CURRENCY_CODE":                  "",
		"PORT":                           "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, "XOF", cfg.CurrencyCode)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 30*time.Second, cfg.AvailabilityCacheTTL)
	require.Equal(t, 31*24*time.Hour, cfg.AvailabilityMaxWindow)
	require.Equal(t, 5000, cfg.AvailabilityMaxSlots)
	require.Equal(t, 80.0, cfg.CapacityLowThresholdPercent)

	tax := cfg.TaxTable()
	require.Equal(t, 1800, tax.DefaultBps)
	require.Equal(t, map[string]int{"BF": 1800}, tax.RatesBps)

	ship := cfg.ShippingTable()
	require.Equal(t, int64(15000), ship.InternationalFee)
	require.Equal(t, map[string]int64{"BF": 5000}, ship.Fees)
}

func TestLoadParsesTables(t *testing.T) {
	env := baseEnv()
	env["TAX_RATES_BPS"] = "bf=1800, ci=1800,SN=1800"
	env["SHIPPING_FEES"] = "BF=5000,CI=7500"
	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"BF": 1800, "CI": 1800, "SN": 1800}, cfg.TaxRatesBPS)
	require.Equal(t, int64(7500), cfg.ShippingFees["CI"])
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	env := baseEnv()
	env["TAX_RATES_BPS"] = "BF"
	_, err := config.LoadForTests(env)
	require.Error(t, err)

	env = baseEnv()
	env["CAPACITY_LOW_THRESHOLD_PERCENT"] = "120"
	_, err = config.LoadForTests(env)
	require.Error(t, err)

	env = baseEnv()
	env["DATABASE_URL"] = ""
	_, err = config.LoadForTests(env)
	require.Error(t, err)
}
