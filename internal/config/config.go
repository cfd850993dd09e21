package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/payhuk02/payhula-sub010/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	AMQPURL            string
	AMQPExchange       string
	CORSAllowedOrigins []string
	DBMigrateOnStart   bool

	CurrencyCode             string
	TaxDefaultBPS            int
	TaxRatesBPS              map[string]int
	ShippingFees             map[string]int64
	ShippingInternationalFee int64

	BookingSlotStepMinutes      int
	AvailabilityCacheTTL        time.Duration
	AvailabilityMaxWindow       time.Duration
	AvailabilityMaxSlots        int
	CapacityLowThresholdPercent float64
	CapacitySweepInterval       time.Duration
	CapacityAlertDedupTTL       time.Duration

	LockTTL          time.Duration
	LockRetryBackoff time.Duration
	IdempotencyTTL   time.Duration
	RateLimitQuote   string

	Obs ObsConfig
}

// ObsConfig configures logging, metrics and tracing.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	MetricsEnabled   bool
	MetricsNamespace string
	MetricsBuckets   string
	TracingEnabled   bool
	TracingExporter  string
	OTLPEndpoint     string
	SamplingRatio    float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	taxRates, err := parseIntMap(k.String("TAX_RATES_BPS"))
	if err != nil {
		return nil, fmt.Errorf("TAX_RATES_BPS: %w", err)
	}
	fees, err := parseIntMap(k.String("SHIPPING_FEES"))
	if err != nil {
		return nil, fmt.Errorf("SHIPPING_FEES: %w", err)
	}
	if len(taxRates) == 0 {
		taxRates = map[string]int64{"BF": pricing.DefaultTaxBps}
	}
	if len(fees) == 0 {
		fees = map[string]int64{"BF": pricing.DefaultDomesticFee}
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		AMQPURL:            strings.TrimSpace(k.String("AMQP_URL")),
		AMQPExchange:       valueOrDefault(k.String("AMQP_EXCHANGE"), "payhula.events"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		DBMigrateOnStart:   parseBool(k.String("DB_MIGRATE_ON_START")),

		CurrencyCode:             strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "XOF")),
		TaxDefaultBPS:            parseInt(k.String("TAX_DEFAULT_BPS"), pricing.DefaultTaxBps),
		ShippingFees:             fees,
		ShippingInternationalFee: int64(parseInt(k.String("SHIPPING_INTERNATIONAL_FEE"), int(pricing.DefaultInternationalFee))),

		BookingSlotStepMinutes:      parseInt(k.String("BOOKING_SLOT_STEP_MINUTES"), 30),
		AvailabilityCacheTTL:        parseDuration(k.String("AVAILABILITY_CACHE_TTL"), "30s"),
		AvailabilityMaxWindow:       parseDuration(k.String("AVAILABILITY_MAX_WINDOW"), "744h"),
		AvailabilityMaxSlots:        parseInt(k.String("AVAILABILITY_MAX_SLOTS"), 5000),
		CapacityLowThresholdPercent: parseFloat(k.String("CAPACITY_LOW_THRESHOLD_PERCENT"), 80),
		CapacitySweepInterval:       parseDuration(k.String("CAPACITY_SWEEP_INTERVAL"), "15m"),
		CapacityAlertDedupTTL:       parseDuration(k.String("CAPACITY_ALERT_DEDUP_TTL"), "48h"),

		LockTTL:          parseDuration(k.String("LOCK_TTL"), "2m"),
		LockRetryBackoff: parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),
		IdempotencyTTL:   parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimitQuote:   valueOrDefault(k.String("RATE_LIMIT_QUOTE"), "60-M"),

		Obs: ObsConfig{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsEnabled:   parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "payhula"),
			MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
			TracingEnabled:   parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
			TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
			OTLPEndpoint:     k.String("OBS_OTLP_ENDPOINT"),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		},
	}
	cfg.TaxRatesBPS = make(map[string]int, len(taxRates))
	for code, bps := range taxRates {
		cfg.TaxRatesBPS[code] = int(bps)
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.TaxDefaultBPS < 0 || cfg.ShippingInternationalFee < 0 {
		return nil, errors.New("tax and shipping defaults must be non-negative")
	}
	if cfg.CapacityLowThresholdPercent <= 0 || cfg.CapacityLowThresholdPercent > 100 {
		return nil, errors.New("CAPACITY_LOW_THRESHOLD_PERCENT must be within (0, 100]")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// TaxTable builds the pricing tax table.
func (c *Config) TaxTable() pricing.TaxTable {
	return pricing.TaxTable{RatesBps: c.TaxRatesBPS, DefaultBps: c.TaxDefaultBPS}
}

// ShippingTable builds the pricing shipping table.
func (c *Config) ShippingTable() pricing.ShippingTable {
	return pricing.ShippingTable{Fees: c.ShippingFees, InternationalFee: c.ShippingInternationalFee}
}

// parseIntMap reads "BF=1800, CI=1800" into an upper-cased map.
func parseIntMap(value string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, pair := range splitAndTrim(value) {
		code, raw, ok := strings.Cut(pair, "=")
		code = strings.ToUpper(strings.TrimSpace(code))
		if !ok || code == "" {
			return nil, fmt.Errorf("invalid entry %q", pair)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid value for %s: %q", code, raw)
		}
		out[code] = n
	}
	return out, nil
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
