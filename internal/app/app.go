package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/payhuk02/payhula-sub010/internal/booking"
	"github.com/payhuk02/payhula-sub010/internal/capacity"
	"github.com/payhuk02/payhula-sub010/internal/checkout"
	"github.com/payhuk02/payhula-sub010/internal/config"
	"github.com/payhuk02/payhula-sub010/internal/db"
	"github.com/payhuk02/payhula-sub010/internal/events"
	"github.com/payhuk02/payhula-sub010/internal/lock"
	"github.com/payhuk02/payhula-sub010/internal/obs"
	"github.com/payhuk02/payhula-sub010/internal/pricing"
	"github.com/payhuk02/payhula-sub010/internal/redemption"
	"github.com/payhuk02/payhula-sub010/internal/resilience"
)

// Dependencies holds the shared infrastructure every binary wires its services from.
type Dependencies struct {
	Config *config.Config
	Logger zerolog.Logger
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Events *events.Bus

	closers []func() error
}

// New connects Postgres and Redis, installs tracing and builds the event bus. Call Close on
// shutdown even when New fails part way; it releases whatever was opened.
func New(ctx context.Context, cfg *config.Config, component string) (*Dependencies, error) {
	d := &Dependencies{
		Config: cfg,
		Logger: obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().
			Str("env", cfg.AppEnv).
			Str("component", component).
			Logger(),
	}
	if cfg.Obs.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)
	}

	if cfg.Obs.TracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "payhula-" + component,
			Endpoint:      cfg.Obs.OTLPEndpoint,
			Exporter:      cfg.Obs.TracingExporter,
			SamplingRatio: cfg.Obs.SamplingRatio,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			d.Logger.Error().Err(err).Msg("initialise tracing")
		} else {
			d.onClose(func() error { return shutdown(context.Background()) })
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{AppName: "payhula-" + component})
	if err != nil {
		return d, err
	}
	d.DB = pool
	d.onClose(func() error {
		pool.Close()
		return nil
	})

	rdb, err := newRedis(ctx, cfg, d.Logger)
	if err != nil {
		return d, err
	}
	d.Redis = rdb
	d.onClose(rdb.Close)

	bus, closeBus, err := NewBus(cfg, events.PostgresStore{Pool: pool}, d.Logger)
	if err != nil {
		return d, err
	}
	d.Events = bus
	d.onClose(closeBus)
	return d, nil
}

func newRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewBus builds the event bus over store. Events always go to the log; when AMQP_URL is set they
// are also published to the configured topic exchange. The returned func closes the AMQP channel.
func NewBus(cfg *config.Config, store events.Store, logger zerolog.Logger) (*events.Bus, func() error, error) {
	bus := &events.Bus{
		Store:     store,
		Notifiers: []events.Notifier{events.LogNotifier{Logger: logger}},
	}
	if cfg.AMQPURL == "" {
		return bus, func() error { return nil }, nil
	}
	ch, closeFn, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, nil, err
	}
	bus.Notifiers = append(bus.Notifiers, events.AMQPNotifier{
		Channel:  ch,
		Exchange: cfg.AMQPExchange,
		Breaker: resilience.NewBreaker(resilience.BreakerConfig{
			Name:         "amqp",
			MinRequests:  5,
			FailureRatio: 0.5,
			OpenFor:      30 * time.Second,
			Logger:       logger,
		}),
		Retry: resilience.RetryPolicy{Attempts: 3, Base: 100 * time.Millisecond, Jitter: 0.2},
	})
	return bus, closeFn, nil
}

func (d *Dependencies) onClose(fn func() error) {
	d.closers = append(d.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// Locker returns the Redis lock configured for this process.
func (d *Dependencies) Locker() lock.Locker {
	return lock.Locker{R: d.Redis, RetryBackoff: d.Config.LockRetryBackoff}
}

// BookingService wires availability and booking storage.
func (d *Dependencies) BookingService() *booking.Service {
	return &booking.Service{
		Store:       booking.NewPostgresStore(d.DB),
		R:           d.Redis,
		TTL:         d.Config.AvailabilityCacheTTL,
		StepMinutes: d.Config.BookingSlotStepMinutes,
		MaxWindow:   d.Config.AvailabilityMaxWindow,
		MaxSlots:    d.Config.AvailabilityMaxSlots,
		Events:      d.Events,
		Logger:      d.Logger,
	}
}

// CapacityService wires capacity reporting.
func (d *Dependencies) CapacityService() *capacity.Service {
	return &capacity.Service{
		Store:     capacity.PostgresStore{Pool: d.DB},
		Threshold: d.Config.CapacityLowThresholdPercent,
	}
}

// CapacityMonitor wires the capacity sweep.
func (d *Dependencies) CapacityMonitor() *capacity.Monitor {
	return &capacity.Monitor{
		Service:  d.CapacityService(),
		Locker:   d.Locker(),
		R:        d.Redis,
		Events:   d.Events,
		LockTTL:  d.Config.LockTTL,
		DedupTTL: d.Config.CapacityAlertDedupTTL,
		Logger:   d.Logger,
	}
}

// CheckoutService wires quoting, order placement and redemption.
func (d *Dependencies) CheckoutService() *checkout.Service {
	return &checkout.Service{
		Store:      checkout.PostgresStore{Pool: d.DB},
		Calculator: pricing.NewCalculator(d.Config.TaxTable(), d.Config.ShippingTable()),
		Redeemer: &redemption.Service{
			Store:  redemption.PostgresStore{Pool: d.DB},
			Logger: d.Logger,
		},
		Events: d.Events,
		Logger: d.Logger,
	}
}
