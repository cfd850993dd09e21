package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/payhuk02/payhula-sub010/internal/app"
	"github.com/payhuk02/payhula-sub010/internal/booking"
	"github.com/payhuk02/payhula-sub010/internal/capacity"
	"github.com/payhuk02/payhula-sub010/internal/checkout"
	"github.com/payhuk02/payhula-sub010/internal/common"
	"github.com/payhuk02/payhula-sub010/internal/config"
	"github.com/payhuk02/payhula-sub010/internal/health"
	"github.com/payhuk02/payhula-sub010/internal/obs"
	"github.com/payhuk02/payhula-sub010/internal/ratelimit"
	"github.com/payhuk02/payhula-sub010/internal/security"
)

func newRouter(deps *app.Dependencies) (http.Handler, error) {
	cfg := deps.Config
	logger := deps.Logger

	limiterStore, err := ratelimit.NewRedisStore(deps.Redis, "payhula:ratelimit:quote")
	if err != nil {
		return nil, err
	}
	quoteLimiter, err := ratelimit.New(limiterStore, cfg.RateLimitQuote)
	if err != nil {
		return nil, err
	}
	quoteLimit := ratelimit.Handler{
		Limiter: quoteLimiter,
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}
	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL}

	bookingHandler := &booking.Handler{Svc: deps.BookingService()}
	capacityHandler := &capacity.Handler{Svc: deps.CapacityService()}
	checkoutHandler := &checkout.Handler{Svc: deps.CheckoutService()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Obs.MetricsEnabled {
		httpMetrics := obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), nil)
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{HSTSMaxAge: 31536000}.Middleware)
	r.Use(security.BodyLimit{}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders: []string{"Idempotent-Replayed", "Retry-After", "X-RateLimit-Remaining"},
		MaxAge:         300,
	}))

	if cfg.Obs.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{Probes: probes(deps)}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/services/{serviceID}", func(s chi.Router) {
			s.Get("/availability", bookingHandler.Availability)
			s.Get("/capacity", capacityHandler.Report)
			s.With(idem.Middleware).Post("/bookings", bookingHandler.Create)
		})
		v.Patch("/bookings/{bookingID}/status", bookingHandler.UpdateStatus)

		v.Route("/checkout", func(c chi.Router) {
			c.With(quoteLimit.Middleware).Post("/quote", checkoutHandler.Quote)
			c.With(idem.Middleware).Post("/orders", checkoutHandler.PlaceOrder)
		})
	})

	return r, nil
}

func probes(deps *app.Dependencies) []health.Probe {
	var out []health.Probe
	if deps.DB != nil {
		out = append(out, health.Probe{Name: "db", Timeout: 500 * time.Millisecond, Check: deps.DB.Ping})
	}
	if deps.Redis != nil {
		out = append(out, health.Probe{Name: "redis", Timeout: 300 * time.Millisecond, Check: func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		}})
	}
	return out
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
