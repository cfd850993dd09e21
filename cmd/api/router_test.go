package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/payhuk02/payhula-sub010/internal/app"
	"github.com/payhuk02/payhula-sub010/internal/config"
	"github.com/payhuk02/payhula-sub010/internal/events"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	deps := &app.Dependencies{
		Config: &config.Config{
			RateLimitQuote:              "2-M",
			IdempotencyTTL:              time.Hour,
			BookingSlotStepMinutes:      30,
			CapacityLowThresholdPercent: 80,
			TaxDefaultBPS:               1800,
			ShippingInternationalFee:    15000,
		},
		Logger: zerolog.Nop(),
		Redis:  rdb,
		Events: &events.Bus{},
	}
	h, err := newRouter(deps)
	require.NoError(t, err)
	return h
}

func TestRouterHealth(t *testing.T) {
	h := newTestRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"redis":"ok"`)
}

func TestRouterRejectsBadServiceID(t *testing.T) {
	h := newTestRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/services/not-a-uuid/capacity", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/services/not-a-uuid/availability", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterRateLimitsQuote(t *testing.T) {
	h := newTestRouter(t)

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(`{}`))
		req.RemoteAddr = "203.0.113.7:5000"
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}
