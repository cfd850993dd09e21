package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuoteTotal counts order total computations by outcome.
	QuoteTotal *prometheus.CounterVec
	// AvailabilityChecksTotal counts availability computations by cache outcome.
	AvailabilityChecksTotal *prometheus.CounterVec
	// BookingConflictsTotal counts bookings rejected at write time because the slot was taken.
	BookingConflictsTotal prometheus.Counter
	// CapacityAlertsTotal counts emitted capacity alerts by signal.
	CapacityAlertsTotal *prometheus.CounterVec
	// CapacityUtilization exposes the last observed utilisation percentage per service.
	CapacityUtilization *prometheus.GaugeVec
	// RedemptionTotal counts gift card and coupon redemption outcomes.
	RedemptionTotal *prometheus.CounterVec
	// BreakerState reports circuit breaker state per dependency: 0 closed, 1 open, 2 half-open.
	BreakerState *prometheus.GaugeVec
	// BreakerTransitions counts circuit breaker state changes.
	BreakerTransitions *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuoteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_total",
			Help:      "Count of order total computations by outcome.",
		}, []string{"result"})
		AvailabilityChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_checks_total",
			Help:      "Count of availability computations by cache outcome.",
		}, []string{"cache"})
		BookingConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Bookings rejected at write time because the slot was already taken.",
		})
		CapacityAlertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capacity_alerts_total",
			Help:      "Count of capacity alerts emitted by signal.",
		}, []string{"signal"})
		CapacityUtilization = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capacity_utilization_percent",
			Help:      "Last observed booking utilisation percentage per service.",
		}, []string{"service_id"})
		RedemptionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redemption_total",
			Help:      "Count of gift card and coupon redemption outcomes.",
		}, []string{"kind", "result"})
		BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Current breaker state: 0=closed, 1=open, 2=half-open.",
		}, []string{"target"})
		BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transition_total",
			Help:      "Count of breaker state transitions.",
		}, []string{"target", "from", "to"})

		mustRegisterCollector(reg, QuoteTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuoteTotal = v
			}
		})
		mustRegisterCollector(reg, AvailabilityChecksTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				AvailabilityChecksTotal = v
			}
		})
		mustRegisterCollector(reg, BookingConflictsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				BookingConflictsTotal = v
			}
		})
		mustRegisterCollector(reg, CapacityAlertsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CapacityAlertsTotal = v
			}
		})
		mustRegisterCollector(reg, CapacityUtilization, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.GaugeVec); ok {
				CapacityUtilization = v
			}
		})
		mustRegisterCollector(reg, RedemptionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RedemptionTotal = v
			}
		})
		mustRegisterCollector(reg, BreakerState, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.GaugeVec); ok {
				BreakerState = v
			}
		})
		mustRegisterCollector(reg, BreakerTransitions, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BreakerTransitions = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
