package capacity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/payhuk02/payhula-sub010/internal/events"
	"github.com/payhuk02/payhula-sub010/internal/lock"
	"github.com/payhuk02/payhula-sub010/internal/obs"
)

const defaultDedupTTL = 48 * time.Hour

// SweepResult summarises one monitor run.
type SweepResult struct {
	Skipped bool
	Checked int
	Alerts  []Report
}

// Monitor periodically evaluates every configured service and emits capacity alerts.
type Monitor struct {
	Service  *Service
	Locker   lock.Locker
	R        *redis.Client
	Events   *events.Bus
	LockTTL  time.Duration
	DedupTTL time.Duration
	Logger   zerolog.Logger
}

// Sweep evaluates all services configured for day. Only one sweep per day runs at a time;
// a concurrent call returns a skipped result. Each alert is emitted once per service, day and
// signal.
func (m *Monitor) Sweep(ctx context.Context, day time.Time) (SweepResult, error) {
	if m == nil || m.Service == nil || m.Service.Store == nil {
		return SweepResult{}, errors.New("capacity monitor not configured")
	}
	day = Day(day)
	var result SweepResult
	err := m.Locker.TryWithLock(ctx, "lock:capacity:sweep:"+day.Format(time.DateOnly), m.LockTTL, func(ctx context.Context) error {
		var err error
		result, err = m.sweep(ctx, day)
		return err
	})
	if errors.Is(err, lock.ErrHeld) {
		m.Logger.Debug().Time("day", day).Msg("capacity sweep already running")
		return SweepResult{Skipped: true}, nil
	}
	return result, err
}

func (m *Monitor) sweep(ctx context.Context, day time.Time) (SweepResult, error) {
	capacities, err := m.Service.Store.ListCapacities(ctx, day)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list capacities: %w", err)
	}
	var (
		result SweepResult
		joined error
	)
	for _, c := range capacities {
		rep, err := m.Service.report(ctx, c)
		if err != nil {
			m.Logger.Error().Err(err).Str("service_id", c.ServiceID.String()).Msg("capacity report failed")
			joined = errors.Join(joined, err)
			continue
		}
		result.Checked++
		if rep.Signal == SignalNone {
			continue
		}
		fresh, err := m.claimAlert(ctx, rep)
		if err != nil {
			joined = errors.Join(joined, err)
			continue
		}
		if !fresh {
			continue
		}
		if err := m.alert(ctx, rep); err != nil {
			m.releaseAlert(ctx, rep)
			joined = errors.Join(joined, err)
			continue
		}
		result.Alerts = append(result.Alerts, rep)
	}
	return result, joined
}

func alertKey(rep Report) string {
	return fmt.Sprintf("capacity:alert:%s:%s:%s", rep.Snapshot.ServiceID, rep.Day, rep.Signal)
}

// claimAlert reports whether this is the first time the signal is raised for the service and day.
func (m *Monitor) claimAlert(ctx context.Context, rep Report) (bool, error) {
	if m.R == nil {
		return true, nil
	}
	ttl := m.DedupTTL
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	ok, err := m.R.SetNX(ctx, alertKey(rep), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe capacity alert: %w", err)
	}
	return ok, nil
}

// releaseAlert clears the dedupe claim so the next sweep raises the signal again.
func (m *Monitor) releaseAlert(ctx context.Context, rep Report) {
	if m.R == nil {
		return
	}
	if err := m.R.Del(context.WithoutCancel(ctx), alertKey(rep)).Err(); err != nil {
		m.Logger.Error().Err(err).Str("key", alertKey(rep)).Msg("release capacity alert claim")
	}
}

// alert records the signal. An event that could not be persisted is returned as an error;
// notifier failures after persistence are only logged since the event is already stored.
func (m *Monitor) alert(ctx context.Context, rep Report) error {
	log := m.Logger.With().
		Str("service_id", rep.Snapshot.ServiceID.String()).
		Str("day", rep.Day).
		Str("signal", string(rep.Signal)).
		Logger()
	if m.Events != nil {
		topic := events.TopicCapacityLow
		if rep.Signal == SignalFullyBooked {
			topic = events.TopicCapacityFull
		}
		ev, err := m.Events.Emit(ctx, topic, rep.Snapshot.ServiceID, rep)
		if err != nil && ev.ID == uuid.Nil {
			return fmt.Errorf("emit %s for service %s: %w", topic, rep.Snapshot.ServiceID, err)
		}
		if err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("notify capacity event")
		}
	}
	if obs.CapacityAlertsTotal != nil {
		obs.CapacityAlertsTotal.WithLabelValues(string(rep.Signal)).Inc()
	}
	log.Warn().
		Int("available_slots", rep.Snapshot.AvailableSlots).
		Float64("utilization", rep.Snapshot.UtilizationPercentage).
		Msg("capacity alert")
	return nil
}
