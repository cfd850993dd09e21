package capacity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/payhuk02/payhula-sub010/internal/obs"
)

// ErrNotFound is returned when no capacity is configured for a service and day.
var ErrNotFound = errors.New("capacity: not configured")

// Capacity is the number of bookable slots a service offers on a day.
type Capacity struct {
	ServiceID  uuid.UUID
	Day        time.Time
	TotalSlots int
}

// Store reads configured capacity and active booking counts.
type Store interface {
	GetCapacity(ctx context.Context, serviceID uuid.UUID, day time.Time) (Capacity, error)
	ListCapacities(ctx context.Context, day time.Time) ([]Capacity, error)
	CountActiveBookings(ctx context.Context, serviceID uuid.UUID, day time.Time) (int, error)
}

// Report is a snapshot together with the signal it raises.
type Report struct {
	Day      string   `json:"day"`
	Snapshot Snapshot `json:"snapshot"`
	Signal   Signal   `json:"signal"`
}

// Service builds capacity reports.
type Service struct {
	Store     Store
	Threshold float64
}

// Day truncates t to the start of its UTC day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Report aggregates the capacity of one service on day.
func (s *Service) Report(ctx context.Context, serviceID uuid.UUID, day time.Time) (Report, error) {
	if s == nil || s.Store == nil {
		return Report{}, errors.New("capacity service not configured")
	}
	day = Day(day)
	c, err := s.Store.GetCapacity(ctx, serviceID, day)
	if err != nil {
		return Report{}, err
	}
	return s.report(ctx, c)
}

func (s *Service) report(ctx context.Context, c Capacity) (Report, error) {
	active, err := s.Store.CountActiveBookings(ctx, c.ServiceID, c.Day)
	if err != nil {
		return Report{}, fmt.Errorf("count bookings for %s: %w", c.ServiceID, err)
	}
	snap, err := Aggregate(c.ServiceID, c.TotalSlots, active)
	if err != nil {
		return Report{}, err
	}
	if obs.CapacityUtilization != nil {
		obs.CapacityUtilization.WithLabelValues(c.ServiceID.String()).Set(snap.UtilizationPercentage)
	}
	return Report{
		Day:      c.Day.Format(time.DateOnly),
		Snapshot: snap,
		Signal:   Evaluate(snap, s.Threshold),
	}, nil
}
