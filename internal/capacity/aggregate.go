package capacity

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultLowCapacityThreshold is the utilisation percentage (20% remaining) that raises a
// low-capacity signal.
const DefaultLowCapacityThreshold = 80

// ErrInvalidCount is returned for negative slot or booking counts.
var ErrInvalidCount = errors.New("capacity: counts must be non-negative")

var hundred = decimal.NewFromInt(100)

// Snapshot describes how much of a service's capacity is booked.
type Snapshot struct {
	ServiceID             uuid.UUID `json:"serviceId"`
	TotalSlots            int       `json:"totalSlots"`
	BookedSlots           int       `json:"bookedSlots"`
	AvailableSlots        int       `json:"availableSlots"`
	UtilizationPercentage float64   `json:"utilizationPercentage"`
}

// Signal is the alert level derived from a snapshot.
type Signal string

const (
	SignalNone        Signal = "none"
	SignalLowCapacity Signal = "low_capacity"
	SignalFullyBooked Signal = "fully_booked"
)

// Aggregate computes remaining capacity and utilisation for a service.
func Aggregate(serviceID uuid.UUID, totalSlots, activeBookingCount int) (Snapshot, error) {
	if totalSlots < 0 || activeBookingCount < 0 {
		return Snapshot{}, fmt.Errorf("%w: total=%d active=%d", ErrInvalidCount, totalSlots, activeBookingCount)
	}
	available := totalSlots - activeBookingCount
	if available < 0 {
		available = 0
	}
	var utilization float64
	if totalSlots > 0 {
		utilization = utilizationRatio(totalSlots, activeBookingCount).InexactFloat64()
	}
	return Snapshot{
		ServiceID:             serviceID,
		TotalSlots:            totalSlots,
		BookedSlots:           activeBookingCount,
		AvailableSlots:        available,
		UtilizationPercentage: utilization,
	}, nil
}

// Evaluate derives the alert signal. A fully booked service reports SignalFullyBooked even
// though it also crosses the low-capacity threshold. Services without slots never signal.
func Evaluate(s Snapshot, thresholdPercent float64) Signal {
	if s.TotalSlots <= 0 {
		return SignalNone
	}
	if thresholdPercent <= 0 {
		thresholdPercent = DefaultLowCapacityThreshold
	}
	if s.AvailableSlots == 0 {
		return SignalFullyBooked
	}
	if utilizationRatio(s.TotalSlots, s.BookedSlots).GreaterThanOrEqual(decimal.NewFromFloat(thresholdPercent)) {
		return SignalLowCapacity
	}
	return SignalNone
}

// utilizationRatio is active/total*100 without rounding.
func utilizationRatio(totalSlots, active int) decimal.Decimal {
	return decimal.NewFromInt(int64(active)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(totalSlots)))
}
