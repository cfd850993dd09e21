package booking

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusNoShow      Status = "no_show"
	StatusRescheduled Status = "rescheduled"
	StatusRefunded    Status = "refunded"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted,
		StatusCancelled, StatusNoShow, StatusRescheduled, StatusRefunded:
		return true
	}
	return false
}

// Active reports whether the booking still occupies its slot. Cancelled bookings are
// logically absent.
func (s Status) Active() bool {
	return s != StatusCancelled
}

// Booking is a reservation of a service for a time interval.
type Booking struct {
	ID              uuid.UUID `json:"id"`
	ServiceID       uuid.UUID `json:"serviceId"`
	ScheduledStart  time.Time `json:"scheduledStart"`
	DurationMinutes int       `json:"durationMinutes"`
	Status          Status    `json:"status"`
}

// End returns the exclusive end of the booking interval.
func (b Booking) End() time.Time {
	return b.ScheduledStart.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// Slot is a candidate half-open interval [Start, End).
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether the half-open intervals [s.Start, s.End) and [start, end) intersect.
func (s Slot) Overlaps(start, end time.Time) bool {
	return s.Start.Before(end) && s.End.After(start)
}

// AvailabilitySlot is a candidate slot annotated with its availability.
type AvailabilitySlot struct {
	Start                time.Time  `json:"start"`
	End                  time.Time  `json:"end"`
	IsAvailable          bool       `json:"isAvailable"`
	ConflictingBookingID *uuid.UUID `json:"conflictingBookingId,omitempty"`
}
