package booking_test

import (
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/payhuk02/payhula-sub010/internal/booking"
)

func TestCheckAvailabilityHalfOpenBoundaries(t *testing.T) {
	existing := booking.Booking{ID: uuid.New(), ScheduledStart: at(10, 0), DurationMinutes: 30, Status: booking.StatusConfirmed}

	adjacent := booking.Slot{Start: at(10, 30), End: at(11, 0)}
	overlapping := booking.Slot{Start: at(10, 15), End: at(10, 45)}
	before := booking.Slot{Start: at(9, 30), End: at(10, 0)}

	out := booking.CheckAvailability(slices.Values([]booking.Slot{adjacent, overlapping, before}), []booking.Booking{existing})
	require.Len(t, out, 3)

	require.True(t, out[0].IsAvailable)
	require.Nil(t, out[0].ConflictingBookingID)

	require.False(t, out[1].IsAvailable)
	require.NotNil(t, out[1].ConflictingBookingID)
	require.Equal(t, existing.ID, *out[1].ConflictingBookingID)

	require.True(t, out[2].IsAvailable)
}

func TestCheckAvailabilityIgnoresCancelled(t *testing.T) {
	cancelled := booking.Booking{ID: uuid.New(), ScheduledStart: at(10, 0), DurationMinutes: 60, Status: booking.StatusCancelled}
	out := booking.CheckAvailability(slices.Values([]booking.Slot{{Start: at(10, 0), End: at(10, 30)}}), []booking.Booking{cancelled})
	require.Len(t, out, 1)
	require.True(t, out[0].IsAvailable)
}

func TestCheckAvailabilityReportsFirstConflictInInputOrder(t *testing.T) {
	first := booking.Booking{ID: uuid.New(), ScheduledStart: at(10, 15), DurationMinutes: 30, Status: booking.StatusPending}
	second := booking.Booking{ID: uuid.New(), ScheduledStart: at(10, 0), DurationMinutes: 60, Status: booking.StatusConfirmed}
	slot := booking.Slot{Start: at(10, 0), End: at(10, 30)}

	out := booking.CheckAvailability(slices.Values([]booking.Slot{slot}), []booking.Booking{first, second})
	require.Equal(t, first.ID, *out[0].ConflictingBookingID)

	out = booking.CheckAvailability(slices.Values([]booking.Slot{slot}), []booking.Booking{second, first})
	require.Equal(t, second.ID, *out[0].ConflictingBookingID)
}

func TestCheckAvailabilityWithGeneratedSlots(t *testing.T) {
	seq, err := booking.Generate(at(9, 0), at(12, 0), booking.DefaultStepMinutes, 60)
	require.NoError(t, err)
	existing := []booking.Booking{{ID: uuid.New(), ScheduledStart: at(10, 0), DurationMinutes: 60, Status: booking.StatusInProgress}}

	out := booking.CheckAvailability(seq, existing)
	require.Len(t, out, 6)
	var available []bool
	for _, s := range out {
		available = append(available, s.IsAvailable)
	}
	// 9:00 ends at 10:00 (free), 9:30 and 10:00 and 10:30 overlap, 11:00 and 11:30 free.
	require.Equal(t, []bool{true, false, false, false, true, true}, available)
}
