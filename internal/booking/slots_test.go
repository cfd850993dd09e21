package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/payhuk02/payhula-sub010/internal/booking"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 5, 4, hour, minute, 0, 0, time.UTC)
}

func TestGenerateSlots(t *testing.T) {
	seq, err := booking.Generate(at(9, 0), at(11, 0), 30, 60)
	require.NoError(t, err)

	var starts []time.Time
	for slot := range seq {
		require.False(t, slot.Start.Before(at(9, 0)))
		require.True(t, slot.Start.Before(at(11, 0)))
		require.Equal(t, 60*time.Minute, slot.End.Sub(slot.Start))
		starts = append(starts, slot.Start)
	}
	require.Equal(t, []time.Time{at(9, 0), at(9, 30), at(10, 0), at(10, 30)}, starts)

	var again []time.Time
	for slot := range seq {
		again = append(again, slot.Start)
	}
	require.Equal(t, starts, again)
}

func TestGenerateStopsEarly(t *testing.T) {
	seq, err := booking.Generate(at(0, 0), at(23, 0), 15, 15)
	require.NoError(t, err)
	count := 0
	for range seq {
		count++
		if count == 3 {
			break
		}
	}
	require.Equal(t, 3, count)
}

func TestGenerateRejectsInvalidWindow(t *testing.T) {
	cases := []struct {
		name             string
		start, end       time.Time
		step, durationMn int
	}{
		{"empty window", at(10, 0), at(10, 0), 30, 30},
		{"reversed window", at(11, 0), at(10, 0), 30, 30},
		{"zero step", at(9, 0), at(10, 0), 0, 30},
		{"negative duration", at(9, 0), at(10, 0), 30, -5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := booking.Generate(tc.start, tc.end, tc.step, tc.durationMn)
			require.ErrorIs(t, err, booking.ErrInvalidWindow)
		})
	}
}
