package booking

import (
	"errors"
	"fmt"
	"iter"
	"time"
)

// DefaultStepMinutes is the candidate granularity used when callers do not supply one.
const DefaultStepMinutes = 30

// Availability queries are bounded so one request cannot enumerate an unbounded slot set.
const (
	DefaultMaxWindow = 31 * 24 * time.Hour
	DefaultMaxSlots  = 5000
)

// ErrInvalidWindow is returned for empty windows or non-positive step or duration.
var ErrInvalidWindow = errors.New("booking: invalid slot window")

// Generate returns a lazy sequence of candidate slots starting at windowStart every
// stepMinutes, each durationMinutes long, stopping once a start reaches windowEnd. The
// sequence holds no state and can be ranged over repeatedly with identical results.
func Generate(windowStart, windowEnd time.Time, stepMinutes, durationMinutes int) (iter.Seq[Slot], error) {
	if !windowEnd.After(windowStart) {
		return nil, fmt.Errorf("%w: end %s is not after start %s", ErrInvalidWindow, windowEnd.Format(time.RFC3339), windowStart.Format(time.RFC3339))
	}
	if stepMinutes <= 0 {
		return nil, fmt.Errorf("%w: step %d", ErrInvalidWindow, stepMinutes)
	}
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration %d", ErrInvalidWindow, durationMinutes)
	}
	step := time.Duration(stepMinutes) * time.Minute
	length := time.Duration(durationMinutes) * time.Minute
	return func(yield func(Slot) bool) {
		for start := windowStart; start.Before(windowEnd); start = start.Add(step) {
			if !yield(Slot{Start: start, End: start.Add(length)}) {
				return
			}
		}
	}, nil
}
