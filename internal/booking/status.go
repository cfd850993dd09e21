package booking

import "errors"

// ErrInvalidTransition is returned when a status change would break the booking state machine.
var ErrInvalidTransition = errors.New("booking: invalid status transition")

var transitions = map[Status][]Status{
	StatusPending:     {StatusConfirmed, StatusCancelled, StatusRescheduled},
	StatusConfirmed:   {StatusInProgress, StatusCancelled, StatusNoShow, StatusRescheduled},
	StatusInProgress:  {StatusCompleted},
	StatusCompleted:   {StatusRefunded},
	StatusCancelled:   {StatusRefunded},
	StatusNoShow:      {StatusRefunded},
	StatusRescheduled: {StatusConfirmed, StatusCancelled},
}

// AllowedTransition reports whether a booking may move from one status to another.
func AllowedTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
