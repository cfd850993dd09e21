package booking

import "iter"

// CheckAvailability marks each candidate unavailable when an active booking overlaps it.
// When several bookings overlap, the first one in the caller's order is reported; callers
// that need a stable answer must pass bookings in a stable order.
//
// The result is a display-time hint. Only the authoritative store decides at write time.
func CheckAvailability(candidates iter.Seq[Slot], bookings []Booking) []AvailabilitySlot {
	var out []AvailabilitySlot
	if candidates == nil {
		return out
	}
	for slot := range candidates {
		result := AvailabilitySlot{Start: slot.Start, End: slot.End, IsAvailable: true}
		if conflict, ok := firstConflict(slot, bookings); ok {
			id := conflict.ID
			result.IsAvailable = false
			result.ConflictingBookingID = &id
		}
		out = append(out, result)
	}
	return out
}

func firstConflict(slot Slot, bookings []Booking) (Booking, bool) {
	for _, b := range bookings {
		if !b.Status.Active() {
			continue
		}
		if slot.Overlaps(b.ScheduledStart, b.End()) {
			return b, true
		}
	}
	return Booking{}, false
}
