package scheduler

// DefaultIntervalMinutes is the slot length used when callers do not supply one.
const DefaultIntervalMinutes = 30

// Slot is a discrete [Start, End) interval within a single day.
type Slot struct {
	Start TimeOfDay
	End   TimeOfDay
}

// ExpandSlots splits [start, end] into consecutive slots of intervalMinutes.
//
// The last slot is only produced when it fits entirely inside the window, and
// the expansion never crosses midnight.
func ExpandSlots(start, end TimeOfDay, intervalMinutes int) []Slot {
	if intervalMinutes <= 0 {
		intervalMinutes = DefaultIntervalMinutes
	}
	if end > MinutesPerDay {
		end = MinutesPerDay
	}
	if start < 0 || start >= end {
		return nil
	}

	slots := make([]Slot, 0, int(end-start)/intervalMinutes)
	for current := start; current.Add(intervalMinutes) <= end; current = current.Add(intervalMinutes) {
		slots = append(slots, Slot{Start: current, End: current.Add(intervalMinutes)})
	}
	return slots
}

// DefaultEndTime returns start plus the default meeting length, wrapping at midnight.
func DefaultEndTime(start TimeOfDay) TimeOfDay {
	end := (int(start) + DefaultIntervalMinutes) % MinutesPerDay
	if end < 0 {
		end += MinutesPerDay
	}
	return TimeOfDay(end)
}
