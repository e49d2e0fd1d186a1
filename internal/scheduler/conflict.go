package scheduler

// Booking is the slice of a meeting that matters for availability checks.
type Booking struct {
	ID        int64
	Date      string
	Start     TimeOfDay
	End       TimeOfDay
	Cancelled bool
}

// Conflict identifies an existing booking that blocks a candidate range.
type Conflict struct {
	WithBookingID int64
	Date          string
	Start         TimeOfDay
	End           TimeOfDay
}

// Overlaps reports whether [s1, e1) and [s2, e2) intersect.
func Overlaps(s1, e1, s2, e2 TimeOfDay) bool {
	return s1 < e2 && e1 > s2
}

// DetectConflicts lists the bookings on date that overlap [start, end).
// Cancelled bookings never block.
func DetectConflicts(existing []Booking, date string, start, end TimeOfDay) []Conflict {
	var conflicts []Conflict
	for _, booking := range existing {
		if booking.Cancelled || booking.Date != date {
			continue
		}
		if !Overlaps(start, end, booking.Start, booking.End) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			WithBookingID: booking.ID,
			Date:          booking.Date,
			Start:         booking.Start,
			End:           booking.End,
		})
	}
	return conflicts
}

// IsSlotAvailable reports whether no active booking on date overlaps [start, end).
func IsSlotAvailable(existing []Booking, date string, start, end TimeOfDay) bool {
	return len(DetectConflicts(existing, date, start, end)) == 0
}
