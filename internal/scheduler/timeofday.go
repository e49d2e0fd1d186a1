package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the length of a wall-clock day in minutes.
const MinutesPerDay = 24 * 60

// DateLayout is the calendar date format used for meetings and slots.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidTime is returned when a wall-clock value is not HH:MM.
	ErrInvalidTime = errors.New("scheduler: time must be formatted as HH:MM")
	// ErrInvalidDate is returned when a calendar date is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("scheduler: date must be formatted as YYYY-MM-DD")
)

// TimeOfDay is a wall-clock time expressed in minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" (or "H:MM") value.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	value = strings.TrimSpace(value)
	hours, minutes, ok := strings.Cut(value, ":")
	if !ok || len(hours) == 0 || len(hours) > 2 || len(minutes) != 2 {
		return 0, ErrInvalidTime
	}

	h, err := strconv.Atoi(hours)
	if err != nil || h < 0 || h > 23 {
		return 0, ErrInvalidTime
	}
	m, err := strconv.Atoi(minutes)
	if err != nil || m < 0 || m > 59 {
		return 0, ErrInvalidTime
	}

	return TimeOfDay(h*60 + m), nil
}

// Minutes returns the number of minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return int(t)
}

// Add returns t shifted by the given number of minutes without wrapping.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

// String renders the value as zero-padded HH:MM, folding it into a single day.
func (t TimeOfDay) String() string {
	normalized := ((int(t) % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", normalized/60, normalized%60)
}

// ParseDate validates a YYYY-MM-DD calendar date in the given location.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	parsed, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return parsed, nil
}
