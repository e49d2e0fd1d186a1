package recurrence

import (
	"errors"
	"strings"
	"time"

	"github.com/example/mentoring-scheduler/internal/scheduler"
)

// Window is a recurring weekly availability window.
type Window struct {
	Day   time.Weekday
	Start scheduler.TimeOfDay
	End   scheduler.TimeOfDay
}

// GenerateOptions bounds occurrence expansion to an inclusive date range.
type GenerateOptions struct {
	RangeStart time.Time
	RangeEnd   time.Time
}

// Occurrence is a window materialized on a specific calendar date.
type Occurrence struct {
	Date  string
	Day   time.Weekday
	Start scheduler.TimeOfDay
	End   scheduler.TimeOfDay
}

// Slot is a bookable interval on a date together with its current availability.
type Slot struct {
	Date      string
	Start     scheduler.TimeOfDay
	End       scheduler.TimeOfDay
	Available bool
}

// Engine expands weekly windows into dated occurrences and slots.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that interprets dates in loc. If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// ErrInvalidWindow indicates the generation range is empty or unbounded.
var ErrInvalidWindow = errors.New("recurrence: generation range requires start <= end")

// ErrInvalidWeekday indicates a weekday name could not be parsed.
var ErrInvalidWeekday = errors.New("recurrence: unknown weekday")

// maxRangeDays caps occurrence expansion so a single request stays cheap.
const maxRangeDays = 366

// ParseWeekday accepts full or three-letter English weekday names.
func ParseWeekday(value string) (time.Weekday, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for day := time.Sunday; day <= time.Saturday; day++ {
		name := strings.ToLower(day.String())
		if value == name || (len(value) == 3 && strings.HasPrefix(name, value)) {
			return day, nil
		}
	}
	return time.Sunday, ErrInvalidWeekday
}

// WindowsOn returns the windows that recur on the weekday of date, in input order.
func (e *Engine) WindowsOn(date time.Time, windows []Window) []Window {
	day := date.In(e.loc()).Weekday()
	matched := make([]Window, 0, len(windows))
	for _, window := range windows {
		if window.Day == day {
			matched = append(matched, window)
		}
	}
	return matched
}

// GenerateOccurrences materializes windows for every date in the inclusive range.
func (e *Engine) GenerateOccurrences(windows []Window, opts GenerateOptions) ([]Occurrence, error) {
	loc := e.loc()
	if opts.RangeStart.IsZero() || opts.RangeEnd.IsZero() {
		return nil, ErrInvalidWindow
	}

	current := startOfDay(opts.RangeStart, loc)
	last := startOfDay(opts.RangeEnd, loc)
	if current.After(last) {
		return nil, ErrInvalidWindow
	}
	if limit := current.AddDate(0, 0, maxRangeDays); last.After(limit) {
		last = limit
	}

	occurrences := make([]Occurrence, 0)
	for !current.After(last) {
		for _, window := range e.WindowsOn(current, windows) {
			occurrences = append(occurrences, Occurrence{
				Date:  current.Format(scheduler.DateLayout),
				Day:   window.Day,
				Start: window.Start,
				End:   window.End,
			})
		}
		current = current.AddDate(0, 0, 1)
	}

	return occurrences, nil
}

// SlotsFor expands the windows recurring on date into interval-length slots and
// marks each one against the existing bookings.
func (e *Engine) SlotsFor(date time.Time, windows []Window, intervalMinutes int, bookings []scheduler.Booking) []Slot {
	day := startOfDay(date, e.loc())
	dateKey := day.Format(scheduler.DateLayout)

	slots := make([]Slot, 0)
	for _, window := range e.WindowsOn(day, windows) {
		for _, slot := range scheduler.ExpandSlots(window.Start, window.End, intervalMinutes) {
			slots = append(slots, Slot{
				Date:      dateKey,
				Start:     slot.Start,
				End:       slot.End,
				Available: scheduler.IsSlotAvailable(bookings, dateKey, slot.Start, slot.End),
			})
		}
	}
	return slots
}

func (e *Engine) loc() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
