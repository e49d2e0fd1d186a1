package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/mentoring-scheduler/internal/persistence"
	"github.com/example/mentoring-scheduler/internal/recurrence"
	"github.com/example/mentoring-scheduler/internal/scheduler"
)

// AvailabilityService turns the weekly availability windows into bookable slots.
type AvailabilityService struct {
	windows         persistence.AvailabilityRepository
	meetings        persistence.MeetingRepository
	engine          *recurrence.Engine
	location        *time.Location
	defaultInterval int
	logger          *slog.Logger
}

// NewAvailabilityService wires the availability dependencies. A non-positive
// defaultInterval falls back to scheduler.DefaultIntervalMinutes.
func NewAvailabilityService(windows persistence.AvailabilityRepository, meetings persistence.MeetingRepository, loc *time.Location, defaultInterval int, logger *slog.Logger) *AvailabilityService {
	if loc == nil {
		loc = time.UTC
	}
	if defaultInterval <= 0 {
		defaultInterval = scheduler.DefaultIntervalMinutes
	}
	return &AvailabilityService{
		windows:         windows,
		meetings:        meetings,
		engine:          recurrence.NewEngine(loc),
		location:        loc,
		defaultInterval: defaultInterval,
		logger:          defaultLogger(logger),
	}
}

// Windows returns the weekly availability windows in stored order.
func (s *AvailabilityService) Windows(ctx context.Context) ([]AvailabilityWindow, error) {
	if s == nil {
		return nil, fmt.Errorf("AvailabilityService is nil")
	}
	records, err := s.windows.ListAvailability(ctx)
	if err != nil {
		return nil, err
	}

	windows := make([]AvailabilityWindow, 0, len(records))
	for _, record := range records {
		start, err := scheduler.ParseTimeOfDay(record.Start)
		if err != nil {
			return nil, fmt.Errorf("availability window %s start: %w", record.Day, err)
		}
		end, err := scheduler.ParseTimeOfDay(record.End)
		if err != nil {
			return nil, fmt.Errorf("availability window %s end: %w", record.Day, err)
		}
		windows = append(windows, AvailabilityWindow{Day: record.Day, Start: start, End: end})
	}
	return windows, nil
}

// WindowsForDay returns the windows recurring on the named weekday ("Friday" or "fri").
func (s *AvailabilityService) WindowsForDay(ctx context.Context, day string) ([]AvailabilityWindow, error) {
	weekday, err := recurrence.ParseWeekday(day)
	if err != nil {
		return nil, newValidationError("day", "Please choose a weekday")
	}
	windows, err := s.Windows(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]AvailabilityWindow, 0, len(windows))
	for _, window := range windows {
		if window.Day == weekday {
			matched = append(matched, window)
		}
	}
	return matched, nil
}

// Occurrences places the weekly windows on every date from from to to inclusive.
// Ranges longer than a year are truncated.
func (s *AvailabilityService) Occurrences(ctx context.Context, from, to string) (occurrences []Occurrence, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}

	logger := serviceLogger(ctx, s.logger, "AvailabilityService", "Occurrences", "from", from, "to", to)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "occurrence expansion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "occurrences expanded", "occurrence_count", len(occurrences))
	}()

	vErr := &ValidationError{}
	start, startErr := scheduler.ParseDate(strings.TrimSpace(from), s.location)
	if startErr != nil {
		vErr.add("from", MsgChooseDate)
	}
	end, endErr := scheduler.ParseDate(strings.TrimSpace(to), s.location)
	if endErr != nil {
		vErr.add("to", MsgChooseDate)
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	windows, err := s.Windows(ctx)
	if err != nil {
		return
	}
	generated, err := s.engine.GenerateOccurrences(toRecurrenceWindows(windows), recurrence.GenerateOptions{RangeStart: start, RangeEnd: end})
	if errors.Is(err, recurrence.ErrInvalidWindow) {
		err = newValidationError("to", MsgRangeReversed)
		return
	}
	if err != nil {
		return
	}

	occurrences = make([]Occurrence, 0, len(generated))
	for _, occurrence := range generated {
		occurrences = append(occurrences, Occurrence{Date: occurrence.Date, Day: occurrence.Day, Start: occurrence.Start, End: occurrence.End})
	}
	return occurrences, nil
}

// SlotsForDate expands the windows of the date's weekday into slots and marks
// those overlapping a non-cancelled meeting as unavailable.
func (s *AvailabilityService) SlotsForDate(ctx context.Context, date string, intervalMinutes int) (slots []Slot, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}

	logger := serviceLogger(ctx, s.logger, "AvailabilityService", "SlotsForDate", "date", date, "interval", intervalMinutes)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "slot generation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "slots generated", "slot_count", len(slots))
	}()

	day, err := scheduler.ParseDate(date, s.location)
	if err != nil {
		err = newValidationError("date", MsgChooseDate)
		return
	}
	if intervalMinutes <= 0 {
		intervalMinutes = s.defaultInterval
	}

	windows, err := s.Windows(ctx)
	if err != nil {
		return
	}
	bookings, err := s.bookings(ctx)
	if err != nil {
		return
	}

	generated := s.engine.SlotsFor(day, toRecurrenceWindows(windows), intervalMinutes, bookings)
	slots = make([]Slot, 0, len(generated))
	for _, slot := range generated {
		slots = append(slots, Slot{Date: slot.Date, Start: slot.Start, End: slot.End, Available: slot.Available})
	}
	return slots, nil
}

// IsSlotAvailable reports whether [start, end) on date is free of non-cancelled meetings.
func (s *AvailabilityService) IsSlotAvailable(ctx context.Context, date, start, end string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("AvailabilityService is nil")
	}

	vErr := &ValidationError{}
	day, err := scheduler.ParseDate(date, s.location)
	if err != nil {
		vErr.add("date", MsgChooseDate)
	}
	startTime, err := scheduler.ParseTimeOfDay(start)
	if err != nil {
		vErr.add("start_time", MsgSelectTimeSlot)
	}
	endTime := scheduler.DefaultEndTime(startTime)
	if strings.TrimSpace(end) != "" {
		if endTime, err = scheduler.ParseTimeOfDay(end); err != nil {
			vErr.add("end_time", "End time must use HH:MM")
		}
	}
	if vErr.HasErrors() {
		return false, vErr
	}
	if endTime <= startTime {
		return false, newValidationError("end_time", "Meetings must end after they start on the same day")
	}

	bookings, err := s.bookings(ctx)
	if err != nil {
		return false, err
	}
	return scheduler.IsSlotAvailable(bookings, day.Format(scheduler.DateLayout), startTime, endTime), nil
}

// DefaultEndTime returns start plus the default meeting length.
func (s *AvailabilityService) DefaultEndTime(start scheduler.TimeOfDay) scheduler.TimeOfDay {
	return scheduler.DefaultEndTime(start)
}

func (s *AvailabilityService) bookings(ctx context.Context) ([]scheduler.Booking, error) {
	if s.meetings == nil {
		return nil, nil
	}
	records, err := s.meetings.ListMeetings(ctx, persistence.MeetingFilter{})
	if err != nil {
		return nil, err
	}
	meetings, err := meetingsFromRecords(records)
	if err != nil {
		return nil, err
	}
	return bookingsFromMeetings(meetings), nil
}

func toRecurrenceWindows(windows []AvailabilityWindow) []recurrence.Window {
	converted := make([]recurrence.Window, 0, len(windows))
	for _, window := range windows {
		converted = append(converted, recurrence.Window{Day: window.Day, Start: window.Start, End: window.End})
	}
	return converted
}
