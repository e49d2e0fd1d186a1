package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/example/mentoring-scheduler/internal/scheduler"
)

func tod(t *testing.T, value string) scheduler.TimeOfDay {
	t.Helper()
	parsed, err := scheduler.ParseTimeOfDay(value)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q): %v", value, err)
	}
	return parsed
}

func demoWindows(t *testing.T) []Window {
	t.Helper()
	return []Window{
		{Day: time.Monday, Start: tod(t, "13:00"), End: tod(t, "15:00")},
		{Day: time.Tuesday, Start: tod(t, "10:00"), End: tod(t, "12:00")},
		{Day: time.Wednesday, Start: tod(t, "15:00"), End: tod(t, "17:00")},
		{Day: time.Thursday, Start: tod(t, "10:00"), End: tod(t, "12:00")},
		{Day: time.Friday, Start: tod(t, "11:00"), End: tod(t, "13:00")},
	}
}

func TestParseWeekday(t *testing.T) {
	t.Parallel()

	for input, want := range map[string]time.Weekday{"Monday": time.Monday, "fri": time.Friday, " SUNDAY ": time.Sunday} {
		got, err := ParseWeekday(input)
		if err != nil || got != want {
			t.Fatalf("ParseWeekday(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
	if _, err := ParseWeekday("Funday"); !errors.Is(err, ErrInvalidWeekday) {
		t.Fatalf("expected ErrInvalidWeekday, got %v", err)
	}
}

func TestEngine_SlotsFor(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC)
	friday := time.Date(2025, time.October, 17, 0, 0, 0, 0, time.UTC)

	t.Run("expands the matching weekday window", func(t *testing.T) {
		t.Parallel()
		slots := engine.SlotsFor(friday, demoWindows(t), 30, nil)
		if len(slots) != 4 {
			t.Fatalf("expected 4 Friday slots, got %d", len(slots))
		}
		if slots[0].Start.String() != "11:00" || slots[3].End.String() != "13:00" {
			t.Fatalf("unexpected slot bounds: %+v", slots)
		}
		for _, slot := range slots {
			if !slot.Available || slot.Date != "2025-10-17" {
				t.Fatalf("unexpected slot: %+v", slot)
			}
		}
	})

	t.Run("marks booked slots unavailable", func(t *testing.T) {
		t.Parallel()
		bookings := []scheduler.Booking{{ID: 1, Date: "2025-10-17", Start: tod(t, "11:30"), End: tod(t, "12:00")}}
		slots := engine.SlotsFor(friday, demoWindows(t), 30, bookings)
		want := []bool{true, false, true, true}
		for i, slot := range slots {
			if slot.Available != want[i] {
				t.Fatalf("slot %d (%s) availability = %v, want %v", i, slot.Start, slot.Available, want[i])
			}
		}
	})

	t.Run("weekend has no slots", func(t *testing.T) {
		t.Parallel()
		saturday := friday.AddDate(0, 0, 1)
		if slots := engine.SlotsFor(saturday, demoWindows(t), 30, nil); len(slots) != 0 {
			t.Fatalf("expected no Saturday slots, got %+v", slots)
		}
	})
}

func TestEngine_GenerateOccurrences(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC)
	monday := time.Date(2025, time.October, 13, 0, 0, 0, 0, time.UTC)

	t.Run("produces one occurrence per matching day", func(t *testing.T) {
		t.Parallel()
		occurrences, err := engine.GenerateOccurrences(demoWindows(t), GenerateOptions{RangeStart: monday, RangeEnd: monday.AddDate(0, 0, 6)})
		if err != nil {
			t.Fatalf("GenerateOccurrences returned error: %v", err)
		}
		if len(occurrences) != 5 {
			t.Fatalf("expected 5 weekday occurrences, got %d", len(occurrences))
		}
		if occurrences[0].Date != "2025-10-13" || occurrences[4].Date != "2025-10-17" {
			t.Fatalf("unexpected occurrence dates: %+v", occurrences)
		}
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		t.Parallel()
		_, err := engine.GenerateOccurrences(demoWindows(t), GenerateOptions{RangeStart: monday, RangeEnd: monday.AddDate(0, 0, -1)})
		if !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("expected ErrInvalidWindow, got %v", err)
		}
	})

	t.Run("normalizes timestamps into the engine location", func(t *testing.T) {
		t.Parallel()
		ist := time.FixedZone("IST", 5*60*60+30*60)
		local := NewEngine(ist)
		// 20:00 UTC on Sunday is already Monday in IST.
		sundayEvening := time.Date(2025, time.October, 12, 20, 0, 0, 0, time.UTC)
		occurrences, err := local.GenerateOccurrences(demoWindows(t), GenerateOptions{RangeStart: sundayEvening, RangeEnd: sundayEvening})
		if err != nil {
			t.Fatalf("GenerateOccurrences returned error: %v", err)
		}
		if len(occurrences) != 1 || occurrences[0].Day != time.Monday {
			t.Fatalf("expected a single Monday occurrence, got %+v", occurrences)
		}
	})
}
