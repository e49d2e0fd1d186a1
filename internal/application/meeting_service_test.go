package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/mentoring-scheduler/internal/notify"
	"github.com/example/mentoring-scheduler/internal/persistence"
	"github.com/example/mentoring-scheduler/internal/persistence/memory"
)

var meetingTestNow = time.Date(2025, 10, 16, 9, 0, 0, 0, time.UTC)

type observerStub struct {
	mu          sync.Mutex
	booked      []string
	rejected    []string
	transitions []string
	notesSaved  int
}

func (o *observerStub) MeetingBooked(category string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.booked = append(o.booked, category)
}

func (o *observerStub) BookingRejected(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, reason)
}

func (o *observerStub) MeetingTransitioned(status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, status)
}

func (o *observerStub) NotesSaved() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notesSaved++
}

type meetingFixture struct {
	store        *memory.Storage
	meetings     *MeetingService
	availability *AvailabilityService
	collector    *notify.Collector
	observer     *observerStub
}

func newMeetingFixture(t *testing.T) *meetingFixture {
	t.Helper()

	store := memory.New()
	ctx := context.Background()
	for _, user := range []persistence.User{
		{Role: "fam", Name: "Alex Chen", MaxMentees: 5, Mentees: 3, IsAvailable: true},
		{Role: "fam", Name: "Priya Sharma", MaxMentees: 4, Mentees: 4, IsAvailable: true},
		{Role: "professor", Name: "Dr. Sarah Johnson"},
	} {
		if _, err := store.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}

	collector := &notify.Collector{}
	observer := &observerStub{}
	meetings := NewMeetingService(store, store, collector, func() string { return "abc-defg-hij" }, func() time.Time { return meetingTestNow }).
		WithObserver(observer)
	availability := NewAvailabilityService(store, store, time.UTC, 0, nil)
	return &meetingFixture{store: store, meetings: meetings, availability: availability, collector: collector, observer: observer}
}

func draftAt(date, start, end string) MeetingDraft {
	return MeetingDraft{
		Category:  "Student-Professor",
		With:      "Dr. Sarah Johnson",
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Type:      "Offline",
		Location:  "Room 204",
		Purpose:   "Project review",
	}
}

func TestMeetingService_AddMeeting(t *testing.T) {
	t.Parallel()

	t.Run("books online meeting with defaults", func(t *testing.T) {
		t.Parallel()

		f := newMeetingFixture(t)
		meeting, err := f.meetings.AddMeeting(context.Background(), MeetingDraft{
			Category:  "Peer-to-Peer",
			With:      "Sam Patel",
			Date:      "2025-10-17",
			StartTime: "11:00",
			Location:  "ignored",
		})
		if err != nil {
			t.Fatalf("AddMeeting failed: %v", err)
		}
		if meeting.ID != 1 || meeting.Status != StatusScheduled {
			t.Fatalf("unexpected meeting %+v", meeting)
		}
		if meeting.EndTime.String() != "11:30" {
			t.Fatalf("expected default end 11:30, got %s", meeting.EndTime)
		}
		if meeting.Type != MeetingOnline || meeting.Link != "https://meet.google.com/meet-abc-defg-hij" || meeting.Location != "" {
			t.Fatalf("unexpected modality fields %+v", meeting)
		}
		got := f.collector.Drain()
		if len(got) != 1 || got[0].Message != MsgMeetingBooked || got[0].Severity != notify.SeveritySuccess {
			t.Fatalf("unexpected notifications %+v", got)
		}
		if len(f.observer.booked) != 1 || f.observer.booked[0] != "Peer-to-Peer" {
			t.Fatalf("unexpected observer calls %+v", f.observer.booked)
		}
	})

	t.Run("reports validation in field order", func(t *testing.T) {
		t.Parallel()

		f := newMeetingFixture(t)
		_, err := f.meetings.AddMeeting(context.Background(), MeetingDraft{})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		for _, field := range []string{"category", "with", "date", "start_time"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected error for %s, got %+v", field, vErr.FieldErrors)
			}
		}
		got := f.collector.Drain()
		if len(got) != 1 || got[0].Message != MsgChooseMeetingType {
			t.Fatalf("unexpected notifications %+v", got)
		}
		if len(f.observer.rejected) != 1 || f.observer.rejected[0] != "validation" {
			t.Fatalf("unexpected rejections %+v", f.observer.rejected)
		}
		meetings, _ := f.store.ListMeetings(context.Background(), persistence.MeetingFilter{})
		if len(meetings) != 0 {
			t.Fatalf("expected no meetings stored, got %d", len(meetings))
		}
	})

	cases := []struct {
		name    string
		mutate  func(*MeetingDraft)
		field   string
		message string
	}{
		{name: "past date", mutate: func(d *MeetingDraft) { d.Date = "2025-10-15" }, field: "date", message: "Date cannot be in the past"},
		{name: "malformed date", mutate: func(d *MeetingDraft) { d.Date = "17/10/2025" }, field: "date", message: "Please choose a valid date (YYYY-MM-DD)"},
		{name: "end before start", mutate: func(d *MeetingDraft) { d.EndTime = "10:00" }, field: "end_time", message: "Meetings must end after they start on the same day"},
		{name: "offline without location", mutate: func(d *MeetingDraft) { d.Location = " " }, field: "location", message: "Please provide a location for offline meetings"},
		{name: "unknown type", mutate: func(d *MeetingDraft) { d.Type = "Hybrid" }, field: "type", message: "Please choose Online or Offline"},
		{name: "unknown category", mutate: func(d *MeetingDraft) { d.Category = "Team" }, field: "category", message: MsgChooseMeetingType},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newMeetingFixture(t)
			draft := draftAt("2025-10-17", "11:00", "11:30")
			tc.mutate(&draft)
			_, err := f.meetings.AddMeeting(context.Background(), draft)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if msg := vErr.FieldErrors[tc.field]; msg != tc.message {
				t.Fatalf("expected %q on %s, got %+v", tc.message, tc.field, vErr.FieldErrors)
			}
		})
	}

	t.Run("today is bookable", func(t *testing.T) {
		t.Parallel()

		f := newMeetingFixture(t)
		if _, err := f.meetings.AddMeeting(context.Background(), draftAt("2025-10-16", "14:00", "")); err != nil {
			t.Fatalf("AddMeeting for today failed: %v", err)
		}
	})

	t.Run("rejects full mentor", func(t *testing.T) {
		t.Parallel()

		f := newMeetingFixture(t)
		id := int64(2)
		draft := draftAt("2025-10-17", "11:00", "11:30")
		draft.Category = "Student-FAM"
		draft.With = "Priya Sharma"
		draft.CounterpartID = &id
		_, err := f.meetings.AddMeeting(context.Background(), draft)
		if !errors.Is(err, ErrMentorUnavailable) {
			t.Fatalf("expected ErrMentorUnavailable, got %v", err)
		}
		got := f.collector.Drain()
		if len(got) != 1 || got[0].Message != MsgMentorUnavailable {
			t.Fatalf("unexpected notifications %+v", got)
		}
	})

	t.Run("accepts available mentor", func(t *testing.T) {
		t.Parallel()

		f := newMeetingFixture(t)
		id := int64(1)
		draft := draftAt("2025-10-17", "11:00", "11:30")
		draft.Category = "Student-FAM"
		draft.With = "Alex Chen"
		draft.CounterpartID = &id
		meeting, err := f.meetings.AddMeeting(context.Background(), draft)
		if err != nil {
			t.Fatalf("AddMeeting failed: %v", err)
		}
		if meeting.CounterpartID == nil || *meeting.CounterpartID != 1 {
			t.Fatalf("expected counterpart id to be kept, got %+v", meeting.CounterpartID)
		}
	})

	t.Run("rejects unknown counterpart", func(t *testing.T) {
		t.Parallel()

		f := newMeetingFixture(t)
		id := int64(42)
		draft := draftAt("2025-10-17", "11:00", "11:30")
		draft.CounterpartID = &id
		_, err := f.meetings.AddMeeting(context.Background(), draft)
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["counterpart_id"] == "" {
			t.Fatalf("expected counterpart validation error, got %v", err)
		}
	})
}

func TestMeetingService_BookingConflicts(t *testing.T) {
	t.Parallel()

	f := newMeetingFixture(t)
	ctx := context.Background()

	blocker, err := f.meetings.AddMeeting(ctx, draftAt("2025-10-17", "11:00", "11:30"))
	if err != nil {
		t.Fatalf("AddMeeting failed: %v", err)
	}

	available, err := f.availability.IsSlotAvailable(ctx, "2025-10-17", "11:30", "12:00")
	if err != nil || !available {
		t.Fatalf("expected adjacent slot to be free, got %v, %v", available, err)
	}
	available, err = f.availability.IsSlotAvailable(ctx, "2025-10-17", "11:15", "11:45")
	if err != nil || available {
		t.Fatalf("expected overlapping slot to be taken, got %v, %v", available, err)
	}

	_, err = f.meetings.AddMeeting(ctx, draftAt("2025-10-17", "11:15", "11:45"))
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	if kinds := f.observer.rejected; len(kinds) != 1 || kinds[0] != "slot_unavailable" {
		t.Fatalf("unexpected rejections %+v", kinds)
	}

	if ok, err := f.meetings.CancelMeeting(ctx, blocker.ID); err != nil || !ok {
		t.Fatalf("CancelMeeting = %v, %v", ok, err)
	}
	available, err = f.availability.IsSlotAvailable(ctx, "2025-10-17", "11:15", "11:45")
	if err != nil || !available {
		t.Fatalf("expected slot to free up after cancel, got %v, %v", available, err)
	}
	second, err := f.meetings.AddMeeting(ctx, draftAt("2025-10-17", "11:15", "11:45"))
	if err != nil {
		t.Fatalf("AddMeeting after cancel failed: %v", err)
	}
	if second.ID != 2 {
		t.Fatalf("expected id 2, got %d", second.ID)
	}
}

func TestMeetingService_ConcurrentBookingsDoNotOverlap(t *testing.T) {
	t.Parallel()

	f := newMeetingFixture(t)
	ctx := context.Background()

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.meetings.AddMeeting(ctx, draftAt("2025-10-20", "10:00", "10:30")); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one booking to win, got %d", successes)
	}
}

func TestMeetingService_Transitions(t *testing.T) {
	t.Parallel()

	f := newMeetingFixture(t)
	ctx := context.Background()

	first, err := f.meetings.AddMeeting(ctx, draftAt("2025-10-17", "09:00", "09:30"))
	if err != nil {
		t.Fatalf("AddMeeting failed: %v", err)
	}
	second, err := f.meetings.AddMeeting(ctx, draftAt("2025-10-17", "10:00", "10:30"))
	if err != nil {
		t.Fatalf("AddMeeting failed: %v", err)
	}
	f.collector.Drain()

	if ok, err := f.meetings.CancelMeeting(ctx, first.ID); err != nil || !ok {
		t.Fatalf("CancelMeeting = %v, %v", ok, err)
	}
	if ok, _ := f.meetings.CancelMeeting(ctx, first.ID); ok {
		t.Fatal("expected cancelling twice to be ignored")
	}
	if ok, _ := f.meetings.CompleteMeeting(ctx, first.ID); ok {
		t.Fatal("expected completing a cancelled meeting to be ignored")
	}
	if ok, _ := f.meetings.CancelMeeting(ctx, 99); ok {
		t.Fatal("expected unknown id to be ignored")
	}

	got := f.collector.Drain()
	if len(got) != 3 || got[0].Message != MsgMeetingCancelled || got[1].Message != MsgCancelFailed || got[2].Message != MsgCancelFailed {
		t.Fatalf("unexpected notifications %+v", got)
	}

	if ok, err := f.meetings.CompleteMeeting(ctx, second.ID); err != nil || !ok {
		t.Fatalf("CompleteMeeting = %v, %v", ok, err)
	}
	if len(f.observer.transitions) != 2 || f.observer.transitions[0] != "Cancelled" || f.observer.transitions[1] != "Completed" {
		t.Fatalf("unexpected transitions %+v", f.observer.transitions)
	}

	stats, err := f.meetings.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats != (MeetingStats{Upcoming: 0, Completed: 1, Cancelled: 1, Total: 2}) {
		t.Fatalf("unexpected stats %+v", stats)
	}

	completed, err := f.meetings.Completed(ctx)
	if err != nil || len(completed) != 1 || completed[0].ID != second.ID {
		t.Fatalf("Completed = %+v, %v", completed, err)
	}
	all, err := f.meetings.ListMeetings(ctx, "ALL")
	if err != nil || len(all) != 2 || all[0].ID != first.ID {
		t.Fatalf("ListMeetings(all) = %+v, %v", all, err)
	}
	if _, err := f.meetings.ListMeetings(ctx, "Pending"); err == nil {
		t.Fatal("expected unknown filter to fail")
	}
}

func TestMeetingService_UpcomingIgnoresDate(t *testing.T) {
	t.Parallel()

	store := memory.New()
	ctx := context.Background()
	now := meetingTestNow
	svc := NewMeetingService(store, store, nil, func() string { return "abc-defg-hij" }, func() time.Time { return now })

	booked, err := svc.AddMeeting(ctx, draftAt("2025-10-17", "09:00", "09:30"))
	if err != nil {
		t.Fatalf("AddMeeting failed: %v", err)
	}

	now = now.AddDate(0, 1, 0)
	upcoming, err := svc.Upcoming(ctx)
	if err != nil {
		t.Fatalf("Upcoming failed: %v", err)
	}
	if len(upcoming) != 1 || upcoming[0].ID != booked.ID {
		t.Fatalf("expected past-dated scheduled meeting to stay upcoming, got %+v", upcoming)
	}
}

type failingMeetings struct {
	*memory.Storage
	err error
}

func (f failingMeetings) GetMeeting(ctx context.Context, id int64) (persistence.Meeting, error) {
	return persistence.Meeting{}, f.err
}

func TestMeetingService_TransitionStoreFailure(t *testing.T) {
	t.Parallel()

	store := memory.New()
	broken := errors.New("disk I/O error")
	collector := &notify.Collector{}
	svc := NewMeetingService(failingMeetings{Storage: store, err: broken}, store, collector, nil, func() time.Time { return meetingTestNow })

	ok, err := svc.CancelMeeting(context.Background(), 1)
	if ok || !errors.Is(err, broken) {
		t.Fatalf("CancelMeeting = %v, %v", ok, err)
	}
	if got := collector.Drain(); len(got) != 0 {
		t.Fatalf("expected no notification on store failure, got %+v", got)
	}

	ok, err = svc.CompleteMeeting(context.Background(), 1)
	if ok || !errors.Is(err, broken) {
		t.Fatalf("CompleteMeeting = %v, %v", ok, err)
	}
	if kind := ErrorKind(err); kind != "unexpected" {
		t.Fatalf("expected unexpected error kind, got %q", kind)
	}
}

func TestMeetingService_RecordFeedback(t *testing.T) {
	t.Parallel()

	f := newMeetingFixture(t)
	ctx := context.Background()

	meeting, err := f.meetings.AddMeeting(ctx, draftAt("2025-10-17", "09:00", "09:30"))
	if err != nil {
		t.Fatalf("AddMeeting failed: %v", err)
	}

	_, err = f.meetings.RecordFeedback(ctx, meeting.ID, 4, "great")
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["status"] == "" {
		t.Fatalf("expected status validation error, got %v", err)
	}

	if _, err := f.meetings.CompleteMeeting(ctx, meeting.ID); err != nil {
		t.Fatalf("CompleteMeeting failed: %v", err)
	}
	if _, err := f.meetings.RecordFeedback(ctx, meeting.ID, 6, ""); !errors.As(err, &vErr) {
		t.Fatalf("expected rating validation error, got %v", err)
	}
	if _, err := f.meetings.RecordFeedback(ctx, 99, 5, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	updated, err := f.meetings.RecordFeedback(ctx, meeting.ID, 5, "  Very helpful session  ")
	if err != nil {
		t.Fatalf("RecordFeedback failed: %v", err)
	}
	if updated.Rating == nil || *updated.Rating != 5 || updated.Feedback != "Very helpful session" {
		t.Fatalf("unexpected feedback fields %+v", updated)
	}

	stored, ok, err := f.meetings.MeetingByID(ctx, meeting.ID)
	if err != nil || !ok || stored.Rating == nil || *stored.Rating != 5 {
		t.Fatalf("MeetingByID = %+v, %v, %v", stored, ok, err)
	}
	if _, ok, err := f.meetings.MeetingByID(ctx, 99); ok || err != nil {
		t.Fatalf("expected absent meeting, got %v, %v", ok, err)
	}
}

func TestMeetingService_NilReceiver(t *testing.T) {
	t.Parallel()

	var svc *MeetingService
	if _, err := svc.AddMeeting(context.Background(), MeetingDraft{}); err == nil {
		t.Fatal("expected error from nil service")
	}
	if _, err := svc.CancelMeeting(context.Background(), 1); err == nil {
		t.Fatal("expected error from nil service")
	}
}
