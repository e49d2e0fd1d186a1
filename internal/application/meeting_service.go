package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/mentoring-scheduler/internal/notify"
	"github.com/example/mentoring-scheduler/internal/persistence"
	"github.com/example/mentoring-scheduler/internal/scheduler"
)

// User facing messages reported through the notification sink.
const (
	MsgChooseMeetingType = "Please choose a meeting type"
	MsgChooseCounterpart = "Please choose who you are meeting"
	MsgChooseDate        = "Please choose a date"
	MsgSelectTimeSlot    = "Please select a time slot"
	MsgMeetingBooked     = "Meeting booked successfully!"
	MsgMeetingCancelled  = "Meeting cancelled successfully"
	MsgCancelFailed      = "Failed to cancel meeting"
	MsgMeetingCompleted  = "Meeting marked as completed"
	MsgFeedbackSaved     = "Thank you for your feedback!"
	MsgSlotUnavailable   = "The selected time slot is no longer available"
	MsgMentorUnavailable = "This mentor is not accepting new mentees"
)

// validationFieldOrder is the order in which booking field errors are reported to the user.
var validationFieldOrder = []string{"category", "with", "date", "start_time", "end_time", "type", "location", "counterpart_id"}

// MeetingObserver receives meeting lifecycle events, typically for metrics.
type MeetingObserver interface {
	MeetingBooked(category string)
	BookingRejected(reason string)
	MeetingTransitioned(status string)
}

// MeetingService is the state machine for meetings.
type MeetingService struct {
	meetings  persistence.MeetingRepository
	directory persistence.DirectoryRepository
	notifier  notify.Sink
	observer  MeetingObserver
	linkToken func() string
	now       func() time.Time
	location  *time.Location
	logger    *slog.Logger

	// mu serializes the availability check and the insert of AddMeeting, and status transitions.
	mu sync.Mutex
}

// NewMeetingService wires dependencies for meeting operations.
func NewMeetingService(meetings persistence.MeetingRepository, directory persistence.DirectoryRepository, notifier notify.Sink, linkToken func() string, now func() time.Time) *MeetingService {
	return NewMeetingServiceWithLogger(meetings, directory, notifier, linkToken, now, nil)
}

// NewMeetingServiceWithLogger wires dependencies for meeting operations with a specific logger.
func NewMeetingServiceWithLogger(meetings persistence.MeetingRepository, directory persistence.DirectoryRepository, notifier notify.Sink, linkToken func() string, now func() time.Time, logger *slog.Logger) *MeetingService {
	if linkToken == nil {
		linkToken = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MeetingService{
		meetings:  meetings,
		directory: directory,
		notifier:  notifier,
		linkToken: linkToken,
		now:       now,
		location:  time.UTC,
		logger:    defaultLogger(logger),
	}
}

// WithObserver attaches a lifecycle observer and returns the service.
func (s *MeetingService) WithObserver(observer MeetingObserver) *MeetingService {
	if s != nil {
		s.observer = observer
	}
	return s
}

// WithLocation sets the time zone used to decide what "today" is.
func (s *MeetingService) WithLocation(loc *time.Location) *MeetingService {
	if s != nil && loc != nil {
		s.location = loc
	}
	return s
}

func (s *MeetingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MeetingService", operation, attrs...)
}

func (s *MeetingService) notify(ctx context.Context, n notify.Notification) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, n)
	}
}

// ListMeetings returns meetings in ascending id order. filter is "all" (or empty) or a status name.
func (s *MeetingService) ListMeetings(ctx context.Context, filter string) ([]Meeting, error) {
	if s == nil {
		return nil, fmt.Errorf("MeetingService is nil")
	}

	var repoFilter persistence.MeetingFilter
	if trimmed := strings.TrimSpace(filter); trimmed != "" && !strings.EqualFold(trimmed, StatusFilterAll) {
		status, ok := ParseStatus(trimmed)
		if !ok {
			return nil, newValidationError("status", "status must be one of all, Scheduled, Completed, Cancelled")
		}
		repoFilter.Status = string(status)
	}
	return s.list(ctx, repoFilter)
}

// Upcoming returns every Scheduled meeting regardless of its date.
func (s *MeetingService) Upcoming(ctx context.Context) ([]Meeting, error) {
	return s.ListMeetings(ctx, string(StatusScheduled))
}

// Completed returns every Completed meeting.
func (s *MeetingService) Completed(ctx context.Context) ([]Meeting, error) {
	return s.ListMeetings(ctx, string(StatusCompleted))
}

// MeetingByID returns the meeting with id. Absence is reported as false, not as an error.
func (s *MeetingService) MeetingByID(ctx context.Context, id int64) (Meeting, bool, error) {
	if s == nil {
		return Meeting{}, false, fmt.Errorf("MeetingService is nil")
	}
	record, err := s.meetings.GetMeeting(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return Meeting{}, false, nil
	}
	if err != nil {
		return Meeting{}, false, err
	}
	meeting, err := meetingFromRecord(record)
	if err != nil {
		return Meeting{}, false, err
	}
	return meeting, true, nil
}

// AddMeeting validates a draft and books it. Every rejection happens before any mutation.
func (s *MeetingService) AddMeeting(ctx context.Context, draft MeetingDraft) (meeting Meeting, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "AddMeeting",
		"category", draft.Category,
		"date", draft.Date,
		"start_time", draft.StartTime,
	)
	defer func() {
		if err != nil {
			s.reportRejection(ctx, err)
			logger.WarnContext(ctx, "booking rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if s.observer != nil {
			s.observer.MeetingBooked(string(meeting.Category))
		}
		s.notify(ctx, notify.Success(MsgMeetingBooked))
		logger.InfoContext(ctx, "meeting booked", "meeting_id", meeting.ID, "end_time", meeting.EndTime.String())
	}()

	meeting, err = s.buildMeeting(draft)
	if err != nil {
		return
	}

	if meeting.CounterpartID != nil {
		if err = s.checkCounterpart(ctx, meeting); err != nil {
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing []persistence.Meeting
	existing, err = s.meetings.ListMeetings(ctx, persistence.MeetingFilter{})
	if err != nil {
		return
	}
	var current []Meeting
	if current, err = meetingsFromRecords(existing); err != nil {
		return
	}
	if conflicts := scheduler.DetectConflicts(bookingsFromMeetings(current), meeting.Date, meeting.StartTime, meeting.EndTime); len(conflicts) > 0 {
		err = fmt.Errorf("%w: overlaps meeting %d", ErrSlotUnavailable, conflicts[0].WithBookingID)
		return
	}

	if meeting.ID, err = s.meetings.NextMeetingID(ctx); err != nil {
		return
	}
	now := s.now()
	meeting.Status = StatusScheduled
	meeting.CreatedAt = now
	meeting.UpdatedAt = now

	if err = s.meetings.CreateMeeting(ctx, meetingToRecord(meeting)); err != nil {
		err = mapRepoError(err)
		return
	}
	return meeting, nil
}

func (s *MeetingService) buildMeeting(draft MeetingDraft) (Meeting, error) {
	vErr := &ValidationError{}
	meeting := Meeting{
		With:          draft.With,
		CounterpartID: draft.CounterpartID,
		Location:      draft.Location,
		Link:          draft.Link,
		Purpose:       draft.Purpose,
	}

	if strings.TrimSpace(draft.Category) == "" {
		vErr.add("category", MsgChooseMeetingType)
	} else if category, ok := ParseCategory(draft.Category); ok {
		meeting.Category = category
	} else {
		vErr.add("category", MsgChooseMeetingType)
	}

	if strings.TrimSpace(draft.With) == "" {
		vErr.add("with", MsgChooseCounterpart)
	}

	if strings.TrimSpace(draft.Date) == "" {
		vErr.add("date", MsgChooseDate)
	} else if date, err := scheduler.ParseDate(strings.TrimSpace(draft.Date), s.location); err != nil {
		vErr.add("date", "Please choose a valid date (YYYY-MM-DD)")
	} else {
		today := s.now().In(s.location).Format(scheduler.DateLayout)
		meeting.Date = date.Format(scheduler.DateLayout)
		if meeting.Date < today {
			vErr.add("date", "Date cannot be in the past")
		}
	}

	if strings.TrimSpace(draft.StartTime) == "" {
		vErr.add("start_time", MsgSelectTimeSlot)
	} else if start, err := scheduler.ParseTimeOfDay(draft.StartTime); err != nil {
		vErr.add("start_time", "Please select a valid time slot (HH:MM)")
	} else {
		meeting.StartTime = start
		if strings.TrimSpace(draft.EndTime) == "" {
			meeting.EndTime = scheduler.DefaultEndTime(start)
		} else if end, err := scheduler.ParseTimeOfDay(draft.EndTime); err != nil {
			vErr.add("end_time", "End time must use HH:MM")
		} else {
			meeting.EndTime = end
		}
		if _, failed := vErr.FieldErrors["end_time"]; !failed && meeting.EndTime <= meeting.StartTime {
			vErr.add("end_time", "Meetings must end after they start on the same day")
		}
	}

	if strings.TrimSpace(draft.Type) == "" {
		meeting.Type = MeetingOnline
	} else if meetingType, ok := ParseMeetingType(draft.Type); ok {
		meeting.Type = meetingType
	} else {
		vErr.add("type", "Please choose Online or Offline")
	}

	switch meeting.Type {
	case MeetingOffline:
		if strings.TrimSpace(meeting.Location) == "" {
			vErr.add("location", "Please provide a location for offline meetings")
		}
		meeting.Link = ""
	case MeetingOnline:
		if strings.TrimSpace(meeting.Link) == "" {
			meeting.Link = "https://meet.google.com/meet-" + s.linkToken()
		}
		meeting.Location = ""
	}

	if vErr.HasErrors() {
		return Meeting{}, vErr
	}
	return meeting, nil
}

func (s *MeetingService) checkCounterpart(ctx context.Context, meeting Meeting) error {
	if s.directory == nil {
		return nil
	}
	role := meeting.Category.counterpartRole()
	record, err := s.directory.GetUser(ctx, string(role), *meeting.CounterpartID)
	if errors.Is(err, persistence.ErrNotFound) {
		return newValidationError("counterpart_id", MsgChooseCounterpart)
	}
	if err != nil {
		return err
	}
	if role == RoleFAM && !userFromRecord(record).CanTakeMentees() {
		return fmt.Errorf("%w: %s", ErrMentorUnavailable, record.Name)
	}
	return nil
}

func (s *MeetingService) reportRejection(ctx context.Context, err error) {
	var (
		message string
		vErr    *ValidationError
	)
	switch {
	case errors.As(err, &vErr):
		message = vErr.FirstMessage(validationFieldOrder...)
	case errors.Is(err, ErrSlotUnavailable):
		message = MsgSlotUnavailable
	case errors.Is(err, ErrMentorUnavailable):
		message = MsgMentorUnavailable
	default:
		message = "Failed to book meeting"
	}
	if s.observer != nil {
		s.observer.BookingRejected(ErrorKind(err))
	}
	s.notify(ctx, notify.Error(message))
}

// CancelMeeting moves a Scheduled meeting to Cancelled. Unknown ids and terminal
// meetings return false and leave the store untouched.
func (s *MeetingService) CancelMeeting(ctx context.Context, id int64) (cancelled bool, err error) {
	if s == nil {
		return false, fmt.Errorf("MeetingService is nil")
	}

	logger := s.loggerWith(ctx, "CancelMeeting", "meeting_id", id)
	defer func() {
		switch {
		case err != nil:
			logger.ErrorContext(ctx, "cancel failed", "error", err, "error_kind", ErrorKind(err))
		case cancelled:
			s.notify(ctx, notify.Success(MsgMeetingCancelled))
			logger.InfoContext(ctx, "meeting cancelled")
		default:
			s.notify(ctx, notify.Error(MsgCancelFailed))
			logger.InfoContext(ctx, "cancel ignored")
		}
	}()

	return s.transition(ctx, id, StatusCancelled)
}

// CompleteMeeting moves a Scheduled meeting to Completed with the same guards as CancelMeeting.
func (s *MeetingService) CompleteMeeting(ctx context.Context, id int64) (completed bool, err error) {
	if s == nil {
		return false, fmt.Errorf("MeetingService is nil")
	}

	logger := s.loggerWith(ctx, "CompleteMeeting", "meeting_id", id)
	defer func() {
		switch {
		case err != nil:
			logger.ErrorContext(ctx, "complete failed", "error", err, "error_kind", ErrorKind(err))
		case completed:
			s.notify(ctx, notify.Success(MsgMeetingCompleted))
			logger.InfoContext(ctx, "meeting completed")
		default:
			logger.InfoContext(ctx, "complete ignored")
		}
	}()

	return s.transition(ctx, id, StatusCompleted)
}

func (s *MeetingService) transition(ctx context.Context, id int64, target Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.meetings.GetMeeting(ctx, id)
	if errors.Is(err, persistence.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, mapRepoError(err)
	}
	next, ok := advanceStatus(ctx, Status(record.Status), target)
	if !ok {
		return false, nil
	}

	record.Status = string(next)
	record.UpdatedAt = s.now()
	if err := s.meetings.UpdateMeeting(ctx, record); err != nil {
		return false, mapRepoError(err)
	}
	if s.observer != nil {
		s.observer.MeetingTransitioned(string(target))
	}
	return true, nil
}

// RecordFeedback stores a 1-5 rating and optional comment on a Completed meeting.
func (s *MeetingService) RecordFeedback(ctx context.Context, id int64, rating int, feedback string) (meeting Meeting, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RecordFeedback", "meeting_id", id, "rating", rating)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "feedback rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		s.notify(ctx, notify.Success(MsgFeedbackSaved))
		logger.InfoContext(ctx, "feedback recorded")
	}()

	if rating < 1 || rating > 5 {
		err = newValidationError("rating", "rating must be between 1 and 5")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var record persistence.Meeting
	if record, err = s.meetings.GetMeeting(ctx, id); err != nil {
		err = mapRepoError(err)
		return
	}
	if Status(record.Status) != StatusCompleted {
		err = newValidationError("status", "feedback can only be given for completed meetings")
		return
	}

	record.Rating = &rating
	record.Feedback = strings.TrimSpace(feedback)
	record.UpdatedAt = s.now()
	if err = s.meetings.UpdateMeeting(ctx, record); err != nil {
		err = mapRepoError(err)
		return
	}
	return meetingFromRecord(record)
}

// Stats recomputes the meeting counters from the store.
func (s *MeetingService) Stats(ctx context.Context) (MeetingStats, error) {
	meetings, err := s.ListMeetings(ctx, StatusFilterAll)
	if err != nil {
		return MeetingStats{}, err
	}

	stats := MeetingStats{Total: len(meetings)}
	for _, meeting := range meetings {
		switch meeting.Status {
		case StatusScheduled:
			stats.Upcoming++
		case StatusCompleted:
			stats.Completed++
		case StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

func (s *MeetingService) list(ctx context.Context, filter persistence.MeetingFilter) ([]Meeting, error) {
	records, err := s.meetings.ListMeetings(ctx, filter)
	if err != nil {
		return nil, err
	}
	return meetingsFromRecords(records)
}
