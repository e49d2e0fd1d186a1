package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/mentoring-scheduler/internal/notify"
	"github.com/example/mentoring-scheduler/internal/persistence"
)

// MsgNotesSaved confirms a notes write.
const MsgNotesSaved = "Meeting notes saved successfully!"

// NotesObserver receives notes events, typically for metrics.
type NotesObserver interface {
	NotesSaved()
}

// NotesService manages the private notes mentors keep on their Student-FAM meetings.
type NotesService struct {
	notes    persistence.NotesRepository
	meetings persistence.MeetingRepository
	notifier notify.Sink
	observer NotesObserver
	logger   *slog.Logger
}

// NewNotesService constructs a NotesService.
func NewNotesService(notes persistence.NotesRepository, meetings persistence.MeetingRepository, notifier notify.Sink, logger *slog.Logger) *NotesService {
	return &NotesService{
		notes:    notes,
		meetings: meetings,
		notifier: notifier,
		logger:   defaultLogger(logger),
	}
}

// WithObserver attaches an observer and returns the service.
func (s *NotesService) WithObserver(observer NotesObserver) *NotesService {
	if s != nil {
		s.observer = observer
	}
	return s
}

// Notes returns the notes for one of the mentor's meetings, or an empty string when none exist.
func (s *NotesService) Notes(ctx context.Context, principal Principal, meetingID int64) (string, error) {
	if s == nil {
		return "", fmt.Errorf("NotesService is nil")
	}
	if principal.Role != RoleFAM {
		return "", ErrUnauthorized
	}
	if _, err := s.ownedMeeting(ctx, principal, meetingID); err != nil {
		return "", err
	}
	notes, err := s.notes.LoadNotes(ctx)
	if err != nil {
		return "", err
	}
	return notes[meetingID], nil
}

// SaveNotes stores trimmed notes for a Student-FAM meeting. Only the FAM the
// meeting was booked with may write its notes.
func (s *NotesService) SaveNotes(ctx context.Context, principal Principal, meetingID int64, text string) (err error) {
	if s == nil {
		return fmt.Errorf("NotesService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "NotesService", "SaveNotes", "meeting_id", meetingID, "user_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "notes rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if s.observer != nil {
			s.observer.NotesSaved()
		}
		if s.notifier != nil {
			s.notifier.Notify(ctx, notify.Success(MsgNotesSaved))
		}
		logger.InfoContext(ctx, "notes saved")
	}()

	if principal.Role != RoleFAM {
		return ErrUnauthorized
	}

	if _, err = s.ownedMeeting(ctx, principal, meetingID); err != nil {
		return err
	}
	return s.notes.SaveNotes(ctx, meetingID, strings.TrimSpace(text))
}

// ownedMeeting loads a Student-FAM meeting booked with the principal.
func (s *NotesService) ownedMeeting(ctx context.Context, principal Principal, meetingID int64) (persistence.Meeting, error) {
	record, err := s.meetings.GetMeeting(ctx, meetingID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Meeting{}, ErrNotFound
		}
		return persistence.Meeting{}, mapRepoError(err)
	}
	if Category(record.Category) != CategoryStudentFAM {
		return persistence.Meeting{}, newValidationError("meeting_id", "notes can only be kept for Student-FAM meetings")
	}
	if !bookedWith(record, principal) {
		return persistence.Meeting{}, fmt.Errorf("%w: meeting %d belongs to another mentor", ErrUnauthorized, meetingID)
	}
	return record, nil
}

// bookedWith reports whether the meeting's counterpart is the principal. A stored
// counterpart id decides; otherwise the counterpart name must contain the
// principal's name, ignoring case.
func bookedWith(record persistence.Meeting, principal Principal) bool {
	if record.CounterpartID != nil {
		return *record.CounterpartID == principal.UserID
	}
	name := strings.ToLower(strings.TrimSpace(principal.Name))
	return name != "" && strings.Contains(strings.ToLower(record.With), name)
}

// MentorMeetings returns the Student-FAM meetings booked with the mentor, each
// paired with its notes.
func (s *NotesService) MentorMeetings(ctx context.Context, principal Principal) ([]MentorMeeting, error) {
	if s == nil {
		return nil, fmt.Errorf("NotesService is nil")
	}
	if principal.Role != RoleFAM {
		return nil, ErrUnauthorized
	}

	records, err := s.meetings.ListMeetings(ctx, persistence.MeetingFilter{})
	if err != nil {
		return nil, err
	}
	notes, err := s.notes.LoadNotes(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]MentorMeeting, 0)
	for _, record := range records {
		if Category(record.Category) != CategoryStudentFAM || !bookedWith(record, principal) {
			continue
		}
		meeting, err := meetingFromRecord(record)
		if err != nil {
			return nil, err
		}
		matched = append(matched, MentorMeeting{Meeting: meeting, Notes: notes[record.ID]})
	}
	return matched, nil
}
