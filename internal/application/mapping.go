package application

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/example/mentoring-scheduler/internal/persistence"
	"github.com/example/mentoring-scheduler/internal/scheduler"
)

func userFromRecord(record persistence.User) User {
	role, ok := ParseRole(record.Role)
	if !ok {
		role = Role(record.Role)
	}
	user := User{
		ID:             record.ID,
		Name:           record.Name,
		Role:           role,
		Email:          record.Email,
		Phone:          record.Phone,
		SRN:            record.SRN,
		StaffID:        record.StaffID,
		Department:     record.Department,
		Year:           record.Year,
		Courses:        append([]string(nil), record.Courses...),
		OfficeLocation: record.OfficeLocation,
		Specialization: record.Specialization,
		Bio:            record.Bio,
		Rating:         record.Rating,
		Mentees:        record.Mentees,
		MaxMentees:     record.MaxMentees,
		IsAvailable:    record.IsAvailable,
	}
	if strings.TrimSpace(user.Name) == "" {
		user.Name = DisplayNameFromEmail(user.Email)
	}
	return user
}

func userToRecord(user User) persistence.User {
	return persistence.User{
		ID:             user.ID,
		Role:           string(user.Role),
		Name:           user.Name,
		Email:          user.Email,
		Phone:          user.Phone,
		SRN:            user.SRN,
		StaffID:        user.StaffID,
		Department:     user.Department,
		Year:           user.Year,
		Courses:        append([]string(nil), user.Courses...),
		OfficeLocation: user.OfficeLocation,
		Specialization: user.Specialization,
		Bio:            user.Bio,
		Rating:         user.Rating,
		Mentees:        user.Mentees,
		MaxMentees:     user.MaxMentees,
		IsAvailable:    user.IsAvailable,
	}
}

func usersFromRecords(records []persistence.User) []User {
	users := make([]User, 0, len(records))
	for _, record := range records {
		users = append(users, userFromRecord(record))
	}
	return users
}

func meetingFromRecord(record persistence.Meeting) (Meeting, error) {
	start, err := scheduler.ParseTimeOfDay(record.StartTime)
	if err != nil {
		return Meeting{}, fmt.Errorf("meeting %d start: %w", record.ID, err)
	}
	end, err := scheduler.ParseTimeOfDay(record.EndTime)
	if err != nil {
		return Meeting{}, fmt.Errorf("meeting %d end: %w", record.ID, err)
	}
	record = persistence.CloneMeeting(record)
	return Meeting{
		ID:            record.ID,
		Category:      Category(record.Category),
		With:          record.With,
		CounterpartID: record.CounterpartID,
		Date:          record.Date,
		StartTime:     start,
		EndTime:       end,
		Type:          MeetingType(record.Type),
		Location:      record.Location,
		Link:          record.Link,
		Purpose:       record.Purpose,
		Status:        Status(record.Status),
		Rating:        record.Rating,
		Feedback:      record.Feedback,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}, nil
}

func meetingToRecord(meeting Meeting) persistence.Meeting {
	return persistence.CloneMeeting(persistence.Meeting{
		ID:            meeting.ID,
		Category:      string(meeting.Category),
		With:          meeting.With,
		CounterpartID: meeting.CounterpartID,
		Date:          meeting.Date,
		StartTime:     meeting.StartTime.String(),
		EndTime:       meeting.EndTime.String(),
		Type:          string(meeting.Type),
		Location:      meeting.Location,
		Link:          meeting.Link,
		Purpose:       meeting.Purpose,
		Status:        string(meeting.Status),
		Rating:        meeting.Rating,
		Feedback:      meeting.Feedback,
		CreatedAt:     meeting.CreatedAt,
		UpdatedAt:     meeting.UpdatedAt,
	})
}

func meetingsFromRecords(records []persistence.Meeting) ([]Meeting, error) {
	meetings := make([]Meeting, 0, len(records))
	for _, record := range records {
		meeting, err := meetingFromRecord(record)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, meeting)
	}
	return meetings, nil
}

func bookingsFromMeetings(meetings []Meeting) []scheduler.Booking {
	bookings := make([]scheduler.Booking, 0, len(meetings))
	for _, meeting := range meetings {
		bookings = append(bookings, scheduler.Booking{
			ID:        meeting.ID,
			Date:      meeting.Date,
			Start:     meeting.StartTime,
			End:       meeting.EndTime,
			Cancelled: meeting.Status == StatusCancelled,
		})
	}
	return bookings
}

func sessionFromRecord(record persistence.Session) Session {
	return Session{
		Token:     record.Token,
		User:      userFromRecord(record.User),
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}
}

func sessionToRecord(session Session) persistence.Session {
	return persistence.Session{
		Token:     session.Token,
		User:      userToRecord(session.User),
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}
}

// mapRepoError converts persistence sentinels into application errors.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, persistence.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	default:
		return err
	}
}

var nameSeparators = regexp.MustCompile(`[._-]+`)

// DisplayNameFromEmail derives a display name from the local part of an email
// address ("meera.iyer@x" becomes "Meera Iyer"). Without an email it returns "User".
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	words := strings.Fields(nameSeparators.ReplaceAllString(local, " "))
	if len(words) == 0 {
		return "User"
	}
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
