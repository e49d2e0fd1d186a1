package application

import (
	"strings"
	"time"

	"github.com/example/mentoring-scheduler/internal/scheduler"
)

// Role identifies the kind of user.
type Role string

const (
	RoleStudent   Role = "student"
	RoleProfessor Role = "professor"
	RoleFAM       Role = "fam"
)

// ParseRole normalizes a role name. The legacy name "mentor" maps to RoleFAM.
func ParseRole(value string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "student":
		return RoleStudent, true
	case "professor":
		return RoleProfessor, true
	case "fam", "mentor":
		return RoleFAM, true
	default:
		return "", false
	}
}

// Principal represents the signed-in user invoking a service method.
type Principal struct {
	UserID int64
	Role   Role
	Name   string
	Token  string
}

// User is a directory entry. Only the profile fields of its role are populated.
type User struct {
	ID             int64
	Name           string
	Role           Role
	Email          string
	Phone          string
	SRN            string
	StaffID        string
	Department     string
	Year           int
	Courses        []string
	OfficeLocation string
	Specialization string
	Bio            string
	Rating         float64
	Mentees        int
	MaxMentees     int
	IsAvailable    bool
}

// CanTakeMentees reports whether a mentor is eligible for new bookings.
func (u User) CanTakeMentees() bool {
	return u.IsAvailable && u.Mentees < u.MaxMentees
}

// Category is the kind of meeting.
type Category string

const (
	CategoryStudentFAM       Category = "Student-FAM"
	CategoryStudentProfessor Category = "Student-Professor"
	CategoryPeerToPeer       Category = "Peer-to-Peer"
)

// ParseCategory accepts a category name ignoring case.
func ParseCategory(value string) (Category, bool) {
	for _, category := range []Category{CategoryStudentFAM, CategoryStudentProfessor, CategoryPeerToPeer} {
		if strings.EqualFold(strings.TrimSpace(value), string(category)) {
			return category, true
		}
	}
	return "", false
}

// counterpartRole is the directory roster a category's counterpart is drawn from.
func (c Category) counterpartRole() Role {
	switch c {
	case CategoryStudentFAM:
		return RoleFAM
	case CategoryStudentProfessor:
		return RoleProfessor
	default:
		return RoleStudent
	}
}

// MeetingType is the modality of a meeting.
type MeetingType string

const (
	MeetingOnline  MeetingType = "Online"
	MeetingOffline MeetingType = "Offline"
)

// ParseMeetingType accepts a modality name ignoring case.
func ParseMeetingType(value string) (MeetingType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "online":
		return MeetingOnline, true
	case "offline":
		return MeetingOffline, true
	default:
		return "", false
	}
}

// Status is a meeting lifecycle state.
type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// ParseStatus accepts a status name ignoring case.
func ParseStatus(value string) (Status, bool) {
	for _, status := range []Status{StatusScheduled, StatusCompleted, StatusCancelled} {
		if strings.EqualFold(strings.TrimSpace(value), string(status)) {
			return status, true
		}
	}
	return "", false
}

// Meeting is a booked session between the current user and a counterpart.
type Meeting struct {
	ID            int64
	Category      Category
	With          string
	CounterpartID *int64
	Date          string
	StartTime     scheduler.TimeOfDay
	EndTime       scheduler.TimeOfDay
	Type          MeetingType
	Location      string
	Link          string
	Purpose       string
	Status        Status
	Rating        *int
	Feedback      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MeetingDraft captures caller supplied booking fields. Times use HH:MM and the date YYYY-MM-DD.
type MeetingDraft struct {
	Category      string
	With          string
	CounterpartID *int64
	Date          string
	StartTime     string
	EndTime       string
	Type          string
	Location      string
	Link          string
	Purpose       string
}

// MeetingStats summarizes the meeting list.
type MeetingStats struct {
	Upcoming  int
	Completed int
	Cancelled int
	Total     int
}

// MeetingQuery narrows SearchMeetings. Empty fields match everything; From and
// To are inclusive YYYY-MM-DD bounds.
type MeetingQuery struct {
	Keyword  string
	Status   string
	Category string
	From     string
	To       string
}

// MeetingAnalytics summarizes the meetings dated within a period.
type MeetingAnalytics struct {
	From            string
	To              string
	Counts          MeetingStats
	TopCounterparts []CounterpartSummary
}

// CounterpartSummary counts the meetings held with one counterpart.
type CounterpartSummary struct {
	With               string
	Meetings           int
	AvgDurationMinutes float64
}

// MeetingSchedule lists the Scheduled meetings of a period and the pairs among them that overlap.
type MeetingSchedule struct {
	From      string
	To        string
	Meetings  []Meeting
	Conflicts []ScheduleConflict
}

// ScheduleConflict is a pair of overlapping meetings on the same date. First starts no later than Second.
type ScheduleConflict struct {
	First  Meeting
	Second Meeting
}

// StatusFilterAll selects every meeting in ListMeetings.
const StatusFilterAll = "all"

// AvailabilityWindow is a recurring weekly window.
type AvailabilityWindow struct {
	Day   time.Weekday
	Start scheduler.TimeOfDay
	End   scheduler.TimeOfDay
}

// Occurrence is a weekly availability window placed on a calendar date.
type Occurrence struct {
	Date  string
	Day   time.Weekday
	Start scheduler.TimeOfDay
	End   scheduler.TimeOfDay
}

// Slot is a bookable interval on a date.
type Slot struct {
	Date      string
	Start     scheduler.TimeOfDay
	End       scheduler.TimeOfDay
	Available bool
}

// MentorMeeting pairs a mentor's meeting with its notes.
type MentorMeeting struct {
	Meeting Meeting
	Notes   string
}

// Session is an issued sign-in.
type Session struct {
	Token     string
	User      User
	CreatedAt time.Time
	ExpiresAt time.Time
}

// RegisterParams carries a student self-registration request.
type RegisterParams struct {
	Name            string
	SRN             string
	Email           string
	Department      string
	Year            int
	Password        string
	ConfirmPassword string
}

// SignInParams carries a sign-in request. Identifier is a username, SRN or staff ID depending on Role.
type SignInParams struct {
	Role       string
	Identifier string
	Password   string
}
