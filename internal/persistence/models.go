package persistence

import "time"

// Role values as stored.
const (
	RoleStudent   = "student"
	RoleProfessor = "professor"
	RoleFAM       = "fam"
)

// User is a directory entry. Profile fields that do not apply to the role are left zero.
type User struct {
	ID             int64
	Role           string
	Name           string
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

// Meeting is a persisted booking.
type Meeting struct {
	ID            int64
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
	Status        string
	Rating        *int
	Feedback      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AvailabilityWindow is a recurring weekly window. Start and End use HH:MM.
type AvailabilityWindow struct {
	Day   time.Weekday
	Start string
	End   string
}

// Account holds sign-in credentials bound to a directory entry.
type Account struct {
	Username     string
	Role         string
	UserID       int64
	PasswordHash string
	CreatedAt    time.Time
}

// Session is an issued sign-in token together with the current user snapshot.
type Session struct {
	Token     string
	User      User
	CreatedAt time.Time
	ExpiresAt time.Time
}

// MeetingFilter narrows meeting listings. An empty Status matches every meeting.
type MeetingFilter struct {
	Status string
}

// CloneUser returns a deep copy of the user.
func CloneUser(user User) User {
	user.Courses = append([]string(nil), user.Courses...)
	return user
}

// CloneMeeting returns a deep copy of the meeting.
func CloneMeeting(meeting Meeting) Meeting {
	if meeting.CounterpartID != nil {
		id := *meeting.CounterpartID
		meeting.CounterpartID = &id
	}
	if meeting.Rating != nil {
		rating := *meeting.Rating
		meeting.Rating = &rating
	}
	return meeting
}

// CloneSession returns a deep copy of the session.
func CloneSession(session Session) Session {
	session.User = CloneUser(session.User)
	return session
}
