package persistence

import "context"

// DirectoryRepository stores the user rosters. Listings preserve insertion order.
type DirectoryRepository interface {
	// CreateUser stores a user. A zero ID is replaced by the next free ID within the role.
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, role string, id int64) (User, error)
	ListUsers(ctx context.Context, role string) ([]User, error)
}

// MeetingRepository stores meetings and issues their identifiers.
type MeetingRepository interface {
	// NextMeetingID returns a fresh identifier from a monotonically increasing counter.
	NextMeetingID(ctx context.Context) (int64, error)
	// CreateMeeting stores a meeting under its ID and advances the counter past it.
	CreateMeeting(ctx context.Context, meeting Meeting) error
	UpdateMeeting(ctx context.Context, meeting Meeting) error
	GetMeeting(ctx context.Context, id int64) (Meeting, error)
	// ListMeetings returns meetings in ascending ID order.
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, error)
}

// AvailabilityRepository stores the weekly availability windows.
type AvailabilityRepository interface {
	AddAvailability(ctx context.Context, window AvailabilityWindow) error
	ListAvailability(ctx context.Context) ([]AvailabilityWindow, error)
}

// AccountRepository stores sign-in credentials. Usernames are unique ignoring case.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account Account) error
	ListAccounts(ctx context.Context, role string) ([]Account, error)
}

// SessionRepository stores issued sessions keyed by token.
type SessionRepository interface {
	LoadSession(ctx context.Context, token string) (Session, error)
	SaveSession(ctx context.Context, session Session) error
	DeleteSession(ctx context.Context, token string) error
}

// NotesRepository stores free text notes keyed by meeting ID.
type NotesRepository interface {
	LoadNotes(ctx context.Context) (map[int64]string, error)
	SaveNotes(ctx context.Context, meetingID int64, text string) error
}
