// Package memory provides a process-local implementation of every persistence repository.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/example/mentoring-scheduler/internal/persistence"
)

type userKey struct {
	role string
	id   int64
}

// Storage keeps all records in maps guarded by a single RWMutex.
type Storage struct {
	mu           sync.RWMutex
	users        map[userKey]persistence.User
	userOrder    []userKey
	meetings     map[int64]persistence.Meeting
	meetingSeq   int64
	availability []persistence.AvailabilityWindow
	accounts     []persistence.Account
	sessions     map[string]persistence.Session
	notes        map[int64]string
}

var (
	_ persistence.DirectoryRepository    = (*Storage)(nil)
	_ persistence.MeetingRepository      = (*Storage)(nil)
	_ persistence.AvailabilityRepository = (*Storage)(nil)
	_ persistence.AccountRepository      = (*Storage)(nil)
	_ persistence.SessionRepository      = (*Storage)(nil)
	_ persistence.NotesRepository        = (*Storage)(nil)
)

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		users:    make(map[userKey]persistence.User),
		meetings: make(map[int64]persistence.Meeting),
		sessions: make(map[string]persistence.Session),
		notes:    make(map[int64]string),
	}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// --- DirectoryRepository implementation ---

// CreateUser stores a new user, assigning the next ID within the role when none is set.
func (s *Storage) CreateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == 0 {
		user.ID = s.nextUserIDLocked(user.Role)
	}
	key := userKey{role: user.Role, id: user.ID}
	if _, ok := s.users[key]; ok {
		return persistence.User{}, fmt.Errorf("memory: %s %d: %w", user.Role, user.ID, persistence.ErrDuplicate)
	}

	s.users[key] = persistence.CloneUser(user)
	s.userOrder = append(s.userOrder, key)
	return persistence.CloneUser(user), nil
}

// UpdateUser replaces an existing user.
func (s *Storage) UpdateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userKey{role: user.Role, id: user.ID}
	if _, ok := s.users[key]; !ok {
		return persistence.ErrNotFound
	}
	s.users[key] = persistence.CloneUser(user)
	return nil
}

// GetUser retrieves a user by role and ID.
func (s *Storage) GetUser(ctx context.Context, role string, id int64) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userKey{role: role, id: id}]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return persistence.CloneUser(user), nil
}

// ListUsers returns the users of a role in insertion order.
func (s *Storage) ListUsers(ctx context.Context, role string) ([]persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]persistence.User, 0)
	for _, key := range s.userOrder {
		if key.role == role {
			users = append(users, persistence.CloneUser(s.users[key]))
		}
	}
	return users, nil
}

func (s *Storage) nextUserIDLocked(role string) int64 {
	var maxID int64
	for key := range s.users {
		if key.role == role && key.id > maxID {
			maxID = key.id
		}
	}
	return maxID + 1
}

// --- MeetingRepository implementation ---

// NextMeetingID advances the meeting counter.
func (s *Storage) NextMeetingID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.meetingSeq++
	return s.meetingSeq, nil
}

// CreateMeeting stores a new meeting.
func (s *Storage) CreateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if meeting.ID <= 0 {
		return fmt.Errorf("memory: meeting id must be positive")
	}
	if _, ok := s.meetings[meeting.ID]; ok {
		return fmt.Errorf("memory: meeting %d: %w", meeting.ID, persistence.ErrDuplicate)
	}
	if meeting.ID > s.meetingSeq {
		s.meetingSeq = meeting.ID
	}
	s.meetings[meeting.ID] = persistence.CloneMeeting(meeting)
	return nil
}

// UpdateMeeting replaces an existing meeting.
func (s *Storage) UpdateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.meetings[meeting.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.meetings[meeting.ID] = persistence.CloneMeeting(meeting)
	return nil
}

// GetMeeting retrieves a meeting by ID.
func (s *Storage) GetMeeting(ctx context.Context, id int64) (persistence.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meeting, ok := s.meetings[id]
	if !ok {
		return persistence.Meeting{}, persistence.ErrNotFound
	}
	return persistence.CloneMeeting(meeting), nil
}

// ListMeetings returns meetings matching the filter ordered by ID.
func (s *Storage) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meetings := make([]persistence.Meeting, 0, len(s.meetings))
	for _, meeting := range s.meetings {
		if filter.Status != "" && meeting.Status != filter.Status {
			continue
		}
		meetings = append(meetings, persistence.CloneMeeting(meeting))
	}

	sort.Slice(meetings, func(i, j int) bool {
		return meetings[i].ID < meetings[j].ID
	})
	return meetings, nil
}

// --- AvailabilityRepository implementation ---

// AddAvailability appends a weekly window.
func (s *Storage) AddAvailability(ctx context.Context, window persistence.AvailabilityWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.availability = append(s.availability, window)
	return nil
}

// ListAvailability returns the weekly windows in insertion order.
func (s *Storage) ListAvailability(ctx context.Context) ([]persistence.AvailabilityWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]persistence.AvailabilityWindow(nil), s.availability...), nil
}

// --- AccountRepository implementation ---

// CreateAccount stores a new account. Usernames are compared case-insensitively.
func (s *Storage) CreateAccount(ctx context.Context, account persistence.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Username, account.Username) {
			return fmt.Errorf("memory: account %q: %w", account.Username, persistence.ErrDuplicate)
		}
	}
	s.accounts = append(s.accounts, account)
	return nil
}

// ListAccounts returns the accounts of a role in insertion order.
func (s *Storage) ListAccounts(ctx context.Context, role string) ([]persistence.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]persistence.Account, 0)
	for _, account := range s.accounts {
		if account.Role == role {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

// --- SessionRepository implementation ---

// LoadSession retrieves a session by token.
func (s *Storage) LoadSession(ctx context.Context, token string) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return persistence.CloneSession(session), nil
}

// SaveSession inserts or replaces a session.
func (s *Storage) SaveSession(ctx context.Context, session persistence.Session) error {
	if strings.TrimSpace(session.Token) == "" {
		return fmt.Errorf("memory: session token is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.Token] = persistence.CloneSession(session)
	return nil
}

// DeleteSession removes a session. Deleting an unknown token is not an error.
func (s *Storage) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
	return nil
}

// --- NotesRepository implementation ---

// LoadNotes returns a copy of every stored note.
func (s *Storage) LoadNotes(ctx context.Context) (map[int64]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	notes := make(map[int64]string, len(s.notes))
	for id, text := range s.notes {
		notes[id] = text
	}
	return notes, nil
}

// SaveNotes stores the note for a meeting, replacing any previous text.
func (s *Storage) SaveNotes(ctx context.Context, meetingID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notes[meetingID] = text
	return nil
}
