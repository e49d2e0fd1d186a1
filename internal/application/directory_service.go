package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/mentoring-scheduler/internal/persistence"
)

// DirectoryService answers roster and current-user queries.
type DirectoryService struct {
	users    persistence.DirectoryRepository
	sessions persistence.SessionRepository
	now      func() time.Time
	logger   *slog.Logger
}

// NewDirectoryService constructs a DirectoryService.
func NewDirectoryService(users persistence.DirectoryRepository, sessions persistence.SessionRepository, now func() time.Time, logger *slog.Logger) *DirectoryService {
	if now == nil {
		now = time.Now
	}
	return &DirectoryService{
		users:    users,
		sessions: sessions,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

// CurrentUser returns the user snapshot of the session identified by token.
func (s *DirectoryService) CurrentUser(ctx context.Context, token string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("DirectoryService is nil")
	}
	session, err := loadActiveSession(ctx, s.sessions, token, s.now())
	if err != nil {
		return User{}, err
	}
	return session.User, nil
}

// UpdateCurrentUserRole moves the session user to another role the same person
// holds: a roster entry of that role sharing the user's SRN or staff ID. The
// session snapshot changes, the rosters do not. Roles the person does not hold
// are refused with ErrUnauthorized.
func (s *DirectoryService) UpdateCurrentUserRole(ctx context.Context, token, role string) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("DirectoryService is nil")
		return
	}

	logger := serviceLogger(ctx, s.logger, "DirectoryService", "UpdateCurrentUserRole", "role", role)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "role update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "role updated", "user_id", user.ID)
	}()

	parsed, ok := ParseRole(role)
	if !ok {
		err = newValidationError("role", "role must be one of student, professor, fam")
		return
	}

	var session Session
	if session, err = loadActiveSession(ctx, s.sessions, token, s.now()); err != nil {
		return
	}
	if parsed != session.User.Role {
		var held User
		if held, ok, err = s.heldEntry(ctx, session.User, parsed); err != nil {
			return
		}
		if !ok {
			err = fmt.Errorf("%w: %s does not hold role %s", ErrUnauthorized, session.User.Name, parsed)
			return
		}
		session.User = held
	}
	if err = s.sessions.SaveSession(ctx, sessionToRecord(session)); err != nil {
		return
	}
	return session.User, nil
}

// heldEntry finds the roster entry of role that belongs to the same person as current.
func (s *DirectoryService) heldEntry(ctx context.Context, current User, role Role) (User, bool, error) {
	srn := strings.TrimSpace(current.SRN)
	staffID := strings.TrimSpace(current.StaffID)
	if srn == "" && staffID == "" {
		return User{}, false, nil
	}
	entries, err := s.roster(ctx, role)
	if err != nil {
		return User{}, false, err
	}
	for _, entry := range entries {
		if (srn != "" && strings.EqualFold(entry.SRN, srn)) || (staffID != "" && strings.EqualFold(entry.StaffID, staffID)) {
			return entry, true, nil
		}
	}
	return User{}, false, nil
}

// AvailableMentors returns mentors accepting new mentees, in roster order.
func (s *DirectoryService) AvailableMentors(ctx context.Context) ([]User, error) {
	mentors, err := s.Mentors(ctx)
	if err != nil {
		return nil, err
	}
	available := make([]User, 0, len(mentors))
	for _, mentor := range mentors {
		if mentor.CanTakeMentees() {
			available = append(available, mentor)
		}
	}
	return available, nil
}

// Mentors returns the full FAM roster.
func (s *DirectoryService) Mentors(ctx context.Context) ([]User, error) {
	return s.roster(ctx, RoleFAM)
}

// Professors returns the full professor roster.
func (s *DirectoryService) Professors(ctx context.Context) ([]User, error) {
	return s.roster(ctx, RoleProfessor)
}

// Students returns the full student roster.
func (s *DirectoryService) Students(ctx context.Context) ([]User, error) {
	return s.roster(ctx, RoleStudent)
}

// MentorByID looks up a mentor. Absence is reported as false.
func (s *DirectoryService) MentorByID(ctx context.Context, id int64) (User, bool, error) {
	return s.lookup(ctx, RoleFAM, id)
}

// ProfessorByID looks up a professor. Absence is reported as false.
func (s *DirectoryService) ProfessorByID(ctx context.Context, id int64) (User, bool, error) {
	return s.lookup(ctx, RoleProfessor, id)
}

// StudentByID looks up a student. Absence is reported as false.
func (s *DirectoryService) StudentByID(ctx context.Context, id int64) (User, bool, error) {
	return s.lookup(ctx, RoleStudent, id)
}

func (s *DirectoryService) roster(ctx context.Context, role Role) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("DirectoryService is nil")
	}
	records, err := s.users.ListUsers(ctx, string(role))
	if err != nil {
		return nil, err
	}
	return usersFromRecords(records), nil
}

func (s *DirectoryService) lookup(ctx context.Context, role Role, id int64) (User, bool, error) {
	if s == nil {
		return User{}, false, fmt.Errorf("DirectoryService is nil")
	}
	record, err := s.users.GetUser(ctx, string(role), id)
	if errors.Is(err, persistence.ErrNotFound) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, err
	}
	return userFromRecord(record), true, nil
}

// loadActiveSession loads and expiry-checks a session. Expired sessions are deleted.
func loadActiveSession(ctx context.Context, sessions persistence.SessionRepository, token string, now time.Time) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" || sessions == nil {
		return Session{}, ErrInvalidCredentials
	}
	record, err := sessions.LoadSession(ctx, token)
	if errors.Is(err, persistence.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !record.ExpiresAt.IsZero() && !now.Before(record.ExpiresAt) {
		_ = sessions.DeleteSession(ctx, token)
		return Session{}, ErrSessionExpired
	}
	return sessionFromRecord(record), nil
}
