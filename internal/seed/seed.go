// Package seed loads the demo rosters, meetings, availability windows and
// sign-in accounts into an empty store.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/mentoring-scheduler/internal/application"
	"github.com/example/mentoring-scheduler/internal/persistence"
)

// Account is a demo credential in clear text. Passwords are hashed when applied.
type Account struct {
	Username string
	Role     string
	UserID   int64
	Password string
}

// Dataset is everything Apply writes.
type Dataset struct {
	Users        []persistence.User
	Meetings     []persistence.Meeting
	Availability []persistence.AvailabilityWindow
	Accounts     []Account
}

// Repositories groups the stores Apply writes to.
type Repositories struct {
	Directory    persistence.DirectoryRepository
	Meetings     persistence.MeetingRepository
	Availability persistence.AvailabilityRepository
	Accounts     persistence.AccountRepository
}

// Options tunes Apply. Zero values select bcrypt's default cost, time.Now and slog.Default.
type Options struct {
	PasswordCost int
	Now          func() time.Time
	Logger       *slog.Logger
}

// Apply writes data when the store holds no users, meetings or availability
// windows yet. It reports whether anything was written.
func Apply(ctx context.Context, repos Repositories, data Dataset, opts Options) (applied bool, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cost := opts.PasswordCost
	if cost <= 0 {
		cost = application.DefaultPasswordCost
	}

	logger = logger.With("component", "seed")
	defer func() {
		switch {
		case err != nil:
			logger.ErrorContext(ctx, "seeding failed", "error", err)
		case applied:
			logger.InfoContext(ctx, "demo data seeded",
				"users", len(data.Users),
				"meetings", len(data.Meetings),
				"availability_windows", len(data.Availability),
				"accounts", len(data.Accounts),
			)
		default:
			logger.InfoContext(ctx, "store already populated, skipping seed")
		}
	}()

	empty, err := isEmpty(ctx, repos)
	if err != nil {
		return false, err
	}
	if !empty {
		return false, nil
	}

	for _, user := range data.Users {
		if _, err := repos.Directory.CreateUser(ctx, user); err != nil {
			return false, fmt.Errorf("seed %s %d: %w", user.Role, user.ID, err)
		}
	}

	created := now()
	for _, meeting := range data.Meetings {
		meeting.CreatedAt = created
		meeting.UpdatedAt = created
		if err := repos.Meetings.CreateMeeting(ctx, meeting); err != nil {
			return false, fmt.Errorf("seed meeting %d: %w", meeting.ID, err)
		}
	}

	for _, window := range data.Availability {
		if err := repos.Availability.AddAvailability(ctx, window); err != nil {
			return false, fmt.Errorf("seed availability %s: %w", window.Day, err)
		}
	}

	for _, account := range data.Accounts {
		hash, err := application.HashPassword(account.Password, cost)
		if err != nil {
			return false, fmt.Errorf("seed account %s: %w", account.Username, err)
		}
		err = repos.Accounts.CreateAccount(ctx, persistence.Account{
			Username:     account.Username,
			Role:         account.Role,
			UserID:       account.UserID,
			PasswordHash: hash,
			CreatedAt:    created,
		})
		if err != nil {
			return false, fmt.Errorf("seed account %s: %w", account.Username, err)
		}
	}
	return true, nil
}

func isEmpty(ctx context.Context, repos Repositories) (bool, error) {
	for _, role := range []string{persistence.RoleStudent, persistence.RoleProfessor, persistence.RoleFAM} {
		users, err := repos.Directory.ListUsers(ctx, role)
		if err != nil {
			return false, err
		}
		if len(users) > 0 {
			return false, nil
		}
	}
	meetings, err := repos.Meetings.ListMeetings(ctx, persistence.MeetingFilter{})
	if err != nil {
		return false, err
	}
	if len(meetings) > 0 {
		return false, nil
	}
	windows, err := repos.Availability.ListAvailability(ctx)
	if err != nil {
		return false, err
	}
	return len(windows) == 0, nil
}
