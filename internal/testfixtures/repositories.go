package testfixtures

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/mentoring-scheduler/internal/persistence"
)

// RepositorySet bundles the repositories a backend provides.
type RepositorySet struct {
	Directory    persistence.DirectoryRepository
	Meetings     persistence.MeetingRepository
	Availability persistence.AvailabilityRepository
	Accounts     persistence.AccountRepository
	Sessions     persistence.SessionRepository
	Notes        persistence.NotesRepository
}

// RunRepositoryContract exercises the behavior every backend must share. open is
// invoked once per subtest and must return an empty backend.
func RunRepositoryContract(t *testing.T, open func(t *testing.T) RepositorySet) {
	t.Helper()

	t.Run("directory preserves insertion order and assigns ids", func(t *testing.T) {
		ctx := context.Background()
		repos := open(t)

		for _, name := range []string{"Ishaan Gupta", "Tanvi Das"} {
			if _, err := repos.Directory.CreateUser(ctx, persistence.User{Role: persistence.RoleFAM, Name: name, MaxMentees: 8}); err != nil {
				t.Fatalf("CreateUser(%s) failed: %v", name, err)
			}
		}
		explicit, err := repos.Directory.CreateUser(ctx, persistence.User{ID: 10, Role: persistence.RoleFAM, Name: "Rohan Mehta", Courses: []string{"Go"}})
		if err != nil {
			t.Fatalf("CreateUser(explicit) failed: %v", err)
		}
		if explicit.ID != 10 {
			t.Fatalf("expected explicit id 10, got %d", explicit.ID)
		}
		if _, err := repos.Directory.CreateUser(ctx, persistence.User{ID: 10, Role: persistence.RoleFAM}); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}

		users, err := repos.Directory.ListUsers(ctx, persistence.RoleFAM)
		if err != nil {
			t.Fatalf("ListUsers failed: %v", err)
		}
		if len(users) != 3 || users[0].ID != 1 || users[1].ID != 2 || users[2].Name != "Rohan Mehta" {
			t.Fatalf("unexpected roster: %+v", users)
		}

		if students, _ := repos.Directory.ListUsers(ctx, persistence.RoleStudent); len(students) != 0 {
			t.Fatalf("expected no students, got %+v", students)
		}

		fetched, err := repos.Directory.GetUser(ctx, persistence.RoleFAM, 10)
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if len(fetched.Courses) != 1 || fetched.Courses[0] != "Go" {
			t.Fatalf("unexpected courses: %+v", fetched.Courses)
		}

		fetched.Mentees = 3
		if err := repos.Directory.UpdateUser(ctx, fetched); err != nil {
			t.Fatalf("UpdateUser failed: %v", err)
		}
		updated, _ := repos.Directory.GetUser(ctx, persistence.RoleFAM, 10)
		if updated.Mentees != 3 {
			t.Fatalf("expected mentees 3, got %d", updated.Mentees)
		}

		if _, err := repos.Directory.GetUser(ctx, persistence.RoleProfessor, 10); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := repos.Directory.UpdateUser(ctx, persistence.User{ID: 99, Role: persistence.RoleFAM}); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on update, got %v", err)
		}
	})

	t.Run("meeting counter is monotonic and skips explicit ids", func(t *testing.T) {
		ctx := context.Background()
		repos := open(t)

		rating := 5
		seeded := persistence.Meeting{ID: 4, Category: "Student-FAM", With: "Tanvi Das", Date: "2025-10-10", StartTime: "15:00", EndTime: "15:30", Type: "Online", Status: "Completed", Rating: &rating}
		if err := repos.Meetings.CreateMeeting(ctx, seeded); err != nil {
			t.Fatalf("CreateMeeting failed: %v", err)
		}
		if err := repos.Meetings.CreateMeeting(ctx, seeded); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}

		next, err := repos.Meetings.NextMeetingID(ctx)
		if err != nil {
			t.Fatalf("NextMeetingID failed: %v", err)
		}
		if next != 5 {
			t.Fatalf("expected next id 5, got %d", next)
		}

		counterpart := int64(13)
		created := ReferenceTime()
		scheduled := persistence.Meeting{ID: next, Category: "Peer-to-Peer", With: "Dev Sharma", CounterpartID: &counterpart, Date: "2025-10-19", StartTime: "11:00", EndTime: "12:00", Type: "Offline", Location: "Library", Status: "Scheduled", CreatedAt: created, UpdatedAt: created}
		if err := repos.Meetings.CreateMeeting(ctx, scheduled); err != nil {
			t.Fatalf("CreateMeeting failed: %v", err)
		}

		all, err := repos.Meetings.ListMeetings(ctx, persistence.MeetingFilter{})
		if err != nil {
			t.Fatalf("ListMeetings failed: %v", err)
		}
		if len(all) != 2 || all[0].ID != 4 || all[1].ID != 5 {
			t.Fatalf("unexpected meetings: %+v", all)
		}
		if all[0].Rating == nil || *all[0].Rating != 5 {
			t.Fatalf("rating not preserved: %+v", all[0])
		}
		if all[1].CounterpartID == nil || *all[1].CounterpartID != 13 || !all[1].CreatedAt.Equal(created) {
			t.Fatalf("counterpart or timestamps not preserved: %+v", all[1])
		}

		scheduled.Status = "Cancelled"
		scheduled.UpdatedAt = created.Add(time.Hour)
		if err := repos.Meetings.UpdateMeeting(ctx, scheduled); err != nil {
			t.Fatalf("UpdateMeeting failed: %v", err)
		}
		cancelled, err := repos.Meetings.ListMeetings(ctx, persistence.MeetingFilter{Status: "Cancelled"})
		if err != nil {
			t.Fatalf("ListMeetings(Cancelled) failed: %v", err)
		}
		if len(cancelled) != 1 || cancelled[0].ID != 5 {
			t.Fatalf("unexpected cancelled meetings: %+v", cancelled)
		}

		if _, err := repos.Meetings.GetMeeting(ctx, 42); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := repos.Meetings.UpdateMeeting(ctx, persistence.Meeting{ID: 42}); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on update, got %v", err)
		}

		again, _ := repos.Meetings.NextMeetingID(ctx)
		if again != 6 {
			t.Fatalf("expected next id 6, got %d", again)
		}
	})

	t.Run("availability keeps insertion order", func(t *testing.T) {
		ctx := context.Background()
		repos := open(t)

		windows := []persistence.AvailabilityWindow{
			{Day: time.Monday, Start: "13:00", End: "15:00"},
			{Day: time.Tuesday, Start: "10:00", End: "12:00"},
		}
		for _, window := range windows {
			if err := repos.Availability.AddAvailability(ctx, window); err != nil {
				t.Fatalf("AddAvailability failed: %v", err)
			}
		}
		listed, err := repos.Availability.ListAvailability(ctx)
		if err != nil {
			t.Fatalf("ListAvailability failed: %v", err)
		}
		if len(listed) != 2 || listed[0] != windows[0] || listed[1] != windows[1] {
			t.Fatalf("unexpected windows: %+v", listed)
		}
	})

	t.Run("accounts reject duplicate usernames ignoring case", func(t *testing.T) {
		ctx := context.Background()
		repos := open(t)

		if err := repos.Accounts.CreateAccount(ctx, persistence.Account{Username: "student1", Role: persistence.RoleStudent, UserID: 13, PasswordHash: "hash"}); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
		if err := repos.Accounts.CreateAccount(ctx, persistence.Account{Username: "STUDENT1", Role: persistence.RoleStudent, UserID: 17, PasswordHash: "hash"}); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
		if err := repos.Accounts.CreateAccount(ctx, persistence.Account{Username: "prof1", Role: persistence.RoleProfessor, UserID: 1, PasswordHash: "hash"}); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}

		students, err := repos.Accounts.ListAccounts(ctx, persistence.RoleStudent)
		if err != nil {
			t.Fatalf("ListAccounts failed: %v", err)
		}
		if len(students) != 1 || students[0].UserID != 13 {
			t.Fatalf("unexpected accounts: %+v", students)
		}
	})

	t.Run("sessions and notes", func(t *testing.T) {
		set := open(t)
		RunSessionNotesContract(t, set.Sessions, set.Notes)
	})
}

// RunSessionNotesContract checks the session and notes repositories of a backend.
func RunSessionNotesContract(t *testing.T, sessions persistence.SessionRepository, notes persistence.NotesRepository) {
	t.Helper()
	ctx := context.Background()

	if _, err := sessions.LoadSession(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	created := ReferenceTime()
	session := persistence.Session{
		Token:     "token-1",
		User:      persistence.User{ID: 13, Role: persistence.RoleStudent, Name: "Meera Iyer", SRN: "SRN2024001"},
		CreatedAt: created,
		ExpiresAt: created.Add(24 * time.Hour),
	}
	if err := sessions.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	session.User.Role = persistence.RoleFAM
	if err := sessions.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession(update) failed: %v", err)
	}

	loaded, err := sessions.LoadSession(ctx, "token-1")
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if loaded.User.Role != persistence.RoleFAM || loaded.User.Name != "Meera Iyer" || !loaded.ExpiresAt.Equal(session.ExpiresAt) {
		t.Fatalf("unexpected session: %+v", loaded)
	}

	if err := sessions.DeleteSession(ctx, "token-1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := sessions.LoadSession(ctx, "token-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := sessions.DeleteSession(ctx, "token-1"); err != nil {
		t.Fatalf("DeleteSession of unknown token failed: %v", err)
	}

	empty, err := notes.LoadNotes(ctx)
	if err != nil {
		t.Fatalf("LoadNotes failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no notes, got %+v", empty)
	}
	if err := notes.SaveNotes(ctx, 1, "first draft"); err != nil {
		t.Fatalf("SaveNotes failed: %v", err)
	}
	if err := notes.SaveNotes(ctx, 1, "Discussed DSA roadmap"); err != nil {
		t.Fatalf("SaveNotes(overwrite) failed: %v", err)
	}
	if err := notes.SaveNotes(ctx, 4, "Follow up next week"); err != nil {
		t.Fatalf("SaveNotes failed: %v", err)
	}
	stored, err := notes.LoadNotes(ctx)
	if err != nil {
		t.Fatalf("LoadNotes failed: %v", err)
	}
	if len(stored) != 2 || stored[1] != "Discussed DSA roadmap" || stored[4] != "Follow up next week" {
		t.Fatalf("unexpected notes: %+v", stored)
	}
}
