package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/mentoring-scheduler/internal/notify"
	"github.com/example/mentoring-scheduler/internal/persistence"
	"github.com/example/mentoring-scheduler/internal/persistence/memory"
)

type authFixture struct {
	store     *memory.Storage
	service   *AuthService
	collector *notify.Collector
	now       time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	ctx := context.Background()
	store := memory.New()
	now := time.Date(2025, 10, 16, 9, 0, 0, 0, time.UTC)

	seedAccount := func(role, username string, user persistence.User, password string) {
		t.Helper()
		user.Role = role
		created, err := store.CreateUser(ctx, user)
		if err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		hash, err := HashPassword(password, bcrypt.MinCost)
		if err != nil {
			t.Fatalf("HashPassword: %v", err)
		}
		if err := store.CreateAccount(ctx, persistence.Account{Username: username, Role: role, UserID: created.ID, PasswordHash: hash, CreatedAt: now}); err != nil {
			t.Fatalf("CreateAccount: %v", err)
		}
	}
	seedAccount("student", "student1", persistence.User{Name: "John Doe", SRN: "SRN2024001", Department: "Computer Science", Year: 3}, "password123")
	seedAccount("professor", "prof1", persistence.User{Name: "Dr. Sarah Johnson", StaffID: "PROF001"}, "professor123")
	seedAccount("fam", "fam1", persistence.User{Name: "Alex Chen", SRN: "SRN2021001", MaxMentees: 5, IsAvailable: true}, "mentor123")

	seq := 0
	tokens := func() string {
		seq++
		return fmt.Sprintf("token-%d", seq)
	}
	collector := &notify.Collector{}
	svc := NewAuthService(store, store, store, tokens, func() time.Time { return now }, time.Hour).
		WithPasswordCost(bcrypt.MinCost).
		WithNotifier(collector)
	return &authFixture{store: store, service: svc, collector: collector, now: now}
}

func TestAuthService_SignIn(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		params     SignInParams
		wantUserID int64
		wantRole   Role
	}{
		{name: "student by username", params: SignInParams{Role: "student", Identifier: "student1", Password: "password123"}, wantUserID: 1, wantRole: RoleStudent},
		{name: "student by srn ignoring case", params: SignInParams{Role: "student", Identifier: "srn2024001", Password: "password123"}, wantUserID: 1, wantRole: RoleStudent},
		{name: "professor by staff id", params: SignInParams{Role: "professor", Identifier: "PROF001", Password: "professor123"}, wantUserID: 1, wantRole: RoleProfessor},
		{name: "fam by srn", params: SignInParams{Role: "fam", Identifier: "SRN2021001", Password: "mentor123"}, wantUserID: 1, wantRole: RoleFAM},
		{name: "legacy mentor role", params: SignInParams{Role: "mentor", Identifier: "FAM1", Password: "mentor123"}, wantUserID: 1, wantRole: RoleFAM},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newAuthFixture(t)
			session, err := f.service.SignIn(context.Background(), tc.params)
			if err != nil {
				t.Fatalf("SignIn failed: %v", err)
			}
			if session.Token != "token-1" {
				t.Fatalf("expected issued token, got %q", session.Token)
			}
			if session.User.ID != tc.wantUserID || session.User.Role != tc.wantRole {
				t.Fatalf("unexpected session user %+v", session.User)
			}
			if !session.ExpiresAt.Equal(f.now.Add(time.Hour)) {
				t.Fatalf("expected expiry one hour out, got %s", session.ExpiresAt)
			}
			if _, err := f.store.LoadSession(context.Background(), session.Token); err != nil {
				t.Fatalf("expected session to be stored: %v", err)
			}
		})
	}

	t.Run("rejects wrong password", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		_, err := f.service.SignIn(context.Background(), SignInParams{Role: "student", Identifier: "student1", Password: "nope"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		got := f.collector.Drain()
		if len(got) != 1 || got[0].Message != MsgInvalidCredentials || got[0].Severity != notify.SeverityError {
			t.Fatalf("unexpected notifications %+v", got)
		}
	})

	t.Run("does not cross roles", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		_, err := f.service.SignIn(context.Background(), SignInParams{Role: "professor", Identifier: "student1", Password: "password123"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("requires every field", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		_, err := f.service.SignIn(context.Background(), SignInParams{Role: "student", Identifier: "  "})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if msg := vErr.FieldErrors["credentials"]; msg != MsgFillAllFields {
			t.Fatalf("unexpected message %q", msg)
		}
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		_, err := f.service.SignIn(context.Background(), SignInParams{Role: "admin", Identifier: "student1", Password: "password123"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["role"] == "" {
			t.Fatalf("expected role validation error, got %v", err)
		}
	})
}

func TestAuthService_Register(t *testing.T) {
	t.Parallel()

	valid := RegisterParams{
		Name:            "Jordan Lee",
		SRN:             "srn2024099",
		Department:      "Computer Science",
		Year:            1,
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}

	t.Run("creates student and account", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		ctx := context.Background()
		user, err := f.service.Register(ctx, valid)
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if user.ID != 2 || user.SRN != "SRN2024099" || user.Role != RoleStudent {
			t.Fatalf("unexpected user %+v", user)
		}
		got := f.collector.Drain()
		if len(got) != 1 || got[0].Message != MsgAccountCreated {
			t.Fatalf("unexpected notifications %+v", got)
		}

		session, err := f.service.SignIn(ctx, SignInParams{Role: "student", Identifier: "SRN2024099", Password: "secret1"})
		if err != nil {
			t.Fatalf("SignIn after Register failed: %v", err)
		}
		if session.User.Name != "Jordan Lee" {
			t.Fatalf("unexpected session user %+v", session.User)
		}
	})

	t.Run("rejects duplicate srn", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		params := valid
		params.SRN = "SRN2024001"
		_, err := f.service.Register(context.Background(), params)
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
		got := f.collector.Drain()
		if len(got) != 1 || got[0].Message != MsgSRNRegistered {
			t.Fatalf("unexpected notifications %+v", got)
		}
		students, _ := f.store.ListUsers(context.Background(), "student")
		if len(students) != 1 {
			t.Fatalf("expected roster untouched, got %d students", len(students))
		}
	})

	validationCases := []struct {
		name    string
		mutate  func(*RegisterParams)
		field   string
		message string
	}{
		{name: "bad srn", mutate: func(p *RegisterParams) { p.SRN = "SRN12" }, field: "srn", message: MsgInvalidSRN},
		{name: "missing name", mutate: func(p *RegisterParams) { p.Name = " " }, field: "name", message: MsgFillAllFields},
		{name: "password mismatch", mutate: func(p *RegisterParams) { p.ConfirmPassword = "other12" }, field: "confirm_password", message: MsgPasswordMismatch},
		{name: "short password", mutate: func(p *RegisterParams) { p.Password, p.ConfirmPassword = "abc", "abc" }, field: "password", message: MsgPasswordTooShort},
		{name: "missing year", mutate: func(p *RegisterParams) { p.Year = 0 }, field: "year", message: MsgFillAllFields},
	}
	for _, tc := range validationCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newAuthFixture(t)
			params := valid
			tc.mutate(&params)
			_, err := f.service.Register(context.Background(), params)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if msg := vErr.FieldErrors[tc.field]; msg != tc.message {
				t.Fatalf("expected %q on %s, got %q", tc.message, tc.field, msg)
			}
		})
	}
}

func TestAuthService_ValidateSession(t *testing.T) {
	t.Parallel()

	t.Run("resolves principal", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		ctx := context.Background()
		session, err := f.service.SignIn(ctx, SignInParams{Role: "fam", Identifier: "fam1", Password: "mentor123"})
		if err != nil {
			t.Fatalf("SignIn failed: %v", err)
		}
		principal, err := f.service.ValidateSession(ctx, " "+session.Token+" ")
		if err != nil {
			t.Fatalf("ValidateSession failed: %v", err)
		}
		if principal.Role != RoleFAM || principal.UserID != 1 || principal.Name != "Alex Chen" {
			t.Fatalf("unexpected principal %+v", principal)
		}
	})

	t.Run("rejects empty and unknown tokens", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		for _, token := range []string{"", "missing"} {
			if _, err := f.service.ValidateSession(context.Background(), token); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("token %q: expected ErrInvalidCredentials, got %v", token, err)
			}
		}
	})

	t.Run("expires and removes stale sessions", func(t *testing.T) {
		t.Parallel()

		f := newAuthFixture(t)
		ctx := context.Background()
		err := f.store.SaveSession(ctx, persistence.Session{
			Token:     "stale",
			User:      persistence.User{ID: 1, Role: "student", Name: "John Doe"},
			CreatedAt: f.now.Add(-2 * time.Hour),
			ExpiresAt: f.now.Add(-time.Minute),
		})
		if err != nil {
			t.Fatalf("SaveSession: %v", err)
		}
		if _, err := f.service.ValidateSession(ctx, "stale"); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
		if _, err := f.store.LoadSession(ctx, "stale"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected stale session to be deleted, got %v", err)
		}
	})
}

func TestAuthService_SignOut(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	ctx := context.Background()
	session, err := f.service.SignIn(ctx, SignInParams{Role: "student", Identifier: "student1", Password: "password123"})
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if err := f.service.SignOut(ctx, session.Token); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if _, err := f.service.ValidateSession(ctx, session.Token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected token to be invalid after sign-out, got %v", err)
	}
	if err := f.service.SignOut(ctx, session.Token); err != nil {
		t.Fatalf("expected repeated sign-out to succeed, got %v", err)
	}
	if err := f.service.SignOut(ctx, ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty token, got %v", err)
	}
}

func TestAuthService_WithPasswordVerifier(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(t)
	var checked []string
	f.service.WithPasswordVerifier(func(hash, password string) error {
		checked = append(checked, password)
		if password != "override" {
			return errors.New("verifier rejected")
		}
		return nil
	})
	ctx := context.Background()

	if _, err := f.service.SignIn(ctx, SignInParams{Role: "student", Identifier: "student1", Password: "password123"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected verifier failure to surface as ErrInvalidCredentials, got %v", err)
	}
	session, err := f.service.SignIn(ctx, SignInParams{Role: "student", Identifier: "student1", Password: "override"})
	if err != nil {
		t.Fatalf("expected custom verifier to accept, got %v", err)
	}
	if session.User.Name != "John Doe" || len(checked) != 2 {
		t.Fatalf("unexpected session %+v after checks %v", session.User, checked)
	}
}

func TestAuthService_NilReceiver(t *testing.T) {
	t.Parallel()

	var svc *AuthService
	if _, err := svc.SignIn(context.Background(), SignInParams{}); err == nil {
		t.Fatal("expected error from nil service")
	}
	if _, err := svc.ValidateSession(context.Background(), "token"); err == nil {
		t.Fatal("expected error from nil service")
	}
}
