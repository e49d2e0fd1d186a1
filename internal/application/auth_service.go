package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/example/mentoring-scheduler/internal/notify"
	"github.com/example/mentoring-scheduler/internal/persistence"
)

// User facing messages for the sign-in and registration flows.
const (
	MsgFillAllFields      = "Please fill in all fields"
	MsgInvalidSRN         = "Invalid SRN format. Please use format: SRN followed by 7 digits (e.g., SRN2024001)"
	MsgPasswordMismatch   = "Passwords do not match"
	MsgPasswordTooShort   = "Password must be at least 6 characters long"
	MsgSRNRegistered      = "This SRN is already registered. Please sign in instead."
	MsgAccountCreated     = "Account created successfully! Please sign in with your password."
	MsgInvalidCredentials = "Invalid credentials. Please try again."
	MsgSignedOut          = "Signed out successfully"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 6

const defaultSessionLifetime = 24 * time.Hour

var srnPattern = regexp.MustCompile(`^SRN[0-9]{7}$`)

var registerFieldOrder = []string{"srn", "name", "department", "year", "password", "confirm_password"}

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthService coordinates registration, sign-in and session validation.
type AuthService struct {
	accounts       persistence.AccountRepository
	users          persistence.DirectoryRepository
	sessions       persistence.SessionRepository
	verifyPassword PasswordVerifier
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	passwordCost   int
	notifier       notify.Sink
	logger         *slog.Logger

	// registerMu serializes the uniqueness check and inserts of Register.
	registerMu sync.Mutex
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(accounts persistence.AccountRepository, users persistence.DirectoryRepository, sessions persistence.SessionRepository, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(accounts, users, sessions, tokenGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(accounts persistence.AccountRepository, users persistence.DirectoryRepository, sessions persistence.SessionRepository, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if tokenGenerator == nil {
		tokenGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionLifetime
	}
	return &AuthService{
		accounts:       accounts,
		users:          users,
		sessions:       sessions,
		verifyPassword: VerifyPassword,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		passwordCost:   DefaultPasswordCost,
		logger:         defaultLogger(logger),
	}
}

// WithPasswordCost sets the bcrypt cost used by Register.
func (s *AuthService) WithPasswordCost(cost int) *AuthService {
	if s != nil && cost > 0 {
		s.passwordCost = cost
	}
	return s
}

// WithNotifier attaches the sink that receives user facing messages.
func (s *AuthService) WithNotifier(sink notify.Sink) *AuthService {
	if s != nil {
		s.notifier = sink
	}
	return s
}

// WithPasswordVerifier replaces the bcrypt comparison, mainly for tests.
func (s *AuthService) WithPasswordVerifier(verify PasswordVerifier) *AuthService {
	if s != nil && verify != nil {
		s.verifyPassword = verify
	}
	return s
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

func (s *AuthService) notify(ctx context.Context, n notify.Notification) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, n)
	}
}

// Register creates a student directory entry and a sign-in account keyed by SRN.
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}

	srn := strings.ToUpper(strings.TrimSpace(params.SRN))
	logger := s.loggerWith(ctx, "Register", "srn", srn)
	defer func() {
		if err != nil {
			s.notify(ctx, notify.Error(registerMessage(err)))
			logger.WarnContext(ctx, "registration rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		s.notify(ctx, notify.Success(MsgAccountCreated))
		logger.InfoContext(ctx, "student registered", "user_id", user.ID)
	}()

	if vErr := validateRegistration(srn, params); vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	if hash, err = HashPassword(params.Password, s.passwordCost); err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	var taken bool
	if taken, err = s.srnTaken(ctx, srn); err != nil {
		return
	}
	if taken {
		err = fmt.Errorf("%w: srn %s", ErrAlreadyExists, srn)
		return
	}

	now := s.now()
	var record persistence.User
	record, err = s.users.CreateUser(ctx, persistence.User{
		Role:       string(RoleStudent),
		Name:       strings.TrimSpace(params.Name),
		Email:      strings.TrimSpace(params.Email),
		SRN:        srn,
		Department: strings.TrimSpace(params.Department),
		Year:       params.Year,
	})
	if err != nil {
		err = mapRepoError(err)
		return
	}

	err = s.accounts.CreateAccount(ctx, persistence.Account{
		Username:     srn,
		Role:         string(RoleStudent),
		UserID:       record.ID,
		PasswordHash: hash,
		CreatedAt:    now,
	})
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return userFromRecord(record), nil
}

func validateRegistration(srn string, params RegisterParams) *ValidationError {
	vErr := &ValidationError{}
	if srn == "" {
		vErr.add("srn", MsgFillAllFields)
	} else if !srnPattern.MatchString(srn) {
		vErr.add("srn", MsgInvalidSRN)
	}
	if strings.TrimSpace(params.Name) == "" {
		vErr.add("name", MsgFillAllFields)
	}
	if strings.TrimSpace(params.Department) == "" {
		vErr.add("department", MsgFillAllFields)
	}
	if params.Year <= 0 {
		vErr.add("year", MsgFillAllFields)
	}
	switch {
	case params.Password == "":
		vErr.add("password", MsgFillAllFields)
	case params.ConfirmPassword == "":
		vErr.add("confirm_password", MsgFillAllFields)
	case params.Password != params.ConfirmPassword:
		vErr.add("confirm_password", MsgPasswordMismatch)
	case len(params.Password) < MinPasswordLength:
		vErr.add("password", MsgPasswordTooShort)
	}
	return vErr
}

func registerMessage(err error) string {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		return vErr.FirstMessage(registerFieldOrder...)
	case errors.Is(err, ErrAlreadyExists):
		return MsgSRNRegistered
	default:
		return "Failed to create account. Please try again."
	}
}

func (s *AuthService) srnTaken(ctx context.Context, srn string) (bool, error) {
	for _, role := range []Role{RoleStudent, RoleProfessor, RoleFAM} {
		accounts, err := s.accounts.ListAccounts(ctx, string(role))
		if err != nil {
			return false, err
		}
		for _, account := range accounts {
			if strings.EqualFold(account.Username, srn) {
				return true, nil
			}
		}
	}
	students, err := s.users.ListUsers(ctx, string(RoleStudent))
	if err != nil {
		return false, err
	}
	for _, student := range students {
		if strings.EqualFold(student.SRN, srn) {
			return true, nil
		}
	}
	return false, nil
}

// SignIn checks credentials for the given role and issues a session.
// Students may use their SRN, professors their staff ID and FAMs their SRN in place of the username.
func (s *AuthService) SignIn(ctx context.Context, params SignInParams) (session Session, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}

	identifier := strings.TrimSpace(params.Identifier)
	logger := s.loggerWith(ctx, "SignIn", "role", params.Role, "identifier", identifier)
	defer func() {
		if err != nil {
			s.notify(ctx, notify.Error(signInMessage(err)))
			logger.WarnContext(ctx, "sign-in failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		s.notify(ctx, notify.Success(fmt.Sprintf("Welcome back, %s!", session.User.Name)))
		logger.InfoContext(ctx, "signed in", "user_id", session.User.ID)
	}()

	role, ok := ParseRole(params.Role)
	if identifier == "" || params.Password == "" || strings.TrimSpace(params.Role) == "" {
		err = newValidationError("credentials", MsgFillAllFields)
		return
	}
	if !ok {
		err = newValidationError("role", "role must be one of student, professor, fam")
		return
	}

	var (
		account persistence.Account
		record  persistence.User
	)
	if account, record, err = s.findAccount(ctx, role, identifier); err != nil {
		return
	}
	if err = s.verifyPassword(account.PasswordHash, params.Password); err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			err = fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return
	}

	token := strings.TrimSpace(s.tokenGenerator())
	if token == "" {
		err = fmt.Errorf("token generator returned an empty token")
		return
	}

	now := s.now()
	session = Session{
		Token:     token,
		User:      userFromRecord(record),
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err = s.sessions.SaveSession(ctx, sessionToRecord(session)); err != nil {
		session = Session{}
		return
	}
	return session, nil
}

func signInMessage(err error) string {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.FirstMessage("credentials", "role")
	}
	return MsgInvalidCredentials
}

func (s *AuthService) findAccount(ctx context.Context, role Role, identifier string) (persistence.Account, persistence.User, error) {
	accounts, err := s.accounts.ListAccounts(ctx, string(role))
	if err != nil {
		return persistence.Account{}, persistence.User{}, err
	}
	users, err := s.users.ListUsers(ctx, string(role))
	if err != nil {
		return persistence.Account{}, persistence.User{}, err
	}
	byID := make(map[int64]persistence.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}

	for _, account := range accounts {
		user, ok := byID[account.UserID]
		if !ok {
			continue
		}
		if strings.EqualFold(account.Username, identifier) || matchesAlias(role, user, identifier) {
			return account, user, nil
		}
	}
	return persistence.Account{}, persistence.User{}, ErrInvalidCredentials
}

func matchesAlias(role Role, user persistence.User, identifier string) bool {
	switch role {
	case RoleStudent, RoleFAM:
		return user.SRN != "" && strings.EqualFold(user.SRN, identifier)
	case RoleProfessor:
		return user.StaffID != "" && strings.EqualFold(user.StaffID, identifier)
	default:
		return false
	}
}

// SignOut discards the session. Unknown tokens are not an error.
func (s *AuthService) SignOut(ctx context.Context, token string) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}

	logger := s.loggerWith(ctx, "SignOut")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "sign-out failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		s.notify(ctx, notify.Success(MsgSignedOut))
		logger.InfoContext(ctx, "signed out")
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidCredentials
	}
	err = s.sessions.DeleteSession(ctx, token)
	if errors.Is(err, persistence.ErrNotFound) {
		err = nil
	}
	return err
}

// ValidateSession resolves a token into the principal it was issued for.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ValidateSession")
	defer func() {
		if err != nil {
			logger.DebugContext(ctx, "session rejected", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	var session Session
	if session, err = loadActiveSession(ctx, s.sessions, token, s.now()); err != nil {
		return
	}
	return Principal{
		UserID: session.User.ID,
		Role:   session.User.Role,
		Name:   session.User.Name,
		Token:  session.Token,
	}, nil
}
