// Package sqlite persists the scheduler state in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/example/mentoring-scheduler/internal/persistence"
)

// Store implements every persistence repository on top of a ConnectionPool.
type Store struct {
	pool *ConnectionPool
}

var (
	_ persistence.DirectoryRepository    = (*Store)(nil)
	_ persistence.MeetingRepository      = (*Store)(nil)
	_ persistence.AvailabilityRepository = (*Store)(nil)
	_ persistence.AccountRepository      = (*Store)(nil)
	_ persistence.SessionRepository      = (*Store)(nil)
	_ persistence.NotesRepository        = (*Store)(nil)
)

// Open connects to the database described by config and applies pending migrations.
func Open(ctx context.Context, config Config) (*Store, error) {
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.pool.Close()
}

// --- DirectoryRepository implementation ---

const userColumns = `id, role, name, email, phone, srn, staff_id, department, year, courses,
	office_location, specialization, bio, rating, mentees, max_mentees, is_available`

// CreateUser stores a new user, assigning the next ID within the role when none is set.
func (s *Store) CreateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	courses, err := json.Marshal(nonNilStrings(user.Courses))
	if err != nil {
		return persistence.User{}, fmt.Errorf("sqlite: encode courses: %w", err)
	}

	err = s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if user.ID == 0 {
			if err := tx.QueryRowContext(ctx,
				`SELECT COALESCE(MAX(id), 0) + 1 FROM users WHERE role = ?`, user.Role,
			).Scan(&user.ID); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO users (`+userColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			user.ID, user.Role, user.Name, user.Email, user.Phone, user.SRN, user.StaffID,
			user.Department, user.Year, string(courses), user.OfficeLocation, user.Specialization,
			user.Bio, user.Rating, user.Mentees, user.MaxMentees, user.IsAvailable,
		)
		return err
	})
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	return persistence.CloneUser(user), nil
}

// UpdateUser replaces an existing user.
func (s *Store) UpdateUser(ctx context.Context, user persistence.User) error {
	courses, err := json.Marshal(nonNilStrings(user.Courses))
	if err != nil {
		return fmt.Errorf("sqlite: encode courses: %w", err)
	}

	result, err := s.pool.DB().ExecContext(ctx, `UPDATE users SET
			name = ?, email = ?, phone = ?, srn = ?, staff_id = ?, department = ?, year = ?, courses = ?,
			office_location = ?, specialization = ?, bio = ?, rating = ?, mentees = ?, max_mentees = ?, is_available = ?
		WHERE role = ? AND id = ?`,
		user.Name, user.Email, user.Phone, user.SRN, user.StaffID, user.Department, user.Year, string(courses),
		user.OfficeLocation, user.Specialization, user.Bio, user.Rating, user.Mentees, user.MaxMentees, user.IsAvailable,
		user.Role, user.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// GetUser retrieves a user by role and ID.
func (s *Store) GetUser(ctx context.Context, role string, id int64) (persistence.User, error) {
	row := s.pool.DB().QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE role = ? AND id = ?`, role, id)
	user, err := scanUser(row)
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	return user, nil
}

// ListUsers returns the users of a role in insertion order.
func (s *Store) ListUsers(ctx context.Context, role string) ([]persistence.User, error) {
	rows, err := s.pool.DB().QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY seq`, role)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	users := make([]persistence.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (persistence.User, error) {
	var (
		user    persistence.User
		courses string
	)
	if err := row.Scan(&user.ID, &user.Role, &user.Name, &user.Email, &user.Phone, &user.SRN, &user.StaffID,
		&user.Department, &user.Year, &courses, &user.OfficeLocation, &user.Specialization, &user.Bio,
		&user.Rating, &user.Mentees, &user.MaxMentees, &user.IsAvailable); err != nil {
		return persistence.User{}, err
	}
	if err := json.Unmarshal([]byte(courses), &user.Courses); err != nil {
		return persistence.User{}, fmt.Errorf("sqlite: decode courses for %s %d: %w", user.Role, user.ID, err)
	}
	if len(user.Courses) == 0 {
		user.Courses = nil
	}
	return user, nil
}

// --- AvailabilityRepository implementation ---

// AddAvailability appends a weekly window.
func (s *Store) AddAvailability(ctx context.Context, window persistence.AvailabilityWindow) error {
	_, err := s.pool.DB().ExecContext(ctx,
		`INSERT INTO availability_windows (weekday, start_time, end_time) VALUES (?, ?, ?)`,
		int(window.Day), window.Start, window.End,
	)
	return mapError(err)
}

// ListAvailability returns the weekly windows in insertion order.
func (s *Store) ListAvailability(ctx context.Context) ([]persistence.AvailabilityWindow, error) {
	rows, err := s.pool.DB().QueryContext(ctx, `SELECT weekday, start_time, end_time FROM availability_windows ORDER BY seq`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	windows := make([]persistence.AvailabilityWindow, 0)
	for rows.Next() {
		var (
			window  persistence.AvailabilityWindow
			weekday int
		)
		if err := rows.Scan(&weekday, &window.Start, &window.End); err != nil {
			return nil, err
		}
		window.Day = time.Weekday(weekday)
		windows = append(windows, window)
	}
	return windows, rows.Err()
}

// --- AccountRepository implementation ---

// CreateAccount stores a new account. Usernames are compared case-insensitively.
func (s *Store) CreateAccount(ctx context.Context, account persistence.Account) error {
	_, err := s.pool.DB().ExecContext(ctx,
		`INSERT INTO accounts (username, role, user_id, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		account.Username, account.Role, account.UserID, account.PasswordHash, formatTime(account.CreatedAt),
	)
	return mapError(err)
}

// ListAccounts returns the accounts of a role in insertion order.
func (s *Store) ListAccounts(ctx context.Context, role string) ([]persistence.Account, error) {
	rows, err := s.pool.DB().QueryContext(ctx,
		`SELECT username, role, user_id, password_hash, created_at FROM accounts WHERE role = ? ORDER BY seq`, role)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	accounts := make([]persistence.Account, 0)
	for rows.Next() {
		var (
			account   persistence.Account
			createdAt string
		)
		if err := rows.Scan(&account.Username, &account.Role, &account.UserID, &account.PasswordHash, &createdAt); err != nil {
			return nil, err
		}
		if account.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: parse account created_at: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// --- SessionRepository implementation ---

// LoadSession retrieves a session by token.
func (s *Store) LoadSession(ctx context.Context, token string) (persistence.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	var (
		session                       persistence.Session
		userJSON, createdAt, expiresAt string
	)
	err := s.pool.DB().QueryRowContext(ctx,
		`SELECT token, user_json, created_at, expires_at FROM sessions WHERE token = ?`, token,
	).Scan(&session.Token, &userJSON, &createdAt, &expiresAt)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}

	if err := json.Unmarshal([]byte(userJSON), &session.User); err != nil {
		return persistence.Session{}, fmt.Errorf("sqlite: decode session user: %w", err)
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Session{}, fmt.Errorf("sqlite: parse session created_at: %w", err)
	}
	if session.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return persistence.Session{}, fmt.Errorf("sqlite: parse session expires_at: %w", err)
	}
	return session, nil
}

// SaveSession inserts or replaces a session.
func (s *Store) SaveSession(ctx context.Context, session persistence.Session) error {
	if strings.TrimSpace(session.Token) == "" {
		return fmt.Errorf("sqlite: session token is required")
	}
	userJSON, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("sqlite: encode session user: %w", err)
	}

	_, err = s.pool.DB().ExecContext(ctx, `INSERT INTO sessions (token, user_json, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (token) DO UPDATE SET user_json = excluded.user_json, expires_at = excluded.expires_at`,
		session.Token, string(userJSON), formatTime(session.CreatedAt), formatTime(session.ExpiresAt),
	)
	return mapError(err)
}

// DeleteSession removes a session. Deleting an unknown token is not an error.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.pool.DB().ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return mapError(err)
}

// --- NotesRepository implementation ---

// LoadNotes returns every stored note.
func (s *Store) LoadNotes(ctx context.Context) (map[int64]string, error) {
	rows, err := s.pool.DB().QueryContext(ctx, `SELECT meeting_id, body FROM meeting_notes`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	notes := make(map[int64]string)
	for rows.Next() {
		var (
			id   int64
			body string
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		notes[id] = body
	}
	return notes, rows.Err()
}

// SaveNotes stores the note for a meeting, replacing any previous text.
func (s *Store) SaveNotes(ctx context.Context, meetingID int64, text string) error {
	_, err := s.pool.DB().ExecContext(ctx, `INSERT INTO meeting_notes (meeting_id, body) VALUES (?, ?)
		ON CONFLICT (meeting_id) DO UPDATE SET body = excluded.body`, meetingID, text)
	return mapError(err)
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
