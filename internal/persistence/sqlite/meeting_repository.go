package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/mentoring-scheduler/internal/persistence"
)

const meetingColumns = `id, category, with_name, counterpart_id, date, start_time, end_time, type,
	location, link, purpose, status, rating, feedback, created_at, updated_at`

// NextMeetingID advances the meeting counter.
func (s *Store) NextMeetingID(ctx context.Context) (int64, error) {
	var id int64
	err := s.pool.DB().QueryRowContext(ctx,
		`UPDATE counters SET value = value + 1 WHERE name = 'meeting' RETURNING value`,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("sqlite: next meeting id: %w", mapError(err))
	}
	return id, nil
}

// CreateMeeting stores a new meeting and advances the counter past its ID.
func (s *Store) CreateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	if meeting.ID <= 0 {
		return fmt.Errorf("sqlite: meeting id must be positive")
	}

	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meetings (`+meetingColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			meeting.ID, meeting.Category, meeting.With, nullInt64(meeting.CounterpartID), meeting.Date,
			meeting.StartTime, meeting.EndTime, meeting.Type, meeting.Location, meeting.Link, meeting.Purpose,
			meeting.Status, nullInt(meeting.Rating), meeting.Feedback,
			formatTime(meeting.CreatedAt), formatTime(meeting.UpdatedAt),
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE counters SET value = MAX(value, ?) WHERE name = 'meeting'`, meeting.ID)
		return err
	})
	return mapError(err)
}

// UpdateMeeting replaces an existing meeting.
func (s *Store) UpdateMeeting(ctx context.Context, meeting persistence.Meeting) error {
	result, err := s.pool.DB().ExecContext(ctx, `UPDATE meetings SET
			category = ?, with_name = ?, counterpart_id = ?, date = ?, start_time = ?, end_time = ?, type = ?,
			location = ?, link = ?, purpose = ?, status = ?, rating = ?, feedback = ?, updated_at = ?
		WHERE id = ?`,
		meeting.Category, meeting.With, nullInt64(meeting.CounterpartID), meeting.Date, meeting.StartTime,
		meeting.EndTime, meeting.Type, meeting.Location, meeting.Link, meeting.Purpose, meeting.Status,
		nullInt(meeting.Rating), meeting.Feedback, formatTime(meeting.UpdatedAt), meeting.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// GetMeeting retrieves a meeting by ID.
func (s *Store) GetMeeting(ctx context.Context, id int64) (persistence.Meeting, error) {
	row := s.pool.DB().QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id)
	meeting, err := scanMeeting(row)
	if err != nil {
		return persistence.Meeting{}, mapError(err)
	}
	return meeting, nil
}

// ListMeetings returns meetings matching the filter ordered by ID.
func (s *Store) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY id`

	rows, err := s.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	meetings := make([]persistence.Meeting, 0)
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, meeting)
	}
	return meetings, rows.Err()
}

func scanMeeting(row rowScanner) (persistence.Meeting, error) {
	var (
		meeting              persistence.Meeting
		counterpart, rating  sql.NullInt64
		createdAt, updatedAt string
	)
	if err := row.Scan(&meeting.ID, &meeting.Category, &meeting.With, &counterpart, &meeting.Date,
		&meeting.StartTime, &meeting.EndTime, &meeting.Type, &meeting.Location, &meeting.Link,
		&meeting.Purpose, &meeting.Status, &rating, &meeting.Feedback, &createdAt, &updatedAt); err != nil {
		return persistence.Meeting{}, err
	}

	if counterpart.Valid {
		id := counterpart.Int64
		meeting.CounterpartID = &id
	}
	if rating.Valid {
		value := int(rating.Int64)
		meeting.Rating = &value
	}

	var err error
	if meeting.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Meeting{}, fmt.Errorf("sqlite: parse meeting created_at: %w", err)
	}
	if meeting.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Meeting{}, fmt.Errorf("sqlite: parse meeting updated_at: %w", err)
	}
	return meeting, nil
}

func nullInt64(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *value, Valid: true}
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}
