package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/example/mentoring-scheduler/internal/persistence"
)

const (
	sessionKeyPrefix = "session:"
	notesKey         = "meetingNotes"
)

// Repository implements the session and notes repositories as JSON documents in a Store.
type Repository struct {
	store Store
	now   func() time.Time

	// notesMu serialises the read-modify-write of the shared notes document.
	notesMu sync.Mutex
}

var (
	_ persistence.SessionRepository = (*Repository)(nil)
	_ persistence.NotesRepository   = (*Repository)(nil)
)

// NewRepository wraps store. now defaults to time.Now and is used to derive session expiry.
func NewRepository(store Store, now func() time.Time) *Repository {
	if now == nil {
		now = time.Now
	}
	return &Repository{store: store, now: now}
}

type sessionDocument struct {
	Token     string           `json:"token"`
	User      persistence.User `json:"currentUser"`
	CreatedAt time.Time        `json:"createdAt"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

// LoadSession reads the session stored under session:<token>.
func (r *Repository) LoadSession(ctx context.Context, token string) (persistence.Session, error) {
	raw, err := r.store.Get(ctx, sessionKeyPrefix+token)
	if errors.Is(err, ErrMissing) {
		return persistence.Session{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.Session{}, err
	}

	var doc sessionDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return persistence.Session{}, fmt.Errorf("kv: decode session: %w", err)
	}
	return persistence.Session{
		Token:     doc.Token,
		User:      doc.User,
		CreatedAt: doc.CreatedAt,
		ExpiresAt: doc.ExpiresAt,
	}, nil
}

// SaveSession writes the session and lets the store expire it with the session.
func (r *Repository) SaveSession(ctx context.Context, session persistence.Session) error {
	if session.Token == "" {
		return fmt.Errorf("kv: session token is required")
	}
	raw, err := json.Marshal(sessionDocument{
		Token:     session.Token,
		User:      session.User,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("kv: encode session: %w", err)
	}

	var ttl time.Duration
	if !session.ExpiresAt.IsZero() {
		ttl = session.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			return r.store.Remove(ctx, sessionKeyPrefix+session.Token)
		}
	}
	return r.store.Set(ctx, sessionKeyPrefix+session.Token, raw, ttl)
}

// DeleteSession removes the session document.
func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	return r.store.Remove(ctx, sessionKeyPrefix+token)
}

// LoadNotes reads the meetingNotes document.
func (r *Repository) LoadNotes(ctx context.Context) (map[int64]string, error) {
	return r.loadNotes(ctx)
}

// SaveNotes rewrites the meetingNotes document with the note for meetingID replaced.
func (r *Repository) SaveNotes(ctx context.Context, meetingID int64, text string) error {
	r.notesMu.Lock()
	defer r.notesMu.Unlock()

	notes, err := r.loadNotes(ctx)
	if err != nil {
		return err
	}
	notes[meetingID] = text

	doc := make(map[string]string, len(notes))
	for id, body := range notes {
		doc[strconv.FormatInt(id, 10)] = body
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("kv: encode notes: %w", err)
	}
	return r.store.Set(ctx, notesKey, raw, 0)
}

func (r *Repository) loadNotes(ctx context.Context) (map[int64]string, error) {
	notes := make(map[int64]string)
	raw, err := r.store.Get(ctx, notesKey)
	if errors.Is(err, ErrMissing) {
		return notes, nil
	}
	if err != nil {
		return nil, err
	}

	var doc map[string]string
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("kv: decode notes: %w", err)
	}
	for key, body := range doc {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		notes[id] = body
	}
	return notes, nil
}
