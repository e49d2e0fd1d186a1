package kv_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/mentoring-scheduler/internal/persistence"
	"github.com/example/mentoring-scheduler/internal/persistence/kv"
	"github.com/example/mentoring-scheduler/internal/testfixtures"
)

func TestRepository_SessionNotesContract(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	repo := kv.NewRepository(kv.NewMemoryStore(clock.NowFunc()), clock.NowFunc())
	testfixtures.RunSessionNotesContract(t, repo, repo)
}

func TestRepository_UsesOriginalKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := testfixtures.NewClock(time.Time{})
	store := kv.NewMemoryStore(clock.NowFunc())
	repo := kv.NewRepository(store, clock.NowFunc())

	if err := repo.SaveNotes(ctx, 3, "Pair programming plan"); err != nil {
		t.Fatalf("SaveNotes failed: %v", err)
	}
	raw, err := store.Get(ctx, "meetingNotes")
	if err != nil {
		t.Fatalf("expected meetingNotes document: %v", err)
	}
	if string(raw) != `{"3":"Pair programming plan"}` {
		t.Fatalf("unexpected notes document: %s", raw)
	}

	session := persistence.Session{Token: "abc", User: persistence.User{ID: 13, Role: persistence.RoleStudent}, ExpiresAt: clock.Now().Add(time.Hour)}
	if err := repo.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if _, err := store.Get(ctx, "session:abc"); err != nil {
		t.Fatalf("expected session:abc key: %v", err)
	}
}

func TestRepository_SessionsExpireWithStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := testfixtures.NewClock(time.Time{})
	repo := kv.NewRepository(kv.NewMemoryStore(clock.NowFunc()), clock.NowFunc())

	session := persistence.Session{Token: "short", ExpiresAt: clock.Now().Add(time.Minute)}
	if err := repo.SaveSession(ctx, session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	clock.Advance(2 * time.Minute)

	if _, err := repo.LoadSession(ctx, "short"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := kv.NewMemoryStore(nil)
	value := []byte("original")
	if err := store.Set(ctx, "k", value, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value[0] = 'X'

	got, err := store.Get(ctx, "k")
	if err != nil || string(got) != "original" {
		t.Fatalf("unexpected value %q, %v", got, err)
	}
	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, kv.ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
}
