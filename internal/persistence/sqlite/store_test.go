package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/mentoring-scheduler/internal/persistence"
	"github.com/example/mentoring-scheduler/internal/testfixtures"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "scheduler.db")
	store, err := Open(context.Background(), DefaultConfig(dsn))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestStore_RepositoryContract(t *testing.T) {
	testfixtures.RunRepositoryContract(t, func(t *testing.T) testfixtures.RepositorySet {
		store := newTestStore(t)
		return testfixtures.RepositorySet{
			Directory:    store,
			Meetings:     store,
			Availability: store,
			Accounts:     store,
			Sessions:     store,
			Notes:        store,
		}
	})
}

func TestStore_MigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.CreateUser(ctx, persistence.User{Role: persistence.RoleStudent, Name: "Meera Iyer"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := store.pool.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	var applied int
	if err := store.pool.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&applied); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected 1 applied migration, got %d", applied)
	}

	students, err := store.ListUsers(ctx, persistence.RoleStudent)
	if err != nil || len(students) != 1 {
		t.Fatalf("data lost across migrate: %+v, %v", students, err)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "scheduler.db")

	first, err := Open(ctx, DefaultConfig(dsn))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	id, err := first.NextMeetingID(ctx)
	if err != nil {
		t.Fatalf("NextMeetingID failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := Open(ctx, DefaultConfig(dsn))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	next, err := second.NextMeetingID(ctx)
	if err != nil {
		t.Fatalf("NextMeetingID failed: %v", err)
	}
	if next != id+1 {
		t.Fatalf("expected counter to continue at %d, got %d", id+1, next)
	}
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	script := "-- header\nCREATE TABLE a (id INTEGER);\n\n-- trailing comment\nINSERT INTO a VALUES (1);\n"
	statements := splitStatements(script)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if statements[0] != "CREATE TABLE a (id INTEGER)" {
		t.Fatalf("unexpected first statement: %q", statements[0])
	}
}
