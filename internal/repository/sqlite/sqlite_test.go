package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sakif/writespace/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// Using ":memory:" creates a fresh database that exists only during the test.
// Benefits:
// - Fast: no disk I/O
// - Isolated: each test gets its own database
// - Clean: automatically destroyed when the connection closes
//
// newTestDB is a "test helper". The `t.Helper()` call tells Go's test framework
// to report errors at the CALLER's line number, not inside this function.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// fixedClock makes DB timestamps deterministic. Each call advances by step.
func fixedClock(db *DB, start time.Time, step time.Duration) {
	current := start
	db.now = func() time.Time {
		t := current
		current = current.Add(step)
		return t
	}
}

// createTestUser creates a password account and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, email string) *model.User {
	t.Helper()
	hash := "$2a$04$not-a-real-hash-but-fine-for-storage"
	user := &model.User{Email: email, Name: "Test", PasswordHash: &hash}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "writespace.db")
	ctx := context.Background()

	first, err := New(ctx, path)
	if err != nil {
		t.Fatalf("first New() error = %v", err)
	}
	createTestUser(t, first, "keep@x.io")
	first.Close()

	// Reopening must not re-run migrations or lose data.
	second, err := New(ctx, path)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer second.Close()

	n, err := second.Users().Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() after reopen = %d, want 1", n)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db := newTestDB(t)

	var on int
	if err := db.conn.QueryRow(`PRAGMA foreign_keys`).Scan(&on); err != nil {
		t.Fatalf("reading pragma: %v", err)
	}
	if on != 1 {
		t.Errorf("foreign_keys = %d, want 1", on)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestDSN(t *testing.T) {
	cases := map[string]string{
		":memory:":           ":memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		"data/w.db":          "data/w.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		"file:w.db?mode=rwc": "file:w.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
	}
	for in, want := range cases {
		if got := dsn(in); got != want {
			t.Errorf("dsn(%q) = %q, want %q", in, got, want)
		}
	}
}
