package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sparkapp/spark-server/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// makeTestUser inserts a user row so FK constraints hold.
func makeTestUser(t *testing.T, s *Store, id string) *domain.User {
	t.Helper()
	now := time.Now()
	u := &domain.User{
		ID:           id,
		Email:        id + "@example.com",
		DisplayName:  id,
		PasswordHash: "x",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", id, err)
	}
	return u
}

// makeTestBook inserts a book owned by userID.
func makeTestBook(t *testing.T, s *Store, id, userID string) *domain.Book {
	t.Helper()
	now := time.Now()
	b := &domain.Book{
		ID:        id,
		UserID:    userID,
		Title:     "Book " + id,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.CreateBook(context.Background(), b); err != nil {
		t.Fatalf("create book %s: %v", id, err)
	}
	return b
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	// Verify WAL mode is set.
	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	// Verify all tables exist.
	tables := []string{
		"users", "books", "highlights", "sparks",
		"categories", "tags",
		"automations", "automation_actions",
		"book_categories", "highlight_categories", "spark_categories",
		"book_tags", "highlight_tags", "spark_tags",
	}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s1, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s1.Close()

	s2, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	s2.Close()
}

func TestRegistryPanicsOnUnknownKind(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown resource kind")
		}
	}()
	tablesFor(domain.ResourceKind("note"))
}
