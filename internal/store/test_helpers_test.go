package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/roach88/parley/internal/testutil"
)

// createTestStore opens a fresh database in a temp dir with a stepping
// clock so that every stamped row is one second after the previous one.
func createTestStore(t *testing.T, opts ...Option) (*Store, *testutil.SteppingClock) {
	t.Helper()
	clock := testutil.NewSteppingClock()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, append([]Option{WithClock(clock.Now)}, opts...)...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, clock
}

// mustCreateUser creates a user with a derived email and fails the test on error.
func mustCreateUser(t *testing.T, s *Store, username string) int64 {
	t.Helper()
	id, err := s.CreateUser(context.Background(), NewUser{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("CreateUser(%q) failed: %v", username, err)
	}
	return id
}

// mustStartConversation creates a conversation owned by createdBy, who
// becomes its first participant.
func mustStartConversation(t *testing.T, s *Store, name string, createdBy int64) int64 {
	t.Helper()
	id, err := s.StartConversation(context.Background(), name, createdBy)
	if err != nil {
		t.Fatalf("StartConversation(%q) failed: %v", name, err)
	}
	return id
}

func mustSaveMessage(t *testing.T, s *Store, conversationID, senderID int64, text string) int64 {
	t.Helper()
	id, err := s.SaveMessage(context.Background(), conversationID, senderID, text)
	if err != nil {
		t.Fatalf("SaveMessage(%q) failed: %v", text, err)
	}
	return id
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s failed: %v", table, err)
	}
	return n
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
