package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	if _, err := s1.CreateUser(context.Background(), NewUser{Username: "alice", Email: "a@x.io", Password: "pw"}); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	if got := countRows(t, s2.db, "users"); got != 1 {
		t.Errorf("users after reopen = %d, want 1", got)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	tables := []string{"users", "conversations", "conversation_participants", "messages"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	path := "/nonexistent/dir/test.db"

	_, err := Open(path)
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestClose_MultipleCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}

	// Second close must not panic
	_ = s.Close()
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s, _ := createTestStore(t)

	db := s.DB()
	if db == nil {
		t.Fatal("DB() returned nil")
	}
	if err := db.Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
}

func TestPing(t *testing.T) {
	s, _ := createTestStore(t)

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() failed: %v", err)
	}
}

func TestPing_AfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	s.Close()

	err = s.Ping(context.Background())
	if !IsStoreUnavailable(err) {
		t.Errorf("Ping() after Close = %v, want StoreUnavailable", err)
	}
}

func TestOperations_AfterCloseAreUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	s.Close()

	ctx := context.Background()
	_, err = s.CreateUser(ctx, NewUser{Username: "a", Email: "a@x.io", Password: "pw"})
	if !IsStoreUnavailable(err) {
		t.Errorf("CreateUser() after Close = %v, want StoreUnavailable", err)
	}
	_, err = s.GetMessages(ctx, 1)
	if !IsStoreUnavailable(err) {
		t.Errorf("GetMessages() after Close = %v, want StoreUnavailable", err)
	}
}

func TestWithConn_NilDB(t *testing.T) {
	s := &Store{now: time.Now}
	err := s.Ping(context.Background())
	if !IsStoreUnavailable(err) {
		t.Errorf("Ping() on nil db = %v, want StoreUnavailable", err)
	}
}

// Pragma tests

func TestPragma_JournalMode(t *testing.T) {
	s, _ := createTestStore(t)

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
}

func TestPragma_Synchronous(t *testing.T) {
	s, _ := createTestStore(t)

	// NORMAL = 1
	if err := s.verifyPragma("synchronous", "1"); err != nil {
		t.Error(err)
	}
}

func TestPragma_BusyTimeout(t *testing.T) {
	s, _ := createTestStore(t)

	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestPragma_BusyTimeoutOption(t *testing.T) {
	s, _ := createTestStore(t, WithBusyTimeout(250*time.Millisecond))

	if err := s.verifyPragma("busy_timeout", "250"); err != nil {
		t.Error(err)
	}
}

func TestPragma_ForeignKeys(t *testing.T) {
	s, _ := createTestStore(t)

	// ON = 1
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
}

func TestPragma_ForeignKeysOnEveryConnection(t *testing.T) {
	s, _ := createTestStore(t, WithMaxOpenConns(4))
	ctx := context.Background()

	// Hold several connections at once so the pool has to open new ones.
	var conns []*sql.Conn
	for i := 0; i < 3; i++ {
		conn, err := s.db.Conn(ctx)
		if err != nil {
			t.Fatalf("Conn() failed: %v", err)
		}
		conns = append(conns, conn)
	}
	for i, conn := range conns {
		var fk int
		if err := conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatalf("conn %d: %v", i, err)
		}
		if fk != 1 {
			t.Errorf("conn %d: foreign_keys = %d, want 1", i, fk)
		}
		conn.Close()
	}
}

// Schema table tests

func TestSchema_Tables(t *testing.T) {
	s, _ := createTestStore(t)

	tests := map[string][]string{
		"users":                     {"id", "username", "email", "password", "display_name", "created_at", "updated_at"},
		"conversations":             {"id", "name", "created_by", "created_at", "updated_at"},
		"conversation_participants": {"id", "conversation_id", "user_id", "joined_at"},
		"messages": {
			"id", "conversation_id", "sender_id", "message_text",
			"is_edited", "is_deleted", "edited_at", "deleted_at", "created_at",
		},
	}

	for table, want := range tests {
		columns := getTableColumns(t, s.db, table)
		for _, col := range want {
			if !contains(columns, col) {
				t.Errorf("%s table missing column %q", table, col)
			}
		}
	}
}

func TestSchema_Indexes(t *testing.T) {
	s, _ := createTestStore(t)

	if !contains(getTableIndexes(t, s.db, "messages"), "idx_messages_conversation") {
		t.Error("messages table missing index idx_messages_conversation")
	}
	if !contains(getTableIndexes(t, s.db, "conversation_participants"), "idx_participants_user") {
		t.Error("conversation_participants table missing index idx_participants_user")
	}
}

func TestSchema_ReturnsEmbeddedDDL(t *testing.T) {
	if Schema() != schemaSQL {
		t.Error("Schema() does not return the embedded DDL")
	}
}

// Constraint tests

func TestConstraint_MessageFlagsMatchTimestamps(t *testing.T) {
	s, _ := createTestStore(t)
	alice := mustCreateUser(t, s, "alice")
	conv := mustStartConversation(t, s, "general", alice)

	_, err := s.db.Exec(`
		INSERT INTO messages (conversation_id, sender_id, message_text, is_edited)
		VALUES (?, ?, 'hi', 1)
	`, conv, alice)
	if err == nil {
		t.Fatal("expected CHECK failure for is_edited without edited_at")
	}
	if !IsConstraintViolation(classify("raw insert", err)) {
		t.Errorf("classify() = %v, want ConstraintViolation", classify("raw insert", err))
	}
}

// Migration tests

func TestMigration_SchemaVersion(t *testing.T) {
	s, _ := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestMigration_IdempotentUpgrade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}

		var version int
		if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
			t.Fatalf("failed to get user_version: %v", err)
		}
		if version != currentSchemaVersion {
			t.Errorf("iteration %d: user_version = %d, want %d", i, version, currentSchemaVersion)
		}
		s.Close()
	}
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	// Simulate a database created before the participant index existed
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := db.Exec("DROP INDEX idx_participants_user"); err != nil {
		t.Fatalf("failed to drop index: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatalf("failed to set user_version: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d after migration", version, currentSchemaVersion)
	}

	if !contains(getTableIndexes(t, s.db, "conversation_participants"), "idx_participants_user") {
		t.Error("idx_participants_user missing after migration")
	}
}
