package store

import (
	"context"
	"database/sql"
	"fmt"
)

// summaryColumns selects a conversation with its query-time aggregates.
// Every query using it aliases conversations as c.
const summaryColumns = `
	c.id, c.name, c.created_by, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM conversation_participants p WHERE p.conversation_id = c.id) AS member_count,
	(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id) AS message_count,
	(SELECT MAX(m.created_at) FROM messages m WHERE m.conversation_id = c.id) AS last_activity`

// CreateConversation inserts a conversation and returns its id.
// Returns ReferenceViolation if createdBy is not a user.
func (s *Store) CreateConversation(ctx context.Context, name string, createdBy int64) (int64, error) {
	var id int64
	err := s.withConn(ctx, "create conversation", func(conn *sql.Conn) error {
		var err error
		id, err = insertConversation(ctx, conn, normalize(name), createdBy, s.stamp())
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// StartConversation creates a conversation and adds its creator as the
// first participant in a single transaction. Either both rows exist
// afterwards or neither does.
func (s *Store) StartConversation(ctx context.Context, name string, createdBy int64) (int64, error) {
	var id int64
	err := s.withConn(ctx, "start conversation", func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback() // No-op if committed

		now := s.stamp()
		id, err = insertConversation(ctx, tx, normalize(name), createdBy, now)
		if err != nil {
			return err
		}
		if _, err := insertParticipant(ctx, tx, id, createdBy, now); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// AddUserToConversation records a membership and returns the participant id.
// Returns ConstraintViolation if the user is already a participant and
// ReferenceViolation if either id is dangling.
func (s *Store) AddUserToConversation(ctx context.Context, conversationID, userID int64) (int64, error) {
	var id int64
	err := s.withConn(ctx, "add user to conversation", func(conn *sql.Conn) error {
		var err error
		id, err = insertParticipant(ctx, conn, conversationID, userID, s.stamp())
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetUserConversations lists the conversations userID participates in.
// Ordered by last activity, most recent first; conversations without
// messages come last, newest first among themselves.
func (s *Store) GetUserConversations(ctx context.Context, userID int64) ([]ConversationSummary, error) {
	return s.querySummaries(ctx, "get user conversations", `
		SELECT `+summaryColumns+`
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id
		WHERE cp.user_id = ?
		ORDER BY last_activity IS NULL ASC, last_activity DESC, c.created_at DESC, c.id DESC
	`, userID)
}

// GetAllConversations lists every conversation, newest first.
func (s *Store) GetAllConversations(ctx context.Context) ([]ConversationSummary, error) {
	return s.querySummaries(ctx, "get all conversations", `
		SELECT `+summaryColumns+`
		FROM conversations c
		ORDER BY c.created_at DESC, c.id DESC
	`)
}

// GetJoinableConversations lists the conversations userID is not part of, newest first.
func (s *Store) GetJoinableConversations(ctx context.Context, userID int64) ([]ConversationSummary, error) {
	return s.querySummaries(ctx, "get joinable conversations", `
		SELECT `+summaryColumns+`
		FROM conversations c
		WHERE NOT EXISTS (
			SELECT 1 FROM conversation_participants cp
			WHERE cp.conversation_id = c.id AND cp.user_id = ?
		)
		ORDER BY c.created_at DESC, c.id DESC
	`, userID)
}

// RenameConversation changes a conversation's name and refreshes updated_at.
func (s *Store) RenameConversation(ctx context.Context, conversationID int64, name string) error {
	const op = "rename conversation"
	return s.withConn(ctx, op, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
			UPDATE conversations SET name = ?, updated_at = ? WHERE id = ?
		`, normalize(name), s.stamp(), conversationID)
		if err != nil {
			return err
		}
		return requireRow(res, op)
	})
}

// DeleteConversation physically removes a conversation; participants and
// messages go with it by cascade.
func (s *Store) DeleteConversation(ctx context.Context, conversationID int64) error {
	const op = "delete conversation"
	return s.withConn(ctx, op, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, conversationID)
		if err != nil {
			return err
		}
		return requireRow(res, op)
	})
}

// execer is satisfied by *sql.Conn and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertConversation(ctx context.Context, db execer, name string, createdBy int64, now string) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO conversations (name, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, name, createdBy, now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertParticipant(ctx context.Context, db execer, conversationID, userID int64, now string) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
		VALUES (?, ?, ?)
	`, conversationID, userID, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) querySummaries(ctx context.Context, op, query string, args ...any) ([]ConversationSummary, error) {
	var summaries []ConversationSummary
	err := s.withConn(ctx, op, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			cs, err := scanSummary(rows)
			if err != nil {
				return err
			}
			summaries = append(summaries, cs)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	// Return empty slice instead of nil
	if summaries == nil {
		summaries = []ConversationSummary{}
	}
	return summaries, nil
}

func scanSummary(rows *sql.Rows) (ConversationSummary, error) {
	var cs ConversationSummary
	var createdAt, updatedAt string
	var lastActivity sql.NullString

	if err := rows.Scan(
		&cs.ID, &cs.Name, &cs.CreatedBy, &createdAt, &updatedAt,
		&cs.MemberCount, &cs.MessageCount, &lastActivity,
	); err != nil {
		return ConversationSummary{}, fmt.Errorf("scan conversation: %w", err)
	}

	var err error
	if cs.CreatedAt, err = parseTime(createdAt); err != nil {
		return ConversationSummary{}, err
	}
	if cs.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return ConversationSummary{}, err
	}
	if cs.LastActivity, err = parseNullTime(lastActivity); err != nil {
		return ConversationSummary{}, err
	}
	return cs, nil
}
