package store

import (
	"context"
	"database/sql"
	"fmt"
)

const messageColumns = `
	m.id, m.conversation_id, m.sender_id, m.message_text,
	m.is_edited, m.is_deleted, m.edited_at, m.deleted_at, m.created_at,
	u.username, COALESCE(u.display_name, u.username)`

// SaveMessage appends a message to a conversation and returns its id.
// Returns ReferenceViolation if the conversation or sender does not exist.
func (s *Store) SaveMessage(ctx context.Context, conversationID, senderID int64, text string) (int64, error) {
	var id int64
	err := s.withConn(ctx, "save message", func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
			INSERT INTO messages (conversation_id, sender_id, message_text, created_at)
			VALUES (?, ?, ?, ?)
		`, conversationID, senderID, normalize(text), s.stamp())
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetMessages returns the non-deleted messages of a conversation in
// creation order, each joined with its sender's username and display name.
func (s *Store) GetMessages(ctx context.Context, conversationID int64) ([]Message, error) {
	return s.queryMessages(ctx, "get messages", `
		SELECT `+messageColumns+`
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = ? AND m.is_deleted = 0
		ORDER BY m.created_at ASC, m.id ASC
	`, conversationID)
}

// GetMessageHistory returns every message of a conversation, deleted ones
// included, in creation order. Deleted rows still carry their stored text;
// callers must not surface it.
func (s *Store) GetMessageHistory(ctx context.Context, conversationID int64) ([]Message, error) {
	return s.queryMessages(ctx, "get message history", `
		SELECT `+messageColumns+`
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = ?
		ORDER BY m.created_at ASC, m.id ASC
	`, conversationID)
}

// EditMessage replaces a message's text, marks it edited and stamps edited_at.
// Repeating the same edit leaves the message in the same observable state:
// edited_at keeps its first stamp while the text is unchanged.
// Returns NotFound if the message does not exist or has been deleted.
func (s *Store) EditMessage(ctx context.Context, messageID int64, newText string) error {
	const op = "edit message"
	text := normalize(newText)
	return s.withConn(ctx, op, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
			UPDATE messages
			SET edited_at = CASE
					WHEN is_edited = 1 AND message_text = ? THEN edited_at
					ELSE ?
				END,
				message_text = ?,
				is_edited = 1
			WHERE id = ? AND is_deleted = 0
		`, text, s.stamp(), text, messageID)
		if err != nil {
			return err
		}
		return requireRow(res, op)
	})
}

// DeleteMessage soft-deletes a message: the row and its text are kept,
// is_deleted is set and deleted_at records the first deletion time.
// Returns NotFound if the message does not exist.
func (s *Store) DeleteMessage(ctx context.Context, messageID int64) error {
	const op = "delete message"
	return s.withConn(ctx, op, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
			UPDATE messages
			SET is_deleted = 1, deleted_at = COALESCE(deleted_at, ?)
			WHERE id = ?
		`, s.stamp(), messageID)
		if err != nil {
			return err
		}
		return requireRow(res, op)
	})
}

// Stats returns row counts for the four relations.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.withConn(ctx, "stats", func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, `
			SELECT
				(SELECT COUNT(*) FROM users),
				(SELECT COUNT(*) FROM conversations),
				(SELECT COUNT(*) FROM conversation_participants),
				(SELECT COUNT(*) FROM messages)
		`).Scan(&st.Users, &st.Conversations, &st.Participants, &st.Messages)
	})
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (s *Store) queryMessages(ctx context.Context, op, query string, args ...any) ([]Message, error) {
	var msgs []Message
	err := s.withConn(ctx, op, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			msg, err := scanMessage(rows)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	if msgs == nil {
		msgs = []Message{}
	}
	return msgs, nil
}

func scanMessage(rows *sql.Rows) (Message, error) {
	var msg Message
	var editedAt, deletedAt sql.NullString
	var createdAt string

	if err := rows.Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Text,
		&msg.IsEdited, &msg.IsDeleted, &editedAt, &deletedAt, &createdAt,
		&msg.SenderUsername, &msg.SenderDisplayName,
	); err != nil {
		return Message{}, fmt.Errorf("scan message: %w", err)
	}

	var err error
	if msg.CreatedAt, err = parseTime(createdAt); err != nil {
		return Message{}, err
	}
	if msg.EditedAt, err = parseNullTime(editedAt); err != nil {
		return Message{}, err
	}
	if msg.DeletedAt, err = parseNullTime(deletedAt); err != nil {
		return Message{}, err
	}
	return msg, nil
}
