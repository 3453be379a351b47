package store

import (
	"context"
	"database/sql"
	"strings"
)

// CreateUser inserts a user and returns its id.
// DisplayName defaults to the username when blank.
//
// Returns ConstraintViolation if the username or email is taken.
func (s *Store) CreateUser(ctx context.Context, u NewUser) (int64, error) {
	username := normalize(u.Username)
	displayName := normalize(strings.TrimSpace(u.DisplayName))
	if displayName == "" {
		displayName = username
	}
	now := s.stamp()

	var id int64
	err := s.withConn(ctx, "create user", func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
			INSERT INTO users (username, email, password, display_name, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, username, normalize(u.Email), u.Password, displayName, now, now)
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

// GetUserByUsername returns the full user row, password included.
// Returns NotFound if no user has that username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := s.withConn(ctx, "get user by username", func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, `
			SELECT id, username, email, password, COALESCE(display_name, username), created_at, updated_at
			FROM users
			WHERE username = ?
		`, normalize(username))

		var createdAt, updatedAt string
		if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.DisplayName, &createdAt, &updatedAt); err != nil {
			return err
		}
		var err error
		if u.CreatedAt, err = parseTime(createdAt); err != nil {
			return err
		}
		u.UpdatedAt, err = parseTime(updatedAt)
		return err
	})
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// GetUserByID returns the public projection of a user.
// Returns NotFound if the id does not exist.
func (s *Store) GetUserByID(ctx context.Context, id int64) (Profile, error) {
	var p Profile
	err := s.withConn(ctx, "get user by id", func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, `
			SELECT id, username, email, COALESCE(display_name, username), created_at
			FROM users
			WHERE id = ?
		`, id)

		var createdAt string
		if err := row.Scan(&p.ID, &p.Username, &p.Email, &p.DisplayName, &createdAt); err != nil {
			return err
		}
		var err error
		p.CreatedAt, err = parseTime(createdAt)
		return err
	})
	if err != nil {
		return Profile{}, err
	}
	return p, nil
}

// UpdateDisplayName changes a user's display name and refreshes updated_at.
// A blank name resets it to the username.
func (s *Store) UpdateDisplayName(ctx context.Context, userID int64, displayName string) error {
	displayName = normalize(strings.TrimSpace(displayName))
	const op = "update display name"
	return s.withConn(ctx, op, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
			UPDATE users
			SET display_name = COALESCE(NULLIF(?, ''), username), updated_at = ?
			WHERE id = ?
		`, displayName, s.stamp(), userID)
		if err != nil {
			return err
		}
		return requireRow(res, op)
	})
}

// DeleteUser physically removes a user. Conversations the user created,
// their participants and messages, and the user's own memberships and
// messages are removed by cascade.
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	const op = "delete user"
	return s.withConn(ctx, op, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
		if err != nil {
			return err
		}
		return requireRow(res, op)
	})
}

// requireRow turns "no rows affected" into NotFound.
func requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(op)
	}
	return nil
}
