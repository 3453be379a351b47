package store

import (
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"
)

// timeLayout is the fixed-width storage format for timestamps.
// Fixed width keeps lexical and chronological order identical.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// User is a full users row, including the stored password.
type User struct {
	ID          int64
	Username    string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Profile is the public projection of a user (no password).
type Profile struct {
	ID          int64
	Username    string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

// Profile drops the password from a full user row.
func (u User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

// NewUser holds the inputs to CreateUser.
// Password is stored as given; hashing is the caller's concern.
type NewUser struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// Conversation is a conversations row.
type Conversation struct {
	ID        int64
	Name      string
	CreatedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConversationSummary annotates a conversation with aggregates computed
// at query time. LastActivity is nil when the conversation has no messages.
type ConversationSummary struct {
	Conversation
	MemberCount  int
	MessageCount int
	LastActivity *time.Time
}

// Message is a messages row joined with its sender's names.
type Message struct {
	ID                int64
	ConversationID    int64
	SenderID          int64
	Text              string
	IsEdited          bool
	IsDeleted         bool
	EditedAt          *time.Time
	DeletedAt         *time.Time
	CreatedAt         time.Time
	SenderUsername    string
	SenderDisplayName string
}

// Stats holds row counts for each relation.
type Stats struct {
	Users         int
	Conversations int
	Participants  int
	Messages      int
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// normalize puts user-supplied text into NFC so that canonically
// equivalent strings compare equal in UNIQUE indexes.
func normalize(s string) string {
	return norm.NFC.String(s)
}
