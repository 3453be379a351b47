package router

import (
	"time"

	"github.com/roach88/parley/internal/store"
)

// DeletedPlaceholder replaces the text of a deleted message wherever one
// is surfaced.
const DeletedPlaceholder = "[message deleted]"

// UserView is the public projection of a user. It never carries the password.
type UserView struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// ConversationView is a conversation row with its aggregates.
type ConversationView struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	CreatedBy    int64      `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	MemberCount  int        `json:"member_count"`
	MessageCount int        `json:"message_count"`
	LastActivity *time.Time `json:"last_activity"`
}

// MessageView is a message row joined with its sender's names.
type MessageView struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	SenderID       int64      `json:"sender_id"`
	MessageText    string     `json:"message_text"`
	IsEdited       bool       `json:"is_edited"`
	IsDeleted      bool       `json:"is_deleted"`
	EditedAt       *time.Time `json:"edited_at"`
	DeletedAt      *time.Time `json:"deleted_at"`
	CreatedAt      time.Time  `json:"created_at"`
	Username       string     `json:"username"`
	DisplayName    string     `json:"display_name"`
}

func newUserView(p store.Profile) UserView {
	return UserView{
		ID:          p.ID,
		Username:    p.Username,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		CreatedAt:   p.CreatedAt,
	}
}

func newConversationViews(rows []store.ConversationSummary) []ConversationView {
	views := make([]ConversationView, 0, len(rows))
	for _, c := range rows {
		views = append(views, ConversationView{
			ID:           c.ID,
			Name:         c.Name,
			CreatedBy:    c.CreatedBy,
			CreatedAt:    c.CreatedAt,
			UpdatedAt:    c.UpdatedAt,
			MemberCount:  c.MemberCount,
			MessageCount: c.MessageCount,
			LastActivity: c.LastActivity,
		})
	}
	return views
}

// newMessageViews converts rows, redacting the text of deleted ones.
func newMessageViews(rows []store.Message) []MessageView {
	views := make([]MessageView, 0, len(rows))
	for _, m := range rows {
		text := m.Text
		if m.IsDeleted {
			text = DeletedPlaceholder
		}
		views = append(views, MessageView{
			ID:             m.ID,
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			MessageText:    text,
			IsEdited:       m.IsEdited,
			IsDeleted:      m.IsDeleted,
			EditedAt:       m.EditedAt,
			DeletedAt:      m.DeletedAt,
			CreatedAt:      m.CreatedAt,
			Username:       m.SenderUsername,
			DisplayName:    m.SenderDisplayName,
		})
	}
	return views
}
