package router

// LoginResponse is returned by user-login. Token is set only when the
// router has a token issuer.
type LoginResponse struct {
	User  UserView `json:"user"`
	Token string   `json:"token,omitempty"`
}

// RegisterResponse is returned by user-register.
type RegisterResponse struct {
	UserID int64 `json:"userId"`
}

// SaveMessageResponse is returned by save-message.
type SaveMessageResponse struct {
	MessageID int64 `json:"messageId"`
}

// CreateConversationResponse is returned by create-conversation.
type CreateConversationResponse struct {
	ConversationID int64 `json:"conversationId"`
}

// MessagesResponse is returned by get-messages and get-message-history.
type MessagesResponse struct {
	Messages []MessageView `json:"messages"`
}

// ConversationsResponse is returned by the conversation listings.
type ConversationsResponse struct {
	Conversations []ConversationView `json:"conversations"`
}

// UserResponse is returned by get-user.
type UserResponse struct {
	User UserView `json:"user"`
}

// ConnectionResponse is returned by test-db-connection.
type ConnectionResponse struct {
	Connected bool `json:"connected"`
}

// StatsResponse is returned by get-store-stats.
type StatsResponse struct {
	Users         int `json:"users"`
	Conversations int `json:"conversations"`
	Participants  int `json:"participants"`
	Messages      int `json:"messages"`
}

// Empty is the success value of operations that return no fields.
type Empty struct{}
