package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// LoginRequest is the user-login payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the user-register payload.
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// SaveMessageRequest is the save-message payload.
type SaveMessageRequest struct {
	ConversationID int64  `json:"conversationId"`
	SenderID       int64  `json:"senderId"`
	MessageText    string `json:"messageText"`
}

// CreateConversationRequest is the create-conversation payload.
type CreateConversationRequest struct {
	Name      string `json:"name"`
	CreatedBy int64  `json:"createdBy"`
}

// MembershipRequest is the add-user-to-conversation payload.
type MembershipRequest struct {
	ConversationID int64 `json:"conversationId"`
	UserID         int64 `json:"userId"`
}

// EditMessageRequest is the edit-message payload.
type EditMessageRequest struct {
	MessageID int64  `json:"messageId"`
	NewText   string `json:"newText"`
}

// UpdateProfileRequest is the update-profile payload.
type UpdateProfileRequest struct {
	UserID      int64  `json:"userId"`
	DisplayName string `json:"displayName"`
}

// RenameConversationRequest is the rename-conversation payload.
type RenameConversationRequest struct {
	ConversationID int64  `json:"conversationId"`
	Name           string `json:"name"`
}

// Several operations take a bare id as their payload. Each id type also
// accepts a quoted number and an object keyed by its camelCase name, so
// `7`, `"7"` and `{"conversationId": 7}` decode the same.

// ConversationID is a bare conversation id payload.
type ConversationID int64

// UserID is a bare user id payload.
type UserID int64

// MessageID is a bare message id payload.
type MessageID int64

func (id *ConversationID) UnmarshalJSON(data []byte) error {
	return unmarshalID(data, "conversationId", (*int64)(id))
}

func (id *UserID) UnmarshalJSON(data []byte) error {
	return unmarshalID(data, "userId", (*int64)(id))
}

func (id *MessageID) UnmarshalJSON(data []byte) error {
	return unmarshalID(data, "messageId", (*int64)(id))
}

func unmarshalID(data []byte, key string, dst *int64) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*dst = 0
		return nil
	}

	switch data[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		raw, ok := obj[key]
		if !ok {
			*dst = 0
			return nil
		}
		return unmarshalID(raw, key, dst)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer id", key, s)
		}
		*dst = n
		return nil
	default:
		var n int64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}
}

// NoPayload is the payload type of operations that take none. Anything
// sent is ignored.
type NoPayload struct{}

func (*NoPayload) UnmarshalJSON([]byte) error { return nil }

// decodePayload decodes raw into dst. An empty payload leaves dst zero.
func decodePayload(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return fmt.Errorf("field %s: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
