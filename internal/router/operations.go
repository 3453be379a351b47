package router

import (
	"context"
	"errors"

	"github.com/roach88/parley/internal/auth"
	"github.com/roach88/parley/internal/store"
)

// Login checks a username and password. A missing user and a wrong
// password fail identically with KindUnauthorized.
func (r *Router) Login(ctx context.Context, _ Session, req LoginRequest) Result[LoginResponse] {
	u, err := r.store.GetUserByUsername(ctx, req.Username)
	if store.IsNotFound(err) {
		return Fail[LoginResponse](KindUnauthorized, msgInvalidCredentials)
	}
	if err != nil {
		return fromError[LoginResponse](err)
	}

	if err := r.hasher.Check(u.Password, req.Password); err != nil {
		if errors.Is(err, auth.ErrMismatch) {
			return Fail[LoginResponse](KindUnauthorized, msgInvalidCredentials)
		}
		return fromError[LoginResponse](err)
	}

	resp := LoginResponse{User: newUserView(u.Profile())}
	if r.tokens != nil {
		token, err := r.tokens.Issue(u.ID, u.Username)
		if err != nil {
			return fromError[LoginResponse](err)
		}
		resp.Token = token
	}
	return Ok(resp)
}

// Register creates a user, storing a bcrypt hash of the password.
func (r *Router) Register(ctx context.Context, _ Session, req RegisterRequest) Result[RegisterResponse] {
	hash, err := r.hasher.Hash(req.Password)
	if err != nil {
		return fromError[RegisterResponse](err)
	}
	id, err := r.store.CreateUser(ctx, store.NewUser{
		Username:    req.Username,
		Email:       req.Email,
		Password:    hash,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return fromError[RegisterResponse](err)
	}
	return Ok(RegisterResponse{UserID: id})
}

// SaveMessage appends a message. Zero ids fall back to the session's
// user and current conversation.
func (r *Router) SaveMessage(ctx context.Context, sess Session, req SaveMessageRequest) Result[SaveMessageResponse] {
	id, err := r.store.SaveMessage(ctx, sess.conversation(req.ConversationID), sess.user(req.SenderID), req.MessageText)
	if err != nil {
		return fromError[SaveMessageResponse](err)
	}
	return Ok(SaveMessageResponse{MessageID: id})
}

// GetMessages lists the visible messages of a conversation.
func (r *Router) GetMessages(ctx context.Context, sess Session, id ConversationID) Result[MessagesResponse] {
	msgs, err := r.store.GetMessages(ctx, sess.conversation(int64(id)))
	if err != nil {
		return fromError[MessagesResponse](err)
	}
	return Ok(MessagesResponse{Messages: newMessageViews(msgs)})
}

// GetMessageHistory lists every message of a conversation; deleted ones
// carry DeletedPlaceholder instead of their text.
func (r *Router) GetMessageHistory(ctx context.Context, sess Session, id ConversationID) Result[MessagesResponse] {
	msgs, err := r.store.GetMessageHistory(ctx, sess.conversation(int64(id)))
	if err != nil {
		return fromError[MessagesResponse](err)
	}
	return Ok(MessagesResponse{Messages: newMessageViews(msgs)})
}

// GetUserConversations lists the caller's conversations by last activity.
func (r *Router) GetUserConversations(ctx context.Context, sess Session, id UserID) Result[ConversationsResponse] {
	rows, err := r.store.GetUserConversations(ctx, sess.user(int64(id)))
	if err != nil {
		return fromError[ConversationsResponse](err)
	}
	return Ok(ConversationsResponse{Conversations: newConversationViews(rows)})
}

// GetAllConversations lists every conversation, newest first.
func (r *Router) GetAllConversations(ctx context.Context, _ Session, _ NoPayload) Result[ConversationsResponse] {
	rows, err := r.store.GetAllConversations(ctx)
	if err != nil {
		return fromError[ConversationsResponse](err)
	}
	return Ok(ConversationsResponse{Conversations: newConversationViews(rows)})
}

// GetJoinableConversations lists conversations the user has not joined.
func (r *Router) GetJoinableConversations(ctx context.Context, sess Session, id UserID) Result[ConversationsResponse] {
	rows, err := r.store.GetJoinableConversations(ctx, sess.user(int64(id)))
	if err != nil {
		return fromError[ConversationsResponse](err)
	}
	return Ok(ConversationsResponse{Conversations: newConversationViews(rows)})
}

// CreateConversation creates a conversation and joins its creator in one
// transaction.
func (r *Router) CreateConversation(ctx context.Context, sess Session, req CreateConversationRequest) Result[CreateConversationResponse] {
	id, err := r.store.StartConversation(ctx, req.Name, sess.user(req.CreatedBy))
	if err != nil {
		return fromError[CreateConversationResponse](err)
	}
	return Ok(CreateConversationResponse{ConversationID: id})
}

// AddUserToConversation adds a participant to a conversation.
func (r *Router) AddUserToConversation(ctx context.Context, sess Session, req MembershipRequest) Result[Empty] {
	_, err := r.store.AddUserToConversation(ctx, sess.conversation(req.ConversationID), sess.user(req.UserID))
	if err != nil {
		return fromError[Empty](err)
	}
	return Ok(Empty{})
}

// EditMessage replaces a message's text and marks it edited.
func (r *Router) EditMessage(ctx context.Context, _ Session, req EditMessageRequest) Result[Empty] {
	if err := r.store.EditMessage(ctx, req.MessageID, req.NewText); err != nil {
		return fromError[Empty](err)
	}
	return Ok(Empty{})
}

// DeleteMessage soft-deletes a message.
func (r *Router) DeleteMessage(ctx context.Context, _ Session, id MessageID) Result[Empty] {
	if err := r.store.DeleteMessage(ctx, int64(id)); err != nil {
		return fromError[Empty](err)
	}
	return Ok(Empty{})
}

// TestConnection reports store reachability. An unreachable store is a
// successful call with connected=false.
func (r *Router) TestConnection(ctx context.Context, _ Session, _ NoPayload) Result[ConnectionResponse] {
	err := r.store.Ping(ctx)
	if err != nil {
		r.logger.Warn("store ping failed", "error", err)
	}
	return Ok(ConnectionResponse{Connected: err == nil})
}

// GetUser returns a user's public profile.
func (r *Router) GetUser(ctx context.Context, sess Session, id UserID) Result[UserResponse] {
	p, err := r.store.GetUserByID(ctx, sess.user(int64(id)))
	if err != nil {
		return fromError[UserResponse](err)
	}
	return Ok(UserResponse{User: newUserView(p)})
}

// UpdateProfile changes a user's display name.
func (r *Router) UpdateProfile(ctx context.Context, sess Session, req UpdateProfileRequest) Result[Empty] {
	if err := r.store.UpdateDisplayName(ctx, sess.user(req.UserID), req.DisplayName); err != nil {
		return fromError[Empty](err)
	}
	return Ok(Empty{})
}

// RenameConversation changes a conversation's name.
func (r *Router) RenameConversation(ctx context.Context, sess Session, req RenameConversationRequest) Result[Empty] {
	if err := r.store.RenameConversation(ctx, sess.conversation(req.ConversationID), req.Name); err != nil {
		return fromError[Empty](err)
	}
	return Ok(Empty{})
}

// DeleteConversation removes a conversation with its participants and messages.
func (r *Router) DeleteConversation(ctx context.Context, sess Session, id ConversationID) Result[Empty] {
	if err := r.store.DeleteConversation(ctx, sess.conversation(int64(id))); err != nil {
		return fromError[Empty](err)
	}
	return Ok(Empty{})
}

// DeleteUser removes a user and everything that cascades from them.
func (r *Router) DeleteUser(ctx context.Context, sess Session, id UserID) Result[Empty] {
	if err := r.store.DeleteUser(ctx, sess.user(int64(id))); err != nil {
		return fromError[Empty](err)
	}
	return Ok(Empty{})
}

// StoreStats returns row counts for the four relations.
func (r *Router) StoreStats(ctx context.Context, _ Session, _ NoPayload) Result[StatsResponse] {
	st, err := r.store.Stats(ctx)
	if err != nil {
		return fromError[StatsResponse](err)
	}
	return Ok(StatsResponse{
		Users:         st.Users,
		Conversations: st.Conversations,
		Participants:  st.Participants,
		Messages:      st.Messages,
	})
}
