package router

// Session is the caller context passed explicitly into every call: the
// logged-in user and the conversation currently open, if any.
//
// Payload ids left at zero fall back to the session values.
type Session struct {
	UserID         int64
	Username       string
	ConversationID int64
}

func (s Session) user(id int64) int64 {
	if id != 0 {
		return id
	}
	return s.UserID
}

func (s Session) conversation(id int64) int64 {
	if id != 0 {
		return id
	}
	return s.ConversationID
}
