// Package store provides SQLite-backed durable storage for parley chat data
// and the Access Layer over it.
//
// The store holds four relations:
//   - users: unique username and email, stored password, display name
//   - conversations: named, owned by the creating user
//   - conversation_participants: unique (conversation_id, user_id) memberships
//   - messages: per-conversation messages with soft edit/delete state
//
// # Access Layer
//
// Each exported method performs one parameterized statement on a
// connection acquired for that call alone and released on every path.
// StartConversation is the one exception: it creates a conversation and
// its first participant in a single transaction.
//
// Aggregates (member count, message count, last activity) are computed by
// SQLite at query time. Nothing is cached.
//
// # Soft Delete
//
// DeleteMessage keeps the row and its text and sets is_deleted/deleted_at.
// GetMessages hides deleted rows; GetMessageHistory returns them and
// leaves redaction to the caller.
//
// # Errors
//
// Failures are *Error values carrying an ErrorKind:
// ConstraintViolation, ReferenceViolation, NotFound, StoreUnavailable or
// Internal. Kinds are derived from SQLite extended result codes.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: Wait for locks (default 5 seconds)
//   - foreign_keys=ON: Enforce referential integrity and cascades
package store
