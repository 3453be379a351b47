package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/parley/internal/auth"
	"github.com/roach88/parley/internal/store"
)

// Store is the access layer the router delegates to. *store.Store
// implements it.
type Store interface {
	CreateUser(ctx context.Context, u store.NewUser) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	GetUserByID(ctx context.Context, id int64) (store.Profile, error)
	UpdateDisplayName(ctx context.Context, userID int64, displayName string) error
	DeleteUser(ctx context.Context, userID int64) error

	StartConversation(ctx context.Context, name string, createdBy int64) (int64, error)
	AddUserToConversation(ctx context.Context, conversationID, userID int64) (int64, error)
	GetUserConversations(ctx context.Context, userID int64) ([]store.ConversationSummary, error)
	GetAllConversations(ctx context.Context) ([]store.ConversationSummary, error)
	GetJoinableConversations(ctx context.Context, userID int64) ([]store.ConversationSummary, error)
	RenameConversation(ctx context.Context, conversationID int64, name string) error
	DeleteConversation(ctx context.Context, conversationID int64) error

	SaveMessage(ctx context.Context, conversationID, senderID int64, text string) (int64, error)
	GetMessages(ctx context.Context, conversationID int64) ([]store.Message, error)
	GetMessageHistory(ctx context.Context, conversationID int64) ([]store.Message, error)
	EditMessage(ctx context.Context, messageID int64, newText string) error
	DeleteMessage(ctx context.Context, messageID int64) error

	Stats(ctx context.Context) (store.Stats, error)
	Ping(ctx context.Context) error
}

var _ Store = (*store.Store)(nil)

// IDGenerator produces request ids for log correlation.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 request ids.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Router exposes the access layer under stable operation names and wraps
// every outcome in a Result. It holds no per-call state and is safe for
// concurrent use.
type Router struct {
	store  Store
	hasher *auth.PasswordHasher
	tokens *auth.TokenIssuer
	ids    IDGenerator
	logger *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithPasswordHasher sets the hasher used by user-register and user-login.
func WithPasswordHasher(h *auth.PasswordHasher) Option {
	return func(r *Router) {
		if h != nil {
			r.hasher = h
		}
	}
}

// WithTokenIssuer makes user-login return a signed session token.
func WithTokenIssuer(t *auth.TokenIssuer) Option {
	return func(r *Router) {
		r.tokens = t
	}
}

// WithIDGenerator replaces the UUIDv7 request id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Router) {
		if g != nil {
			r.ids = g
		}
	}
}

// New creates a Router over s.
func New(s Store, opts ...Option) *Router {
	r := &Router{
		store:  s,
		hasher: auth.NewPasswordHasher(0),
		ids:    UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// handler adapts one typed operation to the raw-payload form.
type handler func(r *Router, ctx context.Context, sess Session, raw json.RawMessage) Envelope

func handle[Req, Resp any](fn func(*Router, context.Context, Session, Req) Result[Resp]) handler {
	return func(r *Router, ctx context.Context, sess Session, raw json.RawMessage) Envelope {
		var req Req
		if err := decodePayload(raw, &req); err != nil {
			return Fail[Resp](KindInvalidPayload, err.Error())
		}
		return fn(r, ctx, sess, req)
	}
}

// Operation names.
const (
	OpUserLogin                = "user-login"
	OpUserRegister             = "user-register"
	OpSaveMessage              = "save-message"
	OpGetMessages              = "get-messages"
	OpGetUserConversations     = "get-user-conversations"
	OpGetAllConversations      = "get-all-conversations"
	OpCreateConversation       = "create-conversation"
	OpAddUserToConversation    = "add-user-to-conversation"
	OpEditMessage              = "edit-message"
	OpDeleteMessage            = "delete-message"
	OpTestDBConnection         = "test-db-connection"
	OpGetUser                  = "get-user"
	OpGetJoinableConversations = "get-joinable-conversations"
	OpGetMessageHistory        = "get-message-history"
	OpUpdateProfile            = "update-profile"
	OpRenameConversation       = "rename-conversation"
	OpDeleteConversation       = "delete-conversation"
	OpDeleteUser               = "delete-user"
	OpGetStoreStats            = "get-store-stats"
)

var operations = map[string]handler{
	OpUserLogin:                handle((*Router).Login),
	OpUserRegister:             handle((*Router).Register),
	OpSaveMessage:              handle((*Router).SaveMessage),
	OpGetMessages:              handle((*Router).GetMessages),
	OpGetUserConversations:     handle((*Router).GetUserConversations),
	OpGetAllConversations:      handle((*Router).GetAllConversations),
	OpCreateConversation:       handle((*Router).CreateConversation),
	OpAddUserToConversation:    handle((*Router).AddUserToConversation),
	OpEditMessage:              handle((*Router).EditMessage),
	OpDeleteMessage:            handle((*Router).DeleteMessage),
	OpTestDBConnection:         handle((*Router).TestConnection),
	OpGetUser:                  handle((*Router).GetUser),
	OpGetJoinableConversations: handle((*Router).GetJoinableConversations),
	OpGetMessageHistory:        handle((*Router).GetMessageHistory),
	OpUpdateProfile:            handle((*Router).UpdateProfile),
	OpRenameConversation:       handle((*Router).RenameConversation),
	OpDeleteConversation:       handle((*Router).DeleteConversation),
	OpDeleteUser:               handle((*Router).DeleteUser),
	OpGetStoreStats:            handle((*Router).StoreStats),
}

// Operations returns the supported operation names, sorted.
func Operations() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// administrative operations destroy data owned by other users. They are
// reachable from the CLI only.
var administrative = map[string]bool{
	OpDeleteUser:         true,
	OpDeleteConversation: true,
}

// IsAdministrative reports whether op is reserved for local administration
// and must not be exposed to chat clients.
func IsAdministrative(op string) bool {
	return administrative[op]
}

// ClientOperations returns the sorted operation names that chat clients
// may call, leaving out administrative ones.
func ClientOperations() []string {
	all := Operations()
	names := make([]string, 0, len(all))
	for _, name := range all {
		if !administrative[name] {
			names = append(names, name)
		}
	}
	return names
}

// Has reports whether op is a known operation.
func Has(op string) bool {
	_, ok := operations[op]
	return ok
}

// Dispatch runs the named operation with a JSON payload.
//
// It always returns an Envelope: unknown operations, undecodable
// payloads, access layer errors and panics all become failures.
func (r *Router) Dispatch(ctx context.Context, op string, sess Session, payload json.RawMessage) (env Envelope) {
	reqID := r.ids.Generate()
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("operation panicked",
				"request_id", reqID,
				"op", op,
				"panic", fmt.Sprint(p),
			)
			env = Fail[Empty](KindInternal, fmt.Sprintf("internal error in %s", op))
		}
		r.logOutcome(reqID, op, sess, start, env)
	}()

	h, ok := operations[op]
	if !ok {
		return Fail[Empty](KindUnknownOperation, fmt.Sprintf("unknown operation %q", op))
	}
	return h(r, ctx, sess, payload)
}

func (r *Router) logOutcome(reqID, op string, sess Session, start time.Time, env Envelope) {
	attrs := []any{
		"request_id", reqID,
		"op", op,
		"user_id", sess.UserID,
		"username", sess.Username,
		"duration", time.Since(start),
	}
	if f := env.Failure(); f != nil {
		r.logger.Warn("operation failed", append(attrs, "kind", f.Kind, "error", f.Message)...)
		return
	}
	r.logger.Debug("operation succeeded", attrs...)
}
