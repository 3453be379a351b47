// Package httpapi serves the router's operation catalogue over local HTTP:
// POST /ipc/{operation} takes the JSON payload as its body and answers
// with the envelope. Administrative operations are refused with 403.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/roach88/parley/internal/auth"
	"github.com/roach88/parley/internal/router"
)

// Defaults applied when an Option does not override them.
const (
	DefaultMaxBodyBytes    = 1 << 20
	DefaultShutdownTimeout = 5 * time.Second
)

// ConversationHeader carries the caller's current conversation id.
const ConversationHeader = "X-Conversation-ID"

// Server is the HTTP front of a router.Router.
type Server struct {
	router          *router.Router
	tokens          *auth.TokenIssuer
	logger          *slog.Logger
	allowedOrigin   string
	maxBodyBytes    int64
	shutdownTimeout time.Duration
	handler         http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTokenIssuer enables bearer tokens. Without it any Authorization
// header is rejected.
func WithTokenIssuer(t *auth.TokenIssuer) Option {
	return func(s *Server) { s.tokens = t }
}

// WithAllowedOrigin sets the CORS origin. Empty disables CORS headers.
func WithAllowedOrigin(origin string) Option {
	return func(s *Server) { s.allowedOrigin = origin }
}

// WithMaxBodyBytes bounds request payloads.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown in Serve.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// NewServer builds the handler tree for r.
func NewServer(r *router.Router, opts ...Option) *Server {
	s := &Server{
		router:          r,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxBodyBytes:    DefaultMaxBodyBytes,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	m := mux.NewRouter()
	m.HandleFunc("/ipc", s.handleList).Methods(http.MethodGet)
	m.HandleFunc("/ipc/{operation}", s.handleOperation).Methods(http.MethodPost)
	m.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	m.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	m.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)
	m.Use(s.accessLog)

	// CORS wraps the mux so preflight requests are answered before route
	// method matching.
	s.handler = s.cors(m)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve accepts connections on l until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", l.Addr().String())
		errCh <- srv.Serve(l)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, l)
}

type operationList struct {
	Operations []string `json:"operations"`
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	s.writeEnvelope(w, http.StatusOK, router.Ok(operationList{Operations: router.ClientOperations()}))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	env := s.router.TestConnection(r.Context(), router.Session{}, router.NoPayload{})
	status := http.StatusOK
	if v, _ := env.Value(); !v.Connected {
		status = http.StatusServiceUnavailable
	}
	s.writeEnvelope(w, status, env)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeEnvelope(w, http.StatusNotFound,
		router.Fail[router.Empty](router.KindUnknownOperation, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path)))
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeEnvelope(w, http.StatusMethodNotAllowed,
		router.Fail[router.Empty](router.KindInvalidPayload, fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path)))
}

func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request) {
	op := mux.Vars(r)["operation"]
	if !router.Has(op) {
		s.writeEnvelope(w, http.StatusNotFound,
			router.Fail[router.Empty](router.KindUnknownOperation, fmt.Sprintf("unknown operation %q", op)))
		return
	}
	if router.IsAdministrative(op) {
		s.writeEnvelope(w, http.StatusForbidden,
			router.Fail[router.Empty](router.KindUnauthorized, fmt.Sprintf("operation %q is only available from the command line", op)))
		return
	}

	sess, status, err := s.session(r)
	if err != nil {
		kind := router.KindUnauthorized
		if status == http.StatusBadRequest {
			kind = router.KindInvalidPayload
		}
		s.writeEnvelope(w, status, router.Fail[router.Empty](kind, err.Error()))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		s.writeEnvelope(w, http.StatusRequestEntityTooLarge,
			router.Fail[router.Empty](router.KindInvalidPayload, "payload too large"))
		return
	}

	env := s.router.Dispatch(r.Context(), op, sess, body)
	s.writeEnvelope(w, http.StatusOK, env)
}

// session builds the caller's Session from the bearer token and the
// conversation header. The returned status is meaningful only with an error.
func (s *Server) session(r *http.Request) (router.Session, int, error) {
	var sess router.Session

	if h := r.Header.Get("Authorization"); h != "" {
		token, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || token == "" {
			return sess, http.StatusUnauthorized, errors.New("malformed Authorization header")
		}
		if s.tokens == nil {
			return sess, http.StatusUnauthorized, errors.New("session tokens are not enabled")
		}
		claims, err := s.tokens.Parse(token)
		if err != nil {
			return sess, http.StatusUnauthorized, err
		}
		sess.UserID = claims.UserID
		sess.Username = claims.Username
	}

	if h := r.Header.Get(ConversationHeader); h != "" {
		id, err := strconv.ParseInt(h, 10, 64)
		if err != nil || id < 0 {
			return sess, http.StatusBadRequest, fmt.Errorf("%s must be a non-negative integer", ConversationHeader)
		}
		sess.ConversationID = id
	}

	return sess, 0, nil
}

func (s *Server) writeEnvelope(w http.ResponseWriter, status int, env router.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		s.logger.Error("encode envelope", "error", err)
		status = http.StatusInternalServerError
		data = []byte(`{"success":false,"error":"encode response","kind":"Internal"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
