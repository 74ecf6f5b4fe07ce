// Package callback runs the loopback HTTP listener that catches the identity
// provider's redirect during an interactive login and extracts the
// authorization code from it. It is the CLI's stand-in for the mobile app's
// URL-open handler.
package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"campusauth/internal/platform/httpserver"
)

// ErrAccessDenied is returned when the provider redirects back with an error
// instead of a code (the user declined the authorization prompt).
var ErrAccessDenied = errors.New("authorization was denied by the provider")

type result struct {
	code string
	err  error
}

// Server listens on a loopback address for exactly one provider redirect.
// One Server serves one login attempt; construct a fresh one per attempt.
type Server struct {
	path    string
	logger  *slog.Logger
	attempt string

	listener net.Listener
	srv      *http.Server
	results  chan result
}

// New constructs a Server that will bind to addr and answer on path.
// Port 0 in addr picks a free port; RedirectURI reports the bound address.
func New(addr, path string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind callback listener: %w", err)
	}

	s := &Server{
		path:     path,
		logger:   logger,
		attempt:  uuid.NewString(),
		listener: listener,
		results:  make(chan result, 1),
	}

	r := chi.NewRouter()
	r.Get(path, s.handleRedirect)
	s.srv = httpserver.New(addr, r)
	return s, nil
}

// RedirectURI returns the exact URI the provider must redirect to.
func (s *Server) RedirectURI() string {
	return "http://" + s.listener.Addr().String() + s.path
}

// Serve answers redirects until Shutdown. It returns nil after a clean
// shutdown. Call it from its own goroutine.
func (s *Server) Serve() error {
	err := s.srv.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// WaitForCode blocks until the provider redirect delivers a code, the
// provider reports a denial, or ctx expires.
func (s *Server) WaitForCode(ctx context.Context) (string, error) {
	select {
	case res := <-s.results:
		return res.code, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for provider redirect: %w", ctx.Err())
	}
}

// Shutdown stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errCode := q.Get("error"); errCode != "" {
		s.logger.Warn("provider redirect reported an error",
			"attempt", s.attempt,
			"error", errCode,
		)
		s.deliver(result{err: fmt.Errorf("%w: %s", ErrAccessDenied, errCode)})
		http.Error(w, "Authorization failed. You can close this window.", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code.", http.StatusBadRequest)
		return
	}

	s.logger.Debug("received provider redirect", "attempt", s.attempt)
	s.deliver(result{code: code})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<html><body><p>Signed in. You can close this window and return to the terminal.</p></body></html>"))
}

// deliver hands over the first result; later redirects for the same attempt
// are dropped.
func (s *Server) deliver(res result) {
	select {
	case s.results <- res:
	default:
	}
}
