// Package session orchestrates a complete login: it drives the
// authenticator through its milestones, running the token exchange, the
// callback listener, and the user-details fetch in between. It is the only
// package that calls the authenticator's receive methods.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"campusauth/internal/callback"
	"campusauth/internal/credentials"
	"campusauth/internal/login"
	"campusauth/internal/oauth"
	"campusauth/internal/platform/config"
	"campusauth/internal/platform/metrics"
	"campusauth/internal/userinfo"
	"campusauth/pkg/platform/sentinel"
)

// Session owns one authenticator and the collaborators needed to take it
// from LoggedOut to Authenticated. Like the authenticator, it supports one
// login at a time.
type Session struct {
	cfg     config.Config
	store   credentials.Store
	oauth   *oauth.Client
	users   *userinfo.Client
	auth    *login.Authenticator
	logger  *slog.Logger
	metrics *metrics.Metrics

	// Prompt is called with the authorization URL the user must open in a
	// browser during an interactive login. Defaults to printing on stdout.
	Prompt func(authURL string)
}

// New wires a Session from configuration. The caller owns the returned
// value; there is no shared global session.
func New(cfg config.Config, keys config.Keys, store credentials.Store, logger *slog.Logger, m *metrics.Metrics) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	return &Session{
		cfg: cfg,
		store: store,
		oauth: oauth.New(oauth.Config{
			Keys:     keys,
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		}, store, httpClient, logger, m),
		users:   userinfo.New(cfg.UserURL, httpClient, logger),
		auth:    login.NewAuthenticator(),
		logger:  logger,
		metrics: m,
		Prompt: func(authURL string) {
			fmt.Println("Open this URL in your browser to sign in:")
			fmt.Println("  " + authURL)
		},
	}
}

// Authenticator exposes the underlying authenticator, e.g. to register
// completion hooks before starting a login.
func (s *Session) Authenticator() *login.Authenticator { return s.auth }

// LoginInteractive runs the full browser-based flow: start the loopback
// listener, prompt the user with the authorization URL, wait for the
// provider redirect, then exchange the code and fetch user details. The
// whole flow is bounded by the configured login timeout.
func (s *Session) LoginInteractive(ctx context.Context) (login.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LoginTimeout)
	defer cancel()

	cb, err := callback.New(s.cfg.CallbackAddr, s.cfg.CallbackPath, s.logger)
	if err != nil {
		return nil, err
	}
	redirectURI := cb.RedirectURI()

	authURL, err := s.oauth.AuthorizationURL(redirectURI)
	if err != nil {
		return nil, err
	}
	s.Prompt(authURL.String())

	var code string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(cb.Serve)
	g.Go(func() error {
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = cb.Shutdown(shutdownCtx)
		}()

		received, err := cb.WaitForCode(gctx)
		if err != nil {
			return err
		}
		code = received
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	user, err := s.completeLogin(ctx, code, redirectURI)
	if err != nil {
		// Leave a clean slate so the caller can retry from scratch.
		s.auth.LogOut()
		return nil, err
	}
	return user, nil
}

// LoginSaved authenticates from the persisted refresh token without user
// interaction. Returns oauth.ErrNoSavedDetails when nothing is saved, so
// callers can fall back to LoginInteractive.
func (s *Session) LoginSaved(ctx context.Context) (login.User, error) {
	refresh, err := s.store.Read(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, oauth.ErrNoSavedDetails
	}
	if err != nil {
		return nil, fmt.Errorf("read saved credentials: %w", err)
	}

	// The saved refresh token is the credential this session starts from; it
	// plays the authorization code's role in the milestone progression.
	if err := s.auth.ReceiveAuthorizationCode(refresh); err != nil {
		return nil, err
	}
	s.metrics.IncrementMilestone(login.AuthorizationCodeReceived.String())

	token, err := s.oauth.Exchange(ctx, refresh, oauth.GrantRefreshToken, s.savedRedirectURI())
	if err != nil {
		s.auth.LogOut()
		return nil, err
	}

	user, err := s.finish(ctx, *token)
	if err != nil {
		s.auth.LogOut()
		return nil, err
	}
	return user, nil
}

// Logout resets the authenticator and removes the persisted refresh token.
func (s *Session) Logout(ctx context.Context) error {
	s.auth.LogOut()
	if err := s.store.Delete(ctx); err != nil {
		return fmt.Errorf("remove saved credentials: %w", err)
	}
	s.logger.InfoContext(ctx, "logged out")
	return nil
}

func (s *Session) completeLogin(ctx context.Context, code, redirectURI string) (login.User, error) {
	if err := s.auth.ReceiveAuthorizationCode(code); err != nil {
		return nil, err
	}
	s.metrics.IncrementMilestone(login.AuthorizationCodeReceived.String())

	token, err := s.oauth.Exchange(ctx, code, oauth.GrantAuthorizationCode, redirectURI)
	if err != nil {
		return nil, err
	}

	return s.finish(ctx, *token)
}

// finish takes the session from an exchanged token to the terminal state.
func (s *Session) finish(ctx context.Context, token login.AccessToken) (login.User, error) {
	if err := s.auth.ReceiveAccessToken(token); err != nil {
		return nil, err
	}
	s.metrics.IncrementMilestone(login.AccessTokenReceived.String())

	details, err := s.users.Fetch(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	if err := s.auth.ReceiveUserDetails(*details, login.NewPrimaryUser); err != nil {
		return nil, err
	}
	s.metrics.IncrementMilestone(login.Authenticated.String())

	s.logger.InfoContext(ctx, "login complete", "username", details.Username)
	return s.auth.User()
}

// savedRedirectURI is the redirect_uri form value sent with refresh-token
// exchanges, where no listener is running. Providers do not redirect on this
// grant; the value only has to match the registration.
func (s *Session) savedRedirectURI() string {
	return "http://" + s.cfg.CallbackAddr + s.cfg.CallbackPath
}
