// Package oauth performs the OAuth2 exchanges against the data service's
// token endpoint: authorization-code and refresh-token grants. A successful
// exchange always persists the returned refresh token before reporting
// success, which is what makes saved-credential login work across process
// restarts.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"campusauth/internal/credentials"
	"campusauth/internal/login"
	"campusauth/internal/platform/config"
	"campusauth/internal/platform/metrics"
	"campusauth/pkg/platform/sentinel"
)

// GrantType is which credential is being exchanged in a token request.
type GrantType string

const (
	// GrantAuthorizationCode exchanges a code from the provider redirect.
	GrantAuthorizationCode GrantType = "authorization_code"
	// GrantRefreshToken exchanges a persisted refresh token.
	GrantRefreshToken GrantType = "refresh_token"
)

// Config carries the endpoints and application keys for one provider.
type Config struct {
	Keys     config.Keys
	AuthURL  string
	TokenURL string
}

// Client performs token exchanges. It never retries; retry and fallback
// policy belongs to the caller.
type Client struct {
	cfg     Config
	store   credentials.Store
	http    *http.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// New constructs a Client. httpClient may be nil, in which case a client with
// a 30 second timeout is used; exchanges must never hang an interactive
// login indefinitely.
func New(cfg Config, store credentials.Store, httpClient *http.Client, logger *slog.Logger, m *metrics.Metrics) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:     cfg,
		store:   store,
		http:    httpClient,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("campusauth/oauth"),
	}
}

// AuthorizationURL composes the provider's authorization endpoint URL for
// the interactive login step. Pure; the actual authorization happens
// out-of-process in a browser.
func (c *Client) AuthorizationURL(redirectURI string) (*url.URL, error) {
	u, err := url.Parse(c.cfg.AuthURL)
	if err != nil {
		return nil, fmt.Errorf("parse auth URL: %w", err)
	}

	q := url.Values{}
	q.Set("client_id", c.cfg.Keys.ClientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", redirectURI)
	u.RawQuery = q.Encode()
	return u, nil
}

// Exchange trades code for an access token. code is either an authorization
// code or a refresh token; grant must match. On success the returned refresh
// token is persisted to the credential store before the token is handed
// back.
func (c *Client) Exchange(ctx context.Context, code string, grant GrantType, redirectURI string) (*login.AccessToken, error) {
	if code == "" {
		return nil, ErrInvalidAuthenticationCode
	}

	ctx, span := c.tracer.Start(ctx, "oauth.exchange",
		trace.WithAttributes(attribute.String("grant_type", string(grant))))
	defer span.End()

	start := time.Now()
	token, err := c.exchange(ctx, code, grant, redirectURI)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exchange failed")
		c.metrics.ObserveExchange(string(grant), outcomeLabel(err), time.Since(start))
		return nil, err
	}
	c.metrics.ObserveExchange(string(grant), "success", time.Since(start))

	if token.RefreshToken != "" {
		if err := c.store.Save(ctx, token.RefreshToken); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("persist refresh token: %w", err)
		}
	}

	c.logger.DebugContext(ctx, "token exchange succeeded",
		"grant_type", string(grant),
		"expires_in", token.ExpiresIn,
		"scope", token.Scope,
	)
	return token, nil
}

// AuthenticateFromSavedCredentials performs a refresh-token exchange using
// the persisted refresh token. ErrNoSavedDetails is returned when nothing is
// stored; the caller typically falls back to an interactive login.
func (c *Client) AuthenticateFromSavedCredentials(ctx context.Context, redirectURI string) (*login.AccessToken, error) {
	refresh, err := c.store.Read(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, ErrNoSavedDetails
	}
	if err != nil {
		return nil, fmt.Errorf("read saved credentials: %w", err)
	}

	return c.Exchange(ctx, refresh, GrantRefreshToken, redirectURI)
}

func (c *Client) exchange(ctx context.Context, code string, grant GrantType, redirectURI string) (*login.AccessToken, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.Keys.ClientID)
	form.Set("client_secret", c.cfg.Keys.Secret)
	form.Set("grant_type", string(grant))
	form.Set("redirect_uri", redirectURI)
	form.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, UnexpectedError{Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, UnexpectedError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, HTTPStatusError{StatusCode: resp.StatusCode}
	}

	var token login.AccessToken
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, ErrInvalidAccessToken
	}
	if token.AccessToken == "" {
		return nil, ErrInvalidAccessToken
	}
	return &token, nil
}

func outcomeLabel(err error) string {
	var statusErr HTTPStatusError
	switch {
	case errors.As(err, &statusErr):
		return "http_error"
	case errors.Is(err, ErrInvalidAccessToken):
		return "decode_error"
	default:
		return "transport_error"
	}
}
