// Package idptest runs an in-process identity provider for tests: an
// authorization endpoint that immediately redirects back with a code, a
// token endpoint that mints signed JWT access tokens, and a user endpoint
// guarded by them. It lets the full login flow run without a real provider
// or a browser.
package idptest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"campusauth/internal/login"
	"campusauth/internal/platform/config"
)

// Provider is a fake identity provider backed by httptest.
type Provider struct {
	keys       config.Keys
	signingKey []byte
	details    login.UserDetails
	srv        *httptest.Server

	mu           sync.Mutex
	pendingCodes map[string]bool
	refreshToken string
	tokenTTL     time.Duration
}

// New starts a Provider that authenticates exactly one user with the given
// details. Close it when done.
func New(keys config.Keys, details login.UserDetails) *Provider {
	p := &Provider{
		keys:         keys,
		signingKey:   []byte("idptest-signing-key"),
		details:      details,
		pendingCodes: make(map[string]bool),
		tokenTTL:     time.Hour,
	}

	r := chi.NewRouter()
	r.Get("/oauth/v2/auth", p.handleAuthorize)
	r.Post("/oauth/v2/token", p.handleToken)
	r.Get("/api/user", p.handleUser)
	p.srv = httptest.NewServer(r)
	return p
}

// Close shuts the provider down.
func (p *Provider) Close() { p.srv.Close() }

// AuthURL returns the authorization endpoint.
func (p *Provider) AuthURL() string { return p.srv.URL + "/oauth/v2/auth" }

// TokenURL returns the token endpoint.
func (p *Provider) TokenURL() string { return p.srv.URL + "/oauth/v2/token" }

// UserURL returns the user details endpoint.
func (p *Provider) UserURL() string { return p.srv.URL + "/api/user" }

// IssueCode registers and returns a fresh single-use authorization code, as
// if the user had just approved an interactive login.
func (p *Provider) IssueCode() string {
	code := uuid.NewString()
	p.mu.Lock()
	p.pendingCodes[code] = true
	p.mu.Unlock()
	return code
}

// RefreshToken returns the currently valid refresh token, empty until the
// first exchange.
func (p *Provider) RefreshToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshToken
}

// SeedRefreshToken makes token the currently valid refresh token, as if a
// previous process had logged in and persisted it.
func (p *Provider) SeedRefreshToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshToken = token
}

// handleAuthorize plays the interactive step: instead of rendering a login
// page it immediately redirects back with a fresh code.
func (p *Provider) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("client_id") != p.keys.ClientID || q.Get("response_type") != "code" {
		http.Error(w, "invalid authorization request", http.StatusBadRequest)
		return
	}
	redirectURI := q.Get("redirect_uri")
	if redirectURI == "" {
		http.Error(w, "missing redirect_uri", http.StatusBadRequest)
		return
	}

	sep := "?"
	if strings.Contains(redirectURI, "?") {
		sep = "&"
	}
	http.Redirect(w, r, redirectURI+sep+"code="+p.IssueCode(), http.StatusFound)
}

func (p *Provider) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("client_id") != p.keys.ClientID || r.PostForm.Get("client_secret") != p.keys.Secret {
		http.Error(w, "invalid client", http.StatusUnauthorized)
		return
	}

	code := r.PostForm.Get("code")
	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		if !p.consumeCode(code) {
			http.Error(w, "invalid code", http.StatusBadRequest)
			return
		}
	case "refresh_token":
		if !p.consumeRefreshToken(code) {
			http.Error(w, "invalid refresh token", http.StatusBadRequest)
			return
		}
	default:
		http.Error(w, "unsupported grant type", http.StatusBadRequest)
		return
	}

	accessToken, err := p.mintAccessToken()
	if err != nil {
		http.Error(w, "signing failed", http.StatusInternalServerError)
		return
	}

	refresh := "refresh-" + uuid.NewString()
	p.mu.Lock()
	p.refreshToken = refresh
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  accessToken,
		"expires_in":    int(p.tokenTTL.Seconds()),
		"token_type":    "Bearer",
		"scope":         "user",
		"refresh_token": refresh,
	})
}

func (p *Provider) handleUser(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || !p.validAccessToken(token) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"Id":       p.details.ID,
		"Username": p.details.Username,
		"Email":    p.details.Email,
		"Forename": p.details.Forename,
		"Surname":  p.details.Surname,
		"Name":     p.details.Name,
	})
}

func (p *Provider) consumeCode(code string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.pendingCodes[code] {
		return false
	}
	delete(p.pendingCodes, code)
	return true
}

func (p *Provider) consumeRefreshToken(token string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return token != "" && token == p.refreshToken
}

func (p *Provider) mintAccessToken() (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   p.details.Username,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(p.tokenTTL)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Issuer:    p.srv.URL,
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.signingKey)
}

func (p *Provider) validAccessToken(token string) bool {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.signingKey, nil
	})
	return err == nil && parsed.Valid
}
