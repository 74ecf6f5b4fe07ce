package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"campusauth/internal/credentials"
	"campusauth/internal/credentials/mocks"
	"campusauth/internal/platform/config"
)

var testKeys = config.Keys{ClientID: "client-1", Secret: "s3cret"}

func TestAuthorizationURL(t *testing.T) {
	c := New(Config{
		Keys:    testKeys,
		AuthURL: "https://provider.example/oauth/v2/auth",
	}, credentials.NewInMemoryStore(credentials.Scope{ServiceName: "test"}), nil, nil, nil)

	u, err := c.AuthorizationURL("http://127.0.0.1:8765/callback")
	require.NoError(t, err)

	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "provider.example", u.Host)
	assert.Equal(t, "/oauth/v2/auth", u.Path)

	q := u.Query()
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "http://127.0.0.1:8765/callback", q.Get("redirect_uri"))
	assert.Len(t, q, 3, "no extra query parameters")
}

func TestExchange(t *testing.T) {
	const redirectURI = "http://127.0.0.1:8765/callback"

	t.Run("round trip persists refresh token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
			assert.Equal(t, "s3cret", r.PostForm.Get("client_secret"))
			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			assert.Equal(t, redirectURI, r.PostForm.Get("redirect_uri"))
			assert.Equal(t, "abc", r.PostForm.Get("code"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"bar","expires_in":42,"token_type":"baz","scope":"qux","refresh_token":"quux"}`))
		}))
		defer srv.Close()

		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		store.EXPECT().Save(gomock.Any(), "quux").Return(nil).Times(1)

		c := New(Config{Keys: testKeys, TokenURL: srv.URL}, store, nil, nil, nil)

		token, err := c.Exchange(context.Background(), "abc", GrantAuthorizationCode, redirectURI)
		require.NoError(t, err)
		assert.Equal(t, "bar", token.AccessToken)
		assert.Equal(t, 42, token.ExpiresIn)
		assert.Equal(t, "baz", token.TokenType)
		assert.Equal(t, "qux", token.Scope)
		assert.Equal(t, "quux", token.RefreshToken)
	})

	t.Run("empty code makes no network call", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("the token endpoint must not be called for an empty code")
		}))
		defer srv.Close()

		c := New(Config{Keys: testKeys, TokenURL: srv.URL}, newMemStore(), nil, nil, nil)

		_, err := c.Exchange(context.Background(), "", GrantAuthorizationCode, redirectURI)
		require.ErrorIs(t, err, ErrInvalidAuthenticationCode)
	})

	t.Run("non-2xx status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad code", http.StatusBadRequest)
		}))
		defer srv.Close()

		c := New(Config{Keys: testKeys, TokenURL: srv.URL}, newMemStore(), nil, nil, nil)

		_, err := c.Exchange(context.Background(), "abc", GrantAuthorizationCode, redirectURI)

		var status HTTPStatusError
		require.ErrorAs(t, err, &status)
		assert.Equal(t, http.StatusBadRequest, status.StatusCode)
	})

	t.Run("undecodable body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>not json</html>"))
		}))
		defer srv.Close()

		c := New(Config{Keys: testKeys, TokenURL: srv.URL}, newMemStore(), nil, nil, nil)

		_, err := c.Exchange(context.Background(), "abc", GrantAuthorizationCode, redirectURI)
		require.ErrorIs(t, err, ErrInvalidAccessToken)
	})

	t.Run("missing access_token field", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"scope":"qux"}`))
		}))
		defer srv.Close()

		c := New(Config{Keys: testKeys, TokenURL: srv.URL}, newMemStore(), nil, nil, nil)

		_, err := c.Exchange(context.Background(), "abc", GrantAuthorizationCode, redirectURI)
		require.ErrorIs(t, err, ErrInvalidAccessToken)
	})

	t.Run("transport failure", func(t *testing.T) {
		// A server that is already closed refuses connections.
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		c := New(Config{Keys: testKeys, TokenURL: srv.URL}, newMemStore(), nil, nil, nil)

		_, err := c.Exchange(context.Background(), "abc", GrantAuthorizationCode, redirectURI)

		var unexpected UnexpectedError
		require.ErrorAs(t, err, &unexpected)
		assert.Error(t, unexpected.Cause)
	})
}

func TestAuthenticateFromSavedCredentials(t *testing.T) {
	const redirectURI = "http://127.0.0.1:8765/callback"

	t.Run("nothing saved", func(t *testing.T) {
		c := New(Config{Keys: testKeys, TokenURL: "http://127.0.0.1:1/token"}, newMemStore(), nil, nil, nil)

		_, err := c.AuthenticateFromSavedCredentials(context.Background(), redirectURI)
		require.ErrorIs(t, err, ErrNoSavedDetails)
	})

	t.Run("saved token is exchanged and rotated", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
			assert.Equal(t, "quux", r.PostForm.Get("code"))

			_, _ = w.Write([]byte(`{"access_token":"bar2","expires_in":42,"token_type":"baz","scope":"qux","refresh_token":"quux2"}`))
		}))
		defer srv.Close()

		store := newMemStore()
		require.NoError(t, store.Save(context.Background(), "quux"))

		c := New(Config{Keys: testKeys, TokenURL: srv.URL}, store, nil, nil, nil)

		token, err := c.AuthenticateFromSavedCredentials(context.Background(), redirectURI)
		require.NoError(t, err)
		assert.Equal(t, "bar2", token.AccessToken)

		// The rotated refresh token was persisted.
		saved, err := store.Read(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "quux2", saved)
	})
}

func newMemStore() *credentials.InMemoryStore {
	return credentials.NewInMemoryStore(credentials.Scope{ServiceName: "test"})
}
