package callback

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) *Server {
	t.Helper()

	s, err := New("127.0.0.1:0", "/callback", nil)
	require.NoError(t, err)

	go func() {
		if err := s.Serve(); err != nil {
			t.Errorf("serve: %v", err)
		}
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func TestRedirectDeliversCode(t *testing.T) {
	s := startServer(t)

	resp, err := http.Get(s.RedirectURI() + "?code=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Signed in")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	code, err := s.WaitForCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", code)
}

func TestOnlyFirstRedirectCounts(t *testing.T) {
	s := startServer(t)

	for _, code := range []string{"first", "second"} {
		resp, err := http.Get(s.RedirectURI() + "?code=" + code)
		require.NoError(t, err)
		resp.Body.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	code, err := s.WaitForCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", code)
}

func TestProviderDenial(t *testing.T) {
	s := startServer(t)

	resp, err := http.Get(s.RedirectURI() + "?error=access_denied")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = s.WaitForCode(ctx)
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestMissingCodeIsRejectedWithoutDelivering(t *testing.T) {
	s := startServer(t)

	resp, err := http.Get(s.RedirectURI())
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = s.WaitForCode(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitForCodeHonorsContext(t *testing.T) {
	s := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.WaitForCode(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
