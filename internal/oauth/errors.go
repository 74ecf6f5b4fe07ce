package oauth

import (
	"errors"
	"fmt"
)

// Protocol errors returned by the exchange calls. Whether to retry or fall
// back to an interactive login is the caller's decision, never this
// package's.
var (
	// ErrInvalidAuthenticationCode is returned when the supplied code is
	// empty. No network call is made.
	ErrInvalidAuthenticationCode = errors.New("authorization code is empty or invalid")

	// ErrInvalidAccessToken is returned when the token endpoint's response
	// body cannot be decoded into an access token.
	ErrInvalidAccessToken = errors.New("access token response is invalid")

	// ErrNoSavedDetails is returned when no refresh token is persisted for
	// this scope.
	ErrNoSavedDetails = errors.New("no saved login details")
)

// HTTPStatusError indicates the token endpoint answered with a non-2xx
// status.
type HTTPStatusError struct {
	StatusCode int
}

func (e HTTPStatusError) Error() string {
	return fmt.Sprintf("token endpoint returned status %d", e.StatusCode)
}

// UnexpectedError wraps a transport-level failure (connection refused,
// timeout, malformed URL) that prevented the exchange from completing.
type UnexpectedError struct {
	Cause error
}

func (e UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected token exchange failure: %v", e.Cause)
}

func (e UnexpectedError) Unwrap() error { return e.Cause }
