// Package credentials persists the one secret that must survive process
// restarts: the refresh token. It is the replacement for the device keychain,
// with the same scoping contract (a fixed service name plus an optional
// access group).
package credentials

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store

import "context"

// account is the fixed key the refresh token is stored under within a scope.
const account = "refreshToken"

// Scope identifies whose secret a store holds. Two stores with the same
// backend but different scopes never see each other's secrets.
type Scope struct {
	// ServiceName scopes secrets to this application.
	ServiceName string

	// AccessGroup optionally widens the scope to a group of cooperating
	// installs. Empty means this install only.
	AccessGroup string
}

// key returns the storage key for this scope.
func (s Scope) key() string {
	if s.AccessGroup != "" {
		return s.AccessGroup + "/" + s.ServiceName + "/" + account
	}
	return s.ServiceName + "/" + account
}

// Store is durable storage for the refresh token.
//
// Error Contract:
// - Read returns an error wrapping sentinel.ErrNotFound when no secret is
//   stored; it never silently returns an empty string.
// - Save and Delete return nil on success and wrapped errors for
//   infrastructure failures.
// - Concurrent writes are last-write-wins; no further ordering is promised.
type Store interface {
	Save(ctx context.Context, secret string) error
	Read(ctx context.Context) (string, error)
	Delete(ctx context.Context) error
}
