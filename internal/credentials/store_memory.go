package credentials

import (
	"context"
	"fmt"
	"sync"

	"campusauth/pkg/platform/sentinel"
)

// InMemoryStore keeps secrets in memory for tests and throwaway sessions.
// Contents do not survive the process.
type InMemoryStore struct {
	mu      sync.RWMutex
	scope   Scope
	secrets map[string]string
}

// NewInMemoryStore constructs an empty in-memory store for the given scope.
func NewInMemoryStore(scope Scope) *InMemoryStore {
	return &InMemoryStore{scope: scope, secrets: make(map[string]string)}
}

func (s *InMemoryStore) Save(_ context.Context, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[s.scope.key()] = secret
	return nil
}

func (s *InMemoryStore) Read(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if secret, ok := s.secrets[s.scope.key()]; ok {
		return secret, nil
	}
	return "", fmt.Errorf("refresh token not stored: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, s.scope.key())
	return nil
}
