package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"campusauth/pkg/platform/sentinel"
)

// FileStore persists secrets in a mode-0600 JSON file, keyed by scope. It is
// the default backend for the CLI: the closest analogue to the device
// keychain that works everywhere.
type FileStore struct {
	mu    sync.Mutex
	scope Scope
	path  string
}

// NewFileStore constructs a file-backed store. The file and its parent
// directory are created on first Save.
func NewFileStore(scope Scope, path string) *FileStore {
	return &FileStore{scope: scope, path: path}
}

// DefaultPath returns the conventional credentials file location under the
// user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "campusauth", "credentials.json"), nil
}

func (s *FileStore) Save(_ context.Context, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	secrets, err := s.load()
	if err != nil {
		return err
	}
	secrets[s.scope.key()] = secret
	return s.write(secrets)
}

func (s *FileStore) Read(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	secrets, err := s.load()
	if err != nil {
		return "", err
	}
	if secret, ok := secrets[s.scope.key()]; ok {
		return secret, nil
	}
	return "", fmt.Errorf("refresh token not stored: %w", sentinel.ErrNotFound)
}

func (s *FileStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	secrets, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := secrets[s.scope.key()]; !ok {
		return nil
	}
	delete(secrets, s.scope.key())
	return s.write(secrets)
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	secrets := make(map[string]string)
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("decode credentials file: %w", err)
	}
	return secrets, nil
}

// write replaces the file via rename so a crash mid-write cannot leave a
// truncated file behind.
func (s *FileStore) write(secrets map[string]string) error {
	data, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}
	return nil
}
