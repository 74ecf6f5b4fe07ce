package credentials

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusauth/pkg/platform/sentinel"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")
	scope := Scope{ServiceName: "CampusAuth"}

	store := NewFileStore(scope, path)

	_, err := store.Read(ctx)
	require.ErrorIs(t, err, sentinel.ErrNotFound, "missing file reads as not found")

	require.NoError(t, store.Save(ctx, "quux"))

	secret, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "quux", secret)

	// A fresh instance on the same path sees the secret: this is the
	// cross-launch durability the refresh token depends on.
	reopened := NewFileStore(scope, path)
	secret, err = reopened.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "quux", secret)
}

func TestFileStorePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	store := NewFileStore(Scope{ServiceName: "CampusAuth"}, path)

	require.NoError(t, store.Save(ctx, "quux"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreDelete(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")
	store := NewFileStore(Scope{ServiceName: "CampusAuth"}, path)

	// Deleting an absent secret is not an error.
	require.NoError(t, store.Delete(ctx))

	require.NoError(t, store.Save(ctx, "quux"))
	require.NoError(t, store.Delete(ctx))

	_, err := store.Read(ctx)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestFileStoreScopesShareOneFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")

	a := NewFileStore(Scope{ServiceName: "CampusAuth"}, path)
	b := NewFileStore(Scope{ServiceName: "CampusAuth", AccessGroup: "lab-machines"}, path)

	require.NoError(t, a.Save(ctx, "mine"))
	require.NoError(t, b.Save(ctx, "ours"))

	secret, err := a.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mine", secret)

	secret, err = b.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ours", secret)
}

func TestFileStoreCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	store := NewFileStore(Scope{ServiceName: "CampusAuth"}, path)

	_, err := store.Read(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, sentinel.ErrNotFound, "corruption is not the same as absence")
}
