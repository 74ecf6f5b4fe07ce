//go:build integration

package credentials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusauth/pkg/platform/sentinel"
	"campusauth/pkg/testutil/containers"
)

func TestRedisStoreIntegration(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)

	store := NewRedisStore(Scope{ServiceName: "CampusAuth"}, rc.Client)

	t.Run("read before save fails loudly", func(t *testing.T) {
		_, err := store.Read(ctx)
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("round trip and rotation", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "quux"))

		secret, err := store.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, "quux", secret)

		require.NoError(t, store.Save(ctx, "rotated"))

		secret, err = store.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, "rotated", secret)
	})

	t.Run("scope isolation", func(t *testing.T) {
		other := NewRedisStore(Scope{ServiceName: "CampusAuth", AccessGroup: "lab-machines"}, rc.Client)

		_, err := other.Read(ctx)
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx))

		_, err := store.Read(ctx)
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
