package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/cookie-accounts-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRejectsEmptyKeys(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	for _, key := range []string{"", "   "} {
		err := store.Put(context.Background(), key, "value")
		require.Error(t, err)
		assert.ErrorContains(t, err, "secret key is empty")
	}
}

func TestStorePutGetRoundTripAndPermissions(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "secrets")
	store := NewStore(root)
	store.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	require.NoError(t, store.Put(context.Background(), domain.RegistryTokenKey, "token-1"))
	require.NoError(t, store.Put(context.Background(), domain.RegistryTokenKey, "token-2"))

	got, err := store.Get(context.Background(), domain.RegistryTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "token-2", got)

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(secretFileMode), info.Mode().Perm())

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
	assert.Contains(t, string(data), "registry/token")
	assert.Contains(t, string(data), "2026-03-01T09:00:00Z")
}

func TestStoreKeepsOtherSecretsOnDelete(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, domain.RegistryTokenKey, "token-1"))
	require.NoError(t, store.Put(ctx, "registry/refresh", "refresh-1"))
	require.NoError(t, store.Delete(ctx, domain.RegistryTokenKey))

	_, err := store.Get(ctx, domain.RegistryTokenKey)
	require.ErrorIs(t, err, domain.ErrSecretNotFound)

	got, err := store.Get(ctx, "registry/refresh")
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", got)
}

func TestStoreRemovesFileWithLastSecret(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, domain.RegistryTokenKey, "token-1"))
	require.NoError(t, store.Delete(ctx, domain.RegistryTokenKey))

	_, err := os.Stat(store.Path())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStoreGetMissingSecretReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())

	_, err := store.Get(context.Background(), domain.RegistryTokenKey)
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreDeleteIsIdempotentWhenSecretMissing(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())

	require.NoError(t, store.Delete(context.Background(), domain.RegistryTokenKey))
	require.NoError(t, store.Delete(context.Background(), domain.RegistryTokenKey))
}

func TestStoreRejectsCorruptFile(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	require.NoError(t, os.WriteFile(store.Path(), []byte("secrets = ["), secretFileMode))

	_, err := store.Get(context.Background(), domain.RegistryTokenKey)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode credentials file")
}

func TestStoreRejectsNewerVersion(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	require.NoError(t, os.WriteFile(store.Path(), []byte("version = 9\n"), secretFileMode))

	err := store.Put(context.Background(), domain.RegistryTokenKey, "token-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version 9")
}
