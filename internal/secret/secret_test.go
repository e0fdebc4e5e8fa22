package secret

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())
	require.NoError(t, store.Set("session-1", "wa-secretkey"))

	got, err := store.Get("session-1")
	require.NoError(t, err)
	require.Equal(t, "wa-secretkey", got)
}

func TestFileStoreNeverWritesPlaintext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFileStore(dir)
	require.NoError(t, store.Set("session-1", "wa-secretkey"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		require.NoError(t, err)
		require.NotContains(t, string(data), "wa-secretkey")
	}
}

func TestFileStorePermissions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFileStore(dir)
	require.NoError(t, store.Set("session-1", "wa-secretkey"))

	for _, name := range []string{"master.key", store.secretPath("session-1")} {
		info, err := os.Stat(filepath.Join(dir, filepath.Base(name)))
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestFileStoreDelete(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())
	require.NoError(t, store.Set("session-1", "wa-secretkey"))
	require.NoError(t, store.Delete("session-1"))

	_, err := store.Get("session-1")
	require.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent id is not an error.
	require.NoError(t, store.Delete("session-1"))
}

func TestFileStoreMissingID(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())
	_, err := store.Get("never-stored")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreDetectsTampering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewFileStore(dir)
	require.NoError(t, store.Set("session-1", "wa-secretkey"))

	path := store.secretPath("session-1")
	sealed, err := os.ReadFile(path)
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, sealed, 0o600))

	_, err = store.Get("session-1")
	require.Error(t, err)
}

func TestFileStoreBindsSecretToID(t *testing.T) {
	t.Parallel()

	// A sealed secret copied to another id must not open: the id is bound
	// into the ciphertext as additional data.
	dir := t.TempDir()
	store := NewFileStore(dir)
	require.NoError(t, store.Set("original", "wa-secretkey"))

	sealed, err := os.ReadFile(store.secretPath("original"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.secretPath("copied"), sealed, 0o600))

	_, err = store.Get("copied")
	require.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	require.NoError(t, store.Set("a", "one"))

	got, err := store.Get("a")
	require.NoError(t, err)
	require.Equal(t, "one", got)

	require.NoError(t, store.Delete("a"))
	_, err = store.Get("a")
	require.ErrorIs(t, err, ErrNotFound)
}
