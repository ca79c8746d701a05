package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveStreamHashesContent(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	content := []byte("quarterly invoice")
	stored, err := store.SaveStream("documents/inv.txt", bytes.NewReader(content))
	require.NoError(t, err)

	sum := sha256.Sum256(content)
	assert.Equal(t, "documents/inv.txt", stored.Path)
	assert.Equal(t, int64(len(content)), stored.Size)
	assert.Equal(t, hex.EncodeToString(sum[:]), stored.Hash)
	assert.True(t, store.Exists("documents/inv.txt"))

	hash, err := store.Hash("documents/inv.txt")
	require.NoError(t, err)
	assert.Equal(t, stored.Hash, hash)
}

func TestLocalStorageCopyAndDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("a.txt", []byte("alpha"))
	require.NoError(t, err)
	copied, err := store.Copy("a.txt", "b/a-copy.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), copied.Size)

	data, err := store.ReadAll("b/a-copy.txt")
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))

	require.NoError(t, store.Delete("a.txt"))
	require.NoError(t, store.Delete("a.txt"))
	assert.False(t, store.Exists("a.txt"))
}

func TestLocalStorageConfinesPaths(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("../../escape.txt", []byte("x"))
	require.NoError(t, err)
	assert.True(t, store.Exists("escape.txt"))
	assert.FileExists(t, store.Path("escape.txt"))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("exports/old.csv", []byte("old"))
	require.NoError(t, err)
	_, err = store.Save("exports/new.csv", []byte("new"))
	require.NoError(t, err)
	_, err = store.Save("documents/keep.pdf", []byte("doc"))
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path("exports/old.csv"), past, past))

	deleted, err := store.CleanupOlderThan("exports", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"exports/old.csv"}, deleted)
	assert.True(t, store.Exists("exports/new.csv"))
	assert.True(t, store.Exists("documents/keep.pdf"))
}
