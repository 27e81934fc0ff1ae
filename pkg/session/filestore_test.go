package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTempFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := newTempFileStore(t)

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoCredential)

	require.NoError(t, store.Save("tok-1"))
	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save("tok-1"))
	require.NoError(t, store.Close())

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	token, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
}

func TestFileStoreObservesExternalWrite(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	defer store.Close()

	var last atomic.Value
	cancel := store.Subscribe(func(token string) { last.Store(token) })
	defer cancel()

	// Another process writing the shared file.
	data, err := json.Marshal(storedCredential{AccessToken: "external-tok", SavedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, credentialFile), data, 0o600))

	require.Eventually(t, func() bool {
		v, _ := last.Load().(string)
		return v == "external-tok"
	}, 2*time.Second, 10*time.Millisecond, "external write should reach subscribers")

	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "external-tok", token)
}

func TestFileStoreObservesExternalRemoval(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Save("tok-1"))

	notified := make(chan string, 4)
	cancel := store.Subscribe(func(token string) { notified <- token })
	defer cancel()

	require.NoError(t, os.Remove(filepath.Join(dir, credentialFile)))

	require.Eventually(t, func() bool {
		select {
		case token := <-notified:
			return token == ""
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestFileStoreDegradedModeKeepsWorking(t *testing.T) {
	// A file path where a directory cannot be created.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	store, err := NewFileStore(filepath.Join(blocker, "nested"))
	require.NoError(t, err, "unavailable storage degrades, it does not fail")
	defer store.Close()

	require.NoError(t, store.Save("tok-1"))
	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoCredential)
}
