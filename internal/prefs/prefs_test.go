package prefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/existflow/tasksync/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Prefs {
	t.Helper()
	p, err := Open(filepath.Join(t.TempDir(), fileName))
	require.NoError(t, err)
	return p
}

func TestPrefs_EmptyByDefault(t *testing.T) {
	p := openTemp(t)

	assert.True(t, p.LastSyncTime().IsZero())
	assert.Empty(t, p.Token())
	assert.Nil(t, p.User())
}

func TestPrefs_LastSyncTimeRoundTrip(t *testing.T) {
	p := openTemp(t)
	at := time.Date(2024, 3, 1, 12, 30, 0, 123_000_000, time.UTC)

	require.NoError(t, p.SetLastSyncTime(at))

	reopened, err := Open(p.Path())
	require.NoError(t, err)
	assert.True(t, at.Equal(reopened.LastSyncTime()))

	require.NoError(t, reopened.SetLastSyncTime(time.Time{}))
	assert.True(t, reopened.LastSyncTime().IsZero())
}

func TestPrefs_FilePermissions(t *testing.T) {
	p := openTemp(t)
	require.NoError(t, p.SaveUser(model.User{ID: "u1", Email: "a@b.c", Token: "tok"}))

	info, err := os.Stat(p.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestPrefs_UserAndTokenObservation(t *testing.T) {
	p := openTemp(t)
	ch, cancel := p.ObserveToken()
	defer cancel()

	assert.Equal(t, "", <-ch)

	require.NoError(t, p.SaveUser(model.User{ID: "u1", Email: "a@b.c", Token: "tok"}))
	assert.Equal(t, "tok", <-ch)

	user := p.User()
	require.NotNil(t, user)
	assert.Equal(t, "a@b.c", user.Email)
	assert.True(t, user.IsLoggedIn())

	require.NoError(t, p.ClearUser())
	assert.Equal(t, "", <-ch)
	assert.Nil(t, p.User())
}

func TestPrefs_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), fileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := Open(path)
	assert.Error(t, err)
}

func TestPrefs_WatchPicksUpExternalLogin(t *testing.T) {
	p := openTemp(t)
	other, err := Open(p.Path())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx) }()

	// Keep rewriting until the watcher is registered and sees a write.
	assert.Eventually(t, func() bool {
		_ = other.SaveUser(model.User{ID: "u2", Email: "x@y.z", Token: "external"})
		return p.Token() == "external"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
