package boltstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusforum/internal/session"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	store, err := Open(Options{Path: filepath.Join(t.TempDir(), "sessions.db")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store.SessionStore()
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save and get round-trip", func(t *testing.T) {
		store := newTestStore(t)
		sess := session.Session{
			ID:        "token-1",
			UserID:    42,
			ExpiresAt: time.Now().Add(time.Hour).Truncate(time.Second),
			CreatedAt: time.Now().Truncate(time.Second),
		}
		require.NoError(t, store.SaveSession(ctx, sess))

		got, err := store.GetSession(ctx, "token-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, sess.ID, got.ID)
		assert.Equal(t, sess.UserID, got.UserID)
		assert.True(t, got.ExpiresAt.Equal(sess.ExpiresAt))
	})

	t.Run("missing session returns nil without error", func(t *testing.T) {
		store := newTestStore(t)
		got, err := store.GetSession(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete removes the record", func(t *testing.T) {
		store := newTestStore(t)
		sess := session.Session{ID: "token-1", UserID: 1, ExpiresAt: time.Now().Add(time.Hour)}
		require.NoError(t, store.SaveSession(ctx, sess))
		require.NoError(t, store.DeleteSession(ctx, "token-1"))

		got, err := store.GetSession(ctx, "token-1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("deleting a missing session is not an error", func(t *testing.T) {
		store := newTestStore(t)
		assert.NoError(t, store.DeleteSession(ctx, "nope"))
	})

	t.Run("sessions survive reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sessions.db")
		store, err := Open(Options{Path: path})
		require.NoError(t, err)

		sess := session.Session{ID: "persist", UserID: 7, ExpiresAt: time.Now().Add(time.Hour)}
		require.NoError(t, store.SessionStore().SaveSession(ctx, sess))
		require.NoError(t, store.Close())

		reopened, err := Open(Options{Path: path})
		require.NoError(t, err)
		defer reopened.Close()

		got, err := reopened.SessionStore().GetSession(ctx, "persist")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(7), got.UserID)
	})
}
