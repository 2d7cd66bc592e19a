package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusforum/internal/database"
	"campusforum/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Options{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedUser(t *testing.T, store *Store, username string) *models.User {
	t.Helper()
	u, err := store.CreateUser(context.Background(), &models.CreateUserRequest{
		Email:        username + "@campus.edu",
		Username:     username,
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return u
}

func TestUserStore(t *testing.T) {
	ctx := context.Background()

	t.Run("new users start at 100", func(t *testing.T) {
		store := newTestStore(t)
		u := seedUser(t, store, "alice")
		assert.Equal(t, 100, u.CreditScore)
		assert.Nil(t, u.BanUntil)
		assert.False(t, u.IsAdmin)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		store := newTestStore(t)
		seedUser(t, store, "alice")
		_, err := store.CreateUser(ctx, &models.CreateUserRequest{
			Email:        "alice@campus.edu",
			Username:     "alice2",
			PasswordHash: "hash",
		})
		assert.ErrorIs(t, err, database.ErrConflict)
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		store := newTestStore(t)
		seedUser(t, store, "alice")
		_, err := store.CreateUser(ctx, &models.CreateUserRequest{
			Email:        "other@campus.edu",
			Username:     "alice",
			PasswordHash: "hash",
		})
		assert.ErrorIs(t, err, database.ErrConflict)
	})

	t.Run("lookup by email and username", func(t *testing.T) {
		store := newTestStore(t)
		u := seedUser(t, store, "alice")

		byEmail, err := store.GetUserByEmail(ctx, "alice@campus.edu")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)

		byName, err := store.GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byName.ID)

		_, err = store.GetUserByEmail(ctx, "nobody@campus.edu")
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("ban round-trips through the ban column", func(t *testing.T) {
		store := newTestStore(t)
		u := seedUser(t, store, "alice")
		until := time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC)

		require.NoError(t, store.UpdateUserCredit(ctx, u.ID, 70, &until))
		got, err := store.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 70, got.CreditScore)
		require.NotNil(t, got.BanUntil)
		assert.True(t, got.BanUntil.Equal(until))

		require.NoError(t, store.UpdateUserCredit(ctx, u.ID, 80, nil))
		got, err = store.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Nil(t, got.BanUntil)
	})

	t.Run("expired ban listing uses a strict cutoff", func(t *testing.T) {
		store := newTestStore(t)
		now := time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC)

		expired := seedUser(t, store, "expired")
		past := now.Add(-time.Minute)
		require.NoError(t, store.UpdateUserCredit(ctx, expired.ID, 60, &past))

		active := seedUser(t, store, "active")
		future := now.Add(time.Hour)
		require.NoError(t, store.UpdateUserCredit(ctx, active.ID, 60, &future))

		exact := seedUser(t, store, "exact")
		require.NoError(t, store.UpdateUserCredit(ctx, exact.ID, 60, &now))

		users, err := store.ListExpiredBans(ctx, now)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, expired.ID, users[0].ID)
	})

	t.Run("reset candidates exclude banned and full-score users", func(t *testing.T) {
		store := newTestStore(t)
		low := seedUser(t, store, "low")
		require.NoError(t, store.UpdateUserCredit(ctx, low.ID, 85, nil))

		seedUser(t, store, "full")

		banned := seedUser(t, store, "banned")
		until := time.Now().Add(time.Hour)
		require.NoError(t, store.UpdateUserCredit(ctx, banned.ID, 60, &until))

		users, err := store.ListResetCandidates(ctx)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, low.ID, users[0].ID)
	})

	t.Run("counts", func(t *testing.T) {
		store := newTestStore(t)
		seedUser(t, store, "a")
		b := seedUser(t, store, "b")
		until := time.Now().Add(time.Hour)
		require.NoError(t, store.UpdateUserCredit(ctx, b.ID, 60, &until))

		n, err := store.CountUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = store.CountActiveBans(ctx, time.Now())
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = store.CountLowScoreUsers(ctx, 80)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestContentStore(t *testing.T) {
	ctx := context.Background()

	seedPost := func(t *testing.T, store *Store) (*models.User, *models.Category, *models.Post) {
		t.Helper()
		u := seedUser(t, store, "author")
		cat, err := store.CreateCategory(ctx, "general", "talk")
		require.NoError(t, err)
		post, err := store.CreatePost(ctx, &models.CreatePostRequest{
			CategoryID: cat.ID,
			AuthorID:   u.ID,
			Title:      "hello world",
			Content:    "body text",
		})
		require.NoError(t, err)
		return u, cat, post
	}

	t.Run("category names are unique", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.CreateCategory(ctx, "general", "")
		require.NoError(t, err)
		_, err = store.CreateCategory(ctx, "general", "")
		assert.ErrorIs(t, err, database.ErrConflict)
	})

	t.Run("deleting a category cascades", func(t *testing.T) {
		store := newTestStore(t)
		u, cat, post := seedPost(t, store)
		comment, err := store.CreateComment(ctx, &models.CreateCommentRequest{
			PostID:   post.ID,
			AuthorID: u.ID,
			Content:  "nice",
		})
		require.NoError(t, err)

		require.NoError(t, store.DeleteCategory(ctx, cat.ID))

		_, err = store.GetPost(ctx, post.ID)
		assert.ErrorIs(t, err, database.ErrNotFound)
		_, err = store.GetComment(ctx, comment.ID)
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("update bumps edit count", func(t *testing.T) {
		store := newTestStore(t)
		_, _, post := seedPost(t, store)
		assert.Equal(t, 0, post.EditCount)

		require.NoError(t, store.UpdatePost(ctx, post.ID, "new title", "new body"))
		got, err := store.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.EditCount)
		assert.Equal(t, "new title", got.Title)
	})

	t.Run("substring search matches title and content", func(t *testing.T) {
		store := newTestStore(t)
		_, _, _ = seedPost(t, store) // "hello world" / "body text"

		posts, err := store.SearchPosts(ctx, "world")
		require.NoError(t, err)
		assert.Len(t, posts, 1)

		posts, err = store.SearchPosts(ctx, "body")
		require.NoError(t, err)
		assert.Len(t, posts, 1)

		posts, err = store.SearchPosts(ctx, "nomatch")
		require.NoError(t, err)
		assert.Empty(t, posts)
	})

	t.Run("violation flags are monotonic", func(t *testing.T) {
		store := newTestStore(t)
		_, _, post := seedPost(t, store)

		require.NoError(t, store.SetPostViolation(ctx, post.ID))
		require.NoError(t, store.SetPostViolation(ctx, post.ID))
		got, err := store.GetPost(ctx, post.ID)
		require.NoError(t, err)
		assert.True(t, got.IsViolation)
	})
}

func TestViolationStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	author := seedUser(t, store, "author")
	mod := seedUser(t, store, "mod")
	cat, err := store.CreateCategory(ctx, "general", "")
	require.NoError(t, err)
	post, err := store.CreatePost(ctx, &models.CreatePostRequest{
		CategoryID: cat.ID, AuthorID: author.ID, Title: "t", Content: "c",
	})
	require.NoError(t, err)

	v := &models.Violation{
		ID:          uuid.NewString(),
		ContentType: "post",
		ContentID:   post.ID,
		ModeratorID: mod.ID,
		Reason:      "spam",
		Points:      5,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, store.CreateViolation(ctx, v))

	exists, err := store.HasViolation(ctx, "post", post.ID, mod.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.HasViolation(ctx, "comment", post.ID, mod.ID)
	require.NoError(t, err)
	assert.False(t, exists, "uniqueness is per content type")

	dup := *v
	dup.ID = uuid.NewString()
	err = store.CreateViolation(ctx, &dup)
	assert.ErrorIs(t, err, database.ErrConflict)

	violations, err := store.ListViolationsForUser(ctx, author.ID)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "spam", violations[0].Reason)
}

func TestInboxStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")

	msg := &models.InboxMessage{
		ID:        uuid.NewString(),
		UserID:    alice.ID,
		Type:      models.MessageTypeSystem,
		Body:      "welcome",
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.CreateInboxMessage(ctx, msg))

	messages, err := store.ListInbox(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.False(t, messages[0].IsRead)

	n, err := store.CountUnread(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Another user cannot mark someone else's message.
	err = store.MarkInboxRead(ctx, msg.ID, bob.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	require.NoError(t, store.MarkInboxRead(ctx, msg.ID, alice.ID))
	n, err = store.CountUnread(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMetaStore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	v, err := store.GetMeta(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, store.SetMeta(ctx, "k", "one"))
	require.NoError(t, store.SetMeta(ctx, "k", "two"))
	v, err = store.GetMeta(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on nil", func(t *testing.T) {
		store := newTestStore(t)
		u := seedUser(t, store, "alice")

		err := store.WithTx(ctx, func(tx database.Tx) error {
			return tx.UpdateUserCredit(ctx, u.ID, 50, nil)
		})
		require.NoError(t, err)

		got, err := store.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 50, got.CreditScore)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		store := newTestStore(t)
		u := seedUser(t, store, "alice")
		boom := errors.New("boom")

		err := store.WithTx(ctx, func(tx database.Tx) error {
			if err := tx.UpdateUserCredit(ctx, u.ID, 50, nil); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := store.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, 100, got.CreditScore, "write must be rolled back")
	})
}

func TestCorruptTimestamps(t *testing.T) {
	ctx := context.Background()

	t.Run("lookup surfaces the parse error", func(t *testing.T) {
		store := newTestStore(t)
		u := seedUser(t, store, "alice")

		_, err := store.db.Exec(`UPDATE users SET created_at = 'not-a-time' WHERE id = ?`, u.ID)
		require.NoError(t, err)

		_, err = store.GetUser(ctx, u.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse timestamp")
	})

	t.Run("list surfaces the error instead of dropping the row", func(t *testing.T) {
		store := newTestStore(t)
		u := seedUser(t, store, "alice")

		// Sorts before any real timestamp so the expiry predicate
		// selects it, but fails to parse.
		_, err := store.db.Exec(`UPDATE users SET ban_until = '2020-13-45T00:00:00.000000000Z' WHERE id = ?`, u.ID)
		require.NoError(t, err)

		_, err = store.ListExpiredBans(ctx, time.Now())
		require.Error(t, err)
	})
}
