package moderation

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusforum/internal/credit"
	"campusforum/internal/database"
	"campusforum/internal/database/sqlitestore"
	"campusforum/internal/models"
)

type fixture struct {
	store    database.Store
	engine   *credit.Engine
	recorder *Recorder
	now      time.Time

	author    *models.User
	moderator *models.User
	second    *models.User
	post      *models.Post
	comment   *models.Comment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := sqlitestore.Open(sqlitestore.Options{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	now := time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)
	engine := credit.NewEngine(store, credit.WithClock(func() time.Time { return now }))

	f := &fixture{
		store:    store,
		engine:   engine,
		recorder: NewRecorder(store, engine),
		now:      now,
	}

	mkUser := func(name string, admin bool) *models.User {
		u, err := store.CreateUser(ctx, &models.CreateUserRequest{
			Email:        name + "@campus.edu",
			Username:     name,
			PasswordHash: "x",
			IsAdmin:      admin,
		})
		require.NoError(t, err)
		return u
	}
	f.author = mkUser("author", false)
	f.moderator = mkUser("mod", true)
	f.second = mkUser("mod2", true)

	cat, err := store.CreateCategory(ctx, "general", "")
	require.NoError(t, err)
	f.post, err = store.CreatePost(ctx, &models.CreatePostRequest{
		CategoryID: cat.ID,
		AuthorID:   f.author.ID,
		Title:      "hello",
		Content:    "first post",
	})
	require.NoError(t, err)
	f.comment, err = store.CreateComment(ctx, &models.CreateCommentRequest{
		PostID:   f.post.ID,
		AuthorID: f.author.ID,
		Content:  "first comment",
	})
	require.NoError(t, err)

	return f
}

func TestMarkViolation(t *testing.T) {
	ctx := context.Background()

	t.Run("post violation deducts five points", func(t *testing.T) {
		f := newFixture(t)

		result, err := f.recorder.MarkViolation(ctx, ContentTypePost, f.post.ID, f.moderator.ID, "spam")
		require.NoError(t, err)
		assert.Equal(t, f.author.ID, result.AuthorID)
		assert.Equal(t, credit.PostViolationPoints, result.Violation.Points)
		assert.Equal(t, 95, result.Deduction.NewScore)
		assert.False(t, result.Deduction.Banned)

		post, err := f.store.GetPost(ctx, f.post.ID)
		require.NoError(t, err)
		assert.True(t, post.IsViolation)

		inbox, err := f.store.ListInbox(ctx, f.author.ID)
		require.NoError(t, err)
		require.Len(t, inbox, 1)
		assert.Equal(t, models.MessageTypePostViolation, inbox[0].Type)
		assert.Contains(t, inbox[0].Body, "spam")
		require.NotNil(t, inbox[0].PostID)
		assert.Equal(t, f.post.ID, *inbox[0].PostID)
	})

	t.Run("comment violation deducts one point", func(t *testing.T) {
		f := newFixture(t)

		result, err := f.recorder.MarkViolation(ctx, ContentTypeComment, f.comment.ID, f.moderator.ID, "abuse")
		require.NoError(t, err)
		assert.Equal(t, credit.CommentViolationPoints, result.Violation.Points)
		assert.Equal(t, 99, result.Deduction.NewScore)

		comment, err := f.store.GetComment(ctx, f.comment.ID)
		require.NoError(t, err)
		assert.True(t, comment.IsViolation)

		inbox, err := f.store.ListInbox(ctx, f.author.ID)
		require.NoError(t, err)
		require.Len(t, inbox, 1)
		assert.Equal(t, models.MessageTypeCommentViolation, inbox[0].Type)
	})

	t.Run("same moderator cannot flag twice", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.recorder.MarkViolation(ctx, ContentTypePost, f.post.ID, f.moderator.ID, "spam")
		require.NoError(t, err)

		_, err = f.recorder.MarkViolation(ctx, ContentTypePost, f.post.ID, f.moderator.ID, "spam again")
		assert.ErrorIs(t, err, ErrAlreadyFlagged)

		// The rejected flag must not deduct.
		author, err := f.store.GetUser(ctx, f.author.ID)
		require.NoError(t, err)
		assert.Equal(t, 95, author.CreditScore)
	})

	t.Run("different moderators each flag and deduct", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.recorder.MarkViolation(ctx, ContentTypePost, f.post.ID, f.moderator.ID, "spam")
		require.NoError(t, err)
		_, err = f.recorder.MarkViolation(ctx, ContentTypePost, f.post.ID, f.second.ID, "also spam")
		require.NoError(t, err)

		author, err := f.store.GetUser(ctx, f.author.ID)
		require.NoError(t, err)
		assert.Equal(t, 90, author.CreditScore)

		violations, err := f.store.ListViolationsForUser(ctx, f.author.ID)
		require.NoError(t, err)
		assert.Len(t, violations, 2)
	})

	t.Run("ban text is included when the deduction bans", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.store.UpdateUserCredit(ctx, f.author.ID, 82, nil))

		result, err := f.recorder.MarkViolation(ctx, ContentTypePost, f.post.ID, f.moderator.ID, "spam")
		require.NoError(t, err)
		assert.True(t, result.Deduction.Banned)

		inbox, err := f.store.ListInbox(ctx, f.author.ID)
		require.NoError(t, err)
		require.Len(t, inbox, 1)
		assert.Contains(t, inbox[0].Body, "banned from posting")
	})

	t.Run("empty reason is rejected", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.recorder.MarkViolation(ctx, ContentTypePost, f.post.ID, f.moderator.ID, "")
		assert.ErrorIs(t, err, ErrReasonRequired)
	})

	t.Run("unknown content type is rejected", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.recorder.MarkViolation(ctx, ContentType("reply"), f.post.ID, f.moderator.ID, "spam")
		assert.ErrorIs(t, err, ErrInvalidContentType)
	})

	t.Run("missing content", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.recorder.MarkViolation(ctx, ContentTypePost, 9999, f.moderator.ID, "spam")
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("flagging a post does not collide with flagging a comment of the same id", func(t *testing.T) {
		f := newFixture(t)
		require.Equal(t, f.post.ID, f.comment.ID, "fixture rows share numeric ids")

		_, err := f.recorder.MarkViolation(ctx, ContentTypePost, f.post.ID, f.moderator.ID, "spam")
		require.NoError(t, err)
		_, err = f.recorder.MarkViolation(ctx, ContentTypeComment, f.comment.ID, f.moderator.ID, "abuse")
		require.NoError(t, err)
	})
}

func TestPoints(t *testing.T) {
	p, err := Points(ContentTypePost)
	require.NoError(t, err)
	assert.Equal(t, 5, p)

	p, err = Points(ContentTypeComment)
	require.NoError(t, err)
	assert.Equal(t, 1, p)

	_, err = Points(ContentType("page"))
	assert.ErrorIs(t, err, ErrInvalidContentType)
}
