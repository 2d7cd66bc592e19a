// Package database defines the persistence interfaces for the forum.
// Implementations live in subpackages (sqlitestore for records,
// boltstore for sessions); components receive a Store via constructor
// injection rather than a process-wide global.
package database

import (
	"context"
	"errors"
	"time"

	"campusforum/internal/models"
)

// Sentinel errors returned by Store implementations. Callers match
// with errors.Is and map them to user-facing failures.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict indicates a uniqueness constraint was violated,
	// e.g. a duplicate violation flag or a taken email/username.
	ErrConflict = errors.New("record already exists")
)

// Tx is the set of operations available inside a transaction. The
// credit engine and violation recorder do all their writes through a
// Tx so score, ban, violation, content flag, and inbox rows commit
// together or not at all.
type Tx interface {
	// Users
	GetUser(ctx context.Context, id int64) (*models.User, error)
	// UpdateUserCredit persists the score and ban fields together.
	// A nil banUntil clears the ban column.
	UpdateUserCredit(ctx context.Context, id int64, score int, banUntil *time.Time) error
	// ListExpiredBans returns users whose ban_until is set and
	// strictly before now. This is the unban sweep's work-set.
	ListExpiredBans(ctx context.Context, now time.Time) ([]*models.User, error)
	// ListResetCandidates returns users with no ban and a score
	// other than 100. This is the weekly reset's work-set.
	ListResetCandidates(ctx context.Context) ([]*models.User, error)

	// Content
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	GetComment(ctx context.Context, id int64) (*models.Comment, error)
	SetPostViolation(ctx context.Context, id int64) error
	SetCommentViolation(ctx context.Context, id int64) error

	// Violations
	CreateViolation(ctx context.Context, v *models.Violation) error
	HasViolation(ctx context.Context, contentType string, contentID, moderatorID int64) (bool, error)

	// Inbox
	CreateInboxMessage(ctx context.Context, msg *models.InboxMessage) error

	// Meta holds scheduler bookkeeping such as the weekly reset's
	// next-run timestamp. GetMeta returns "" when the key is unset.
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
}

// Store is the full persistence interface. The Tx methods run as
// single-statement operations on the shared connection; WithTx groups
// multiple writes into one atomic transaction.
type Store interface {
	Tx

	// WithTx runs fn inside a write transaction, committing on nil
	// and rolling back on error.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Users
	CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CountUsers(ctx context.Context) (int, error)
	CountActiveBans(ctx context.Context, now time.Time) (int, error)
	CountLowScoreUsers(ctx context.Context, threshold int) (int, error)

	// Categories
	CreateCategory(ctx context.Context, name, description string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	// Posts
	CreatePost(ctx context.Context, req *models.CreatePostRequest) (*models.Post, error)
	ListPosts(ctx context.Context, categoryID int64) ([]*models.Post, error)
	SearchPosts(ctx context.Context, query string) ([]*models.Post, error)
	UpdatePost(ctx context.Context, id int64, title, content string) error
	DeletePost(ctx context.Context, id int64) error

	// Comments
	CreateComment(ctx context.Context, req *models.CreateCommentRequest) (*models.Comment, error)
	ListComments(ctx context.Context, postID int64) ([]*models.Comment, error)
	UpdateComment(ctx context.Context, id int64, content string) error
	DeleteComment(ctx context.Context, id int64) error

	// Violations
	ListViolationsForUser(ctx context.Context, userID int64) ([]*models.Violation, error)

	// Inbox
	ListInbox(ctx context.Context, userID int64) ([]*models.InboxMessage, error)
	MarkInboxRead(ctx context.Context, id string, userID int64) error
	CountUnread(ctx context.Context, userID int64) (int, error)

	// Close the underlying database.
	Close() error
}
