// Package models defines the data records shared across the forum:
// users, categories, posts, comments, violation records, and inbox
// messages.
package models

import "time"

// MessageType tags an inbox message with its origin.
type MessageType string

const (
	MessageTypePostViolation    MessageType = "post_violation"
	MessageTypeCommentViolation MessageType = "comment_violation"
	MessageTypeSystem           MessageType = "system"
	MessageTypeAdmin            MessageType = "admin"
	MessageTypeUserReply        MessageType = "user_reply"
)

// User is a registered forum member. CreditScore starts at 100 and is
// mutated only by the credit engine; BanUntil is nil when no ban has
// ever been imposed or after rehabilitation clears it.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	IsAdmin      bool       `json:"is_admin"`
	CreditScore  int        `json:"credit_score"`
	BanUntil     *time.Time `json:"ban_until,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Category groups posts. Deleting a category cascades to its posts
// and their comments.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Post is a top-level content item. IsViolation is flipped false->true
// by the violation recorder and never reversed. EditCount is capped
// at 2 by the edit handlers.
type Post struct {
	ID          int64     `json:"id"`
	CategoryID  int64     `json:"category_id"`
	AuthorID    int64     `json:"author_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	EditCount   int       `json:"edit_count"`
	IsViolation bool      `json:"is_violation"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Comment is a reply attached to a post.
type Comment struct {
	ID          int64     `json:"id"`
	PostID      int64     `json:"post_id"`
	AuthorID    int64     `json:"author_id"`
	Content     string    `json:"content"`
	EditCount   int       `json:"edit_count"`
	IsViolation bool      `json:"is_violation"`
	CreatedAt   time.Time `json:"created_at"`
}

// Violation is the immutable audit record of one moderator flagging
// one content item. At most one exists per (content type, content id,
// moderator) triple; different moderators each create their own.
type Violation struct {
	ID          string    `json:"id"`
	ContentType string    `json:"content_type"` // "post" or "comment"
	ContentID   int64     `json:"content_id"`
	ModeratorID int64     `json:"moderator_id"`
	Reason      string    `json:"reason"`
	Points      int       `json:"points"`
	CreatedAt   time.Time `json:"created_at"`
}

// InboxMessage is a per-user notification. Only IsRead is ever
// mutated after creation.
type InboxMessage struct {
	ID        string      `json:"id"`
	UserID    int64       `json:"user_id"`
	Type      MessageType `json:"type"`
	Body      string      `json:"body"`
	PostID    *int64      `json:"post_id,omitempty"`
	CommentID *int64      `json:"comment_id,omitempty"`
	IsRead    bool        `json:"is_read"`
	CreatedAt time.Time   `json:"created_at"`
}

// CreateUserRequest carries the fields needed to register a user.
type CreateUserRequest struct {
	Email        string
	Username     string
	PasswordHash string
	IsAdmin      bool
}

// CreatePostRequest carries the fields needed to create a post.
type CreatePostRequest struct {
	CategoryID int64
	AuthorID   int64
	Title      string
	Content    string
}

// CreateCommentRequest carries the fields needed to create a comment.
type CreateCommentRequest struct {
	PostID   int64
	AuthorID int64
	Content  string
}
