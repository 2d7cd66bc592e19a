package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	"campusforum/internal/database"
	"campusforum/internal/models"
)

func (q queries) CreateInboxMessage(ctx context.Context, msg *models.InboxMessage) error {
	isRead := 0
	if msg.IsRead {
		isRead = 1
	}
	var postID, commentID any
	if msg.PostID != nil {
		postID = *msg.PostID
	}
	if msg.CommentID != nil {
		commentID = *msg.CommentID
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO inbox_messages (id, user_id, type, body, post_id, comment_id, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.UserID, string(msg.Type), msg.Body, postID, commentID, isRead, formatTime(msg.CreatedAt))
	if err != nil {
		return fmt.Errorf("create inbox message: %w", err)
	}
	return nil
}

func (s *Store) ListInbox(ctx context.Context, userID int64) ([]*models.InboxMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, body, post_id, comment_id, is_read, created_at
		FROM inbox_messages WHERE user_id = ? ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	defer rows.Close()

	var messages []*models.InboxMessage
	for rows.Next() {
		var m models.InboxMessage
		var msgType, createdAt string
		var postID, commentID sql.NullInt64
		var isRead int
		if err := rows.Scan(&m.ID, &m.UserID, &msgType, &m.Body, &postID, &commentID, &isRead, &createdAt); err != nil {
			return nil, fmt.Errorf("scan inbox message: %w", err)
		}
		m.Type = models.MessageType(msgType)
		if postID.Valid {
			m.PostID = &postID.Int64
		}
		if commentID.Valid {
			m.CommentID = &commentID.Int64
		}
		m.IsRead = isRead == 1
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

// MarkInboxRead flips is_read for one of the user's own messages.
func (s *Store) MarkInboxRead(ctx context.Context, id string, userID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE inbox_messages SET is_read = 1 WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("mark inbox read: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (s *Store) CountUnread(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM inbox_messages WHERE user_id = ? AND is_read = 0
	`, userID).Scan(&count)
	return count, err
}
