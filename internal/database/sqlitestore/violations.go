package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	"campusforum/internal/database"
	"campusforum/internal/models"
)

// CreateViolation inserts an immutable violation record. The
// UNIQUE(content_type, content_id, moderator_id) constraint is the
// hard backstop against two concurrent identical flags by the same
// moderator; a constraint hit maps to ErrConflict.
func (q queries) CreateViolation(ctx context.Context, v *models.Violation) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO violations (id, content_type, content_id, moderator_id, reason, points, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.ContentType, v.ContentID, v.ModeratorID, v.Reason, v.Points, formatTime(v.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return database.ErrConflict
		}
		return fmt.Errorf("create violation: %w", err)
	}
	return nil
}

func (q queries) HasViolation(ctx context.Context, contentType string, contentID, moderatorID int64) (bool, error) {
	var exists int
	err := q.db.QueryRowContext(ctx, `
		SELECT 1 FROM violations
		WHERE content_type = ? AND content_id = ? AND moderator_id = ?
		LIMIT 1
	`, contentType, contentID, moderatorID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has violation: %w", err)
	}
	return exists == 1, nil
}

// ListViolationsForUser returns violation records against content
// authored by the given user, newest first.
func (s *Store) ListViolationsForUser(ctx context.Context, userID int64) ([]*models.Violation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.content_type, v.content_id, v.moderator_id, v.reason, v.points, v.created_at
		FROM violations v
		WHERE (v.content_type = 'post'    AND v.content_id IN (SELECT id FROM posts    WHERE author_id = ?))
		   OR (v.content_type = 'comment' AND v.content_id IN (SELECT id FROM comments WHERE author_id = ?))
		ORDER BY v.created_at DESC
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	defer rows.Close()

	var violations []*models.Violation
	for rows.Next() {
		var v models.Violation
		var createdAt string
		if err := rows.Scan(&v.ID, &v.ContentType, &v.ContentID, &v.ModeratorID, &v.Reason, &v.Points, &createdAt); err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		if v.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		violations = append(violations, &v)
	}
	return violations, rows.Err()
}

// ========== Meta ==========

// GetMeta returns the value for key, or "" when unset.
func (q queries) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get meta: %w", err)
	}
	return value, nil
}

func (q queries) SetMeta(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set meta: %w", err)
	}
	return nil
}
