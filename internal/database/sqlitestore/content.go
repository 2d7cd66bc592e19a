package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"campusforum/internal/database"
	"campusforum/internal/models"
)

// ========== Categories ==========

func (s *Store) CreateCategory(ctx context.Context, name, description string) (*models.Category, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, description, created_at) VALUES (?, ?, ?)
	`, name, description, formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, database.ErrConflict
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	id, _ := res.LastInsertId()
	return &models.Category{ID: id, Name: name, Description: description, CreatedAt: now}, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, created_at FROM categories ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var c models.Category
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// DeleteCategory removes a category; its posts and their comments are
// removed by the foreign key cascade.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// ========== Posts ==========

const postColumns = `id, category_id, author_id, title, content, edit_count, is_violation, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	var p models.Post
	var isViolation int
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.CategoryID, &p.AuthorID, &p.Title, &p.Content,
		&p.EditCount, &isViolation, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.IsViolation = isViolation == 1
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreatePost(ctx context.Context, req *models.CreatePostRequest) (*models.Post, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (category_id, author_id, title, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, req.CategoryID, req.AuthorID, req.Title, req.Content, formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetPost(ctx, id)
}

func (q queries) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	p, err := scanPost(q.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func (s *Store) ListPosts(ctx context.Context, categoryID int64) ([]*models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+` FROM posts WHERE category_id = ? ORDER BY created_at DESC
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

// SearchPosts is a plain substring filter over title and content.
func (s *Store) SearchPosts(ctx context.Context, query string) ([]*models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE title LIKE '%' || ? || '%' OR content LIKE '%' || ? || '%'
		ORDER BY created_at DESC
	`, query, query)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

func scanPosts(rows *sql.Rows) ([]*models.Post, error) {
	var posts []*models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// UpdatePost replaces the title and content and bumps edit_count. The
// edit cap is enforced by the caller.
func (s *Store) UpdatePost(ctx context.Context, id int64, title, content string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE posts SET title = ?, content = ?, edit_count = edit_count + 1, updated_at = ?
		WHERE id = ?
	`, title, content, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// SetPostViolation flips the violation flag. The flag is monotonic;
// flagging an already flagged post is a no-op, not an error.
func (q queries) SetPostViolation(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `UPDATE posts SET is_violation = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("set post violation: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// ========== Comments ==========

const commentColumns = `id, post_id, author_id, content, edit_count, is_violation, created_at`

func scanComment(row interface{ Scan(...any) error }) (*models.Comment, error) {
	var c models.Comment
	var isViolation int
	var createdAt string
	err := row.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Content, &c.EditCount, &isViolation, &createdAt)
	if err != nil {
		return nil, err
	}
	c.IsViolation = isViolation == 1
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateComment(ctx context.Context, req *models.CreateCommentRequest) (*models.Comment, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (post_id, author_id, content, created_at) VALUES (?, ?, ?, ?)
	`, req.PostID, req.AuthorID, req.Content, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetComment(ctx, id)
}

func (q queries) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	c, err := scanComment(q.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

func (s *Store) ListComments(ctx context.Context, postID int64) ([]*models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+commentColumns+` FROM comments WHERE post_id = ? ORDER BY created_at
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *Store) UpdateComment(ctx context.Context, id int64, content string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE comments SET content = ?, edit_count = edit_count + 1 WHERE id = ?
	`, content, id)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (q queries) SetCommentViolation(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `UPDATE comments SET is_violation = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("set comment violation: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}
