package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"campusforum/internal/database"
	"campusforum/internal/models"
)

const userColumns = `id, email, username, password_hash, is_admin, credit_score, ban_until, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var isAdmin int
	var banUntil sql.NullString
	var createdAt string
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &isAdmin, &u.CreditScore, &banUntil, &createdAt)
	if err != nil {
		return nil, err
	}
	u.IsAdmin = isAdmin == 1
	if u.BanUntil, err = parseTimePtr(banUntil); err != nil {
		return nil, err
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	isAdmin := 0
	if req.IsAdmin {
		isAdmin = 1
	}
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, username, password_hash, is_admin, credit_score, created_at)
		VALUES (?, ?, ?, ?, 100, ?)
	`, req.Email, req.Username, req.PasswordHash, isAdmin, formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, database.ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.GetUser(ctx, id)
}

func (q queries) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err == sql.ErrNoRows {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err == sql.ErrNoRows {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (q queries) UpdateUserCredit(ctx context.Context, id int64, score int, banUntil *time.Time) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE users SET credit_score = ?, ban_until = ? WHERE id = ?
	`, score, formatTimePtr(banUntil), id)
	if err != nil {
		return fmt.Errorf("update user credit: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (q queries) ListExpiredBans(ctx context.Context, now time.Time) ([]*models.User, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE ban_until IS NOT NULL AND ban_until < ?
		ORDER BY id
	`, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("list expired bans: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (q queries) ListResetCandidates(ctx context.Context) ([]*models.User, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE ban_until IS NULL AND credit_score != 100
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list reset candidates: %w", err)
	}
	defer rows.Close()
	return scanUsers(rows)
}

func scanUsers(rows *sql.Rows) ([]*models.User, error) {
	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func (s *Store) CountActiveBans(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users WHERE ban_until IS NOT NULL AND ban_until >= ?
	`, formatTime(now)).Scan(&count)
	return count, err
}

func (s *Store) CountLowScoreUsers(ctx context.Context, threshold int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE credit_score < ?`, threshold).Scan(&count)
	return count, err
}
