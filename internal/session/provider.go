// Package session is the forum's session provider: it authenticates
// credentials into signed tokens and verifies them back into an
// identity carrying the user id, username, and admin flag.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrInvalidSession is returned for tokens that are malformed,
// expired, or revoked.
var ErrInvalidSession = errors.New("invalid or expired session")

// Identity is the verified caller identity attached to requests.
type Identity struct {
	UserID   int64
	Username string
	IsAdmin  bool
	// TokenID is the jti of the backing token, used for revocation.
	TokenID string
}

// Session is the server-side record of an issued token. Deleting it
// revokes the token before its expiry.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists session records. Implementations must be safe for
// concurrent use.
type Store interface {
	SaveSession(ctx context.Context, sess Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Provider issues and verifies HMAC-signed session tokens backed by a
// persistent session store.
type Provider struct {
	secret   []byte
	ttl      time.Duration
	sessions Store
}

// NewProvider creates a session provider. ttl bounds how long issued
// tokens stay valid.
func NewProvider(secret string, ttl time.Duration, sessions Store) *Provider {
	return &Provider{
		secret:   []byte(secret),
		ttl:      ttl,
		sessions: sessions,
	}
}

type claims struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Issue creates a signed token for the user and records the session
// server-side.
func (p *Provider) Issue(ctx context.Context, userID int64, username string, isAdmin bool) (string, error) {
	now := time.Now()
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(p.ttl),
		CreatedAt: now,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: username,
		IsAdmin:  isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	})

	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	if err := p.sessions.SaveSession(ctx, sess); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	log.Debug().Int64("user_id", userID).Str("session_id", sess.ID).Msg("session issued")
	return signed, nil
}

// Verify parses and validates a token and checks the backing session
// record still exists.
func (p *Provider) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}

	var userID int64
	if _, err := fmt.Sscanf(c.Subject, "%d", &userID); err != nil {
		return nil, ErrInvalidSession
	}

	sess, err := p.sessions.GetSession(ctx, c.ID)
	if err != nil || sess == nil {
		return nil, ErrInvalidSession
	}
	if time.Now().After(sess.ExpiresAt) {
		// Expired server-side; clean up the stale record.
		_ = p.sessions.DeleteSession(ctx, c.ID)
		return nil, ErrInvalidSession
	}

	return &Identity{
		UserID:   userID,
		Username: c.Username,
		IsAdmin:  c.IsAdmin,
		TokenID:  c.ID,
	}, nil
}

// Revoke deletes the session record behind a token, invalidating it
// immediately.
func (p *Provider) Revoke(ctx context.Context, tokenID string) error {
	if err := p.sessions.DeleteSession(ctx, tokenID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
