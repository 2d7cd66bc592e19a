package boltstore

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"campusforum/internal/session"
)

// SessionStore implements session.Store using BoltDB for persistence,
// allowing sessions to survive server restarts.
type SessionStore struct {
	db *bolt.DB
}

// Ensure SessionStore implements session.Store
var _ session.Store = (*SessionStore)(nil)

// GetSession retrieves a session by token id. Returns (nil, nil) if
// the session does not exist.
func (s *SessionStore) GetSession(ctx context.Context, id string) (*session.Session, error) {
	var sess *session.Session

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketSessions)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return nil
		}

		sess = &session.Session{}
		return json.Unmarshal(data, sess)
	})
	if err != nil {
		return nil, err
	}

	return sess, nil
}

// SaveSession persists a session (upsert operation).
func (s *SessionStore) SaveSession(ctx context.Context, sess session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketSessions)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		return bucket.Put([]byte(sess.ID), data)
	})
}

// DeleteSession removes a session by token id. Deleting a missing
// session is not an error.
func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketSessions)
		if bucket == nil {
			return fmt.Errorf("session bucket not found")
		}

		return bucket.Delete([]byte(id))
	})
}
