// Package moderation records admin violation flags against posts and
// comments. Each flag deducts credit points from the content's author
// through the credit engine, inside one transaction.
package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"campusforum/internal/credit"
	"campusforum/internal/database"
	"campusforum/internal/metrics"
	"campusforum/internal/models"
)

// ContentType identifies what kind of content a flag targets.
type ContentType string

const (
	ContentTypePost    ContentType = "post"
	ContentTypeComment ContentType = "comment"
)

var (
	// ErrAlreadyFlagged is returned when the same moderator flags the
	// same content item twice. Different moderators each get their
	// own record and each deduction stands.
	ErrAlreadyFlagged = fmt.Errorf("content already flagged by this moderator: %w", database.ErrConflict)

	// ErrReasonRequired is returned when the flag carries no reason.
	ErrReasonRequired = errors.New("violation reason is required")

	// ErrInvalidContentType is returned for content types other than
	// post or comment.
	ErrInvalidContentType = errors.New("invalid content type")
)

// Points returns the fixed deduction for a content type.
func Points(t ContentType) (int, error) {
	switch t {
	case ContentTypePost:
		return credit.PostViolationPoints, nil
	case ContentTypeComment:
		return credit.CommentViolationPoints, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidContentType, t)
	}
}

// Recorder marks content items as violating and drives the resulting
// deductions and notifications.
type Recorder struct {
	store  database.Store
	engine *credit.Engine
}

// NewRecorder creates a violation recorder backed by the given store
// and credit engine.
func NewRecorder(store database.Store, engine *credit.Engine) *Recorder {
	return &Recorder{store: store, engine: engine}
}

// MarkResult reports a successful violation flag.
type MarkResult struct {
	Violation *models.Violation
	Deduction *credit.DeductionResult
	AuthorID  int64
}

// MarkViolation flags one content item as violating on behalf of one
// moderator. The violation record, the content's violation flag, the
// author's score/ban update, and the author's inbox notification are
// committed in a single transaction; on any failure none of them are.
func (r *Recorder) MarkViolation(ctx context.Context, contentType ContentType, contentID, moderatorID int64, reason string) (*MarkResult, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}
	points, err := Points(contentType)
	if err != nil {
		return nil, err
	}

	var result *MarkResult
	err = r.store.WithTx(ctx, func(tx database.Tx) error {
		var authorID int64
		var postID, commentID *int64

		switch contentType {
		case ContentTypePost:
			post, err := tx.GetPost(ctx, contentID)
			if err != nil {
				return err
			}
			authorID = post.AuthorID
			postID = &post.ID
		case ContentTypeComment:
			comment, err := tx.GetComment(ctx, contentID)
			if err != nil {
				return err
			}
			authorID = comment.AuthorID
			commentID = &comment.ID
		}

		exists, err := tx.HasViolation(ctx, string(contentType), contentID, moderatorID)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyFlagged
		}

		if contentType == ContentTypePost {
			if err := tx.SetPostViolation(ctx, contentID); err != nil {
				return err
			}
		} else {
			if err := tx.SetCommentViolation(ctx, contentID); err != nil {
				return err
			}
		}

		now := r.engine.Now()
		violation := &models.Violation{
			ID:          uuid.NewString(),
			ContentType: string(contentType),
			ContentID:   contentID,
			ModeratorID: moderatorID,
			Reason:      reason,
			Points:      points,
			CreatedAt:   now,
		}
		if err := tx.CreateViolation(ctx, violation); err != nil {
			// The unique constraint closes the race between two
			// concurrent flags by the same moderator.
			if errors.Is(err, database.ErrConflict) {
				return ErrAlreadyFlagged
			}
			return err
		}

		deduction, err := r.engine.ApplyDeduction(ctx, tx, authorID, points)
		if err != nil {
			return err
		}

		msgType := models.MessageTypePostViolation
		if contentType == ContentTypeComment {
			msgType = models.MessageTypeCommentViolation
		}
		body := fmt.Sprintf("Your %s was marked as a violation (%s). %d credit points were deducted; your score is now %d.",
			contentType, reason, points, deduction.NewScore)
		if deduction.Banned {
			body += fmt.Sprintf(" You are banned from posting until %s.",
				deduction.BanUntil.Format("2006-01-02 15:04 MST"))
		}
		msg := &models.InboxMessage{
			ID:        uuid.NewString(),
			UserID:    authorID,
			Type:      msgType,
			Body:      body,
			PostID:    postID,
			CommentID: commentID,
			CreatedAt: now,
		}
		if err := tx.CreateInboxMessage(ctx, msg); err != nil {
			return err
		}

		result = &MarkResult{Violation: violation, Deduction: deduction, AuthorID: authorID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ViolationsTotal.WithLabelValues(string(contentType)).Inc()
	log.Info().
		Str("content_type", string(contentType)).
		Int64("content_id", contentID).
		Int64("moderator_id", moderatorID).
		Int64("author_id", result.AuthorID).
		Int("points", points).
		Bool("ban_imposed", result.Deduction.Banned).
		Msg("moderation: violation recorded")

	return result, nil
}
