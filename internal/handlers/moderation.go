package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"campusforum/internal/moderation"
)

type markViolationRequest struct {
	ContentType string `json:"content_type"`
	ContentID   int64  `json:"content_id"`
	Reason      string `json:"reason"`
}

type markViolationResponse struct {
	ViolationID string `json:"violation_id"`
	AuthorID    int64  `json:"author_id"`
	Points      int    `json:"points"`
	NewScore    int    `json:"new_score"`
	Banned      bool   `json:"banned"`
	BanUntil    string `json:"ban_until,omitempty"`
}

// HandleViolationCreate flags one content item as violating on behalf
// of the calling admin.
func (h *Handler) HandleViolationCreate(w http.ResponseWriter, r *http.Request) {
	ident := requireAdmin(w, r)
	if ident == nil {
		return
	}

	var req markViolationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	result, err := h.recorder.MarkViolation(
		r.Context(),
		moderation.ContentType(req.ContentType),
		req.ContentID,
		ident.UserID,
		req.Reason,
	)
	if err != nil {
		switch {
		case errors.Is(err, moderation.ErrAlreadyFlagged):
			writeError(w, http.StatusConflict, "already flagged")
		case errors.Is(err, moderation.ErrReasonRequired),
			errors.Is(err, moderation.ErrInvalidContentType):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeStoreError(w, err)
		}
		return
	}

	resp := markViolationResponse{
		ViolationID: result.Violation.ID,
		AuthorID:    result.AuthorID,
		Points:      result.Violation.Points,
		NewScore:    result.Deduction.NewScore,
		Banned:      result.Deduction.Banned,
	}
	if result.Deduction.BanUntil != nil {
		resp.BanUntil = result.Deduction.BanUntil.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// HandleUserViolations lists the violation records against a user's
// content. Admins can inspect anyone; users can only see their own.
func (h *Handler) HandleUserViolations(w http.ResponseWriter, r *http.Request) {
	ident := requireAuth(w, r)
	if ident == nil {
		return
	}

	userID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if userID != ident.UserID && !ident.IsAdmin {
		writeError(w, http.StatusForbidden, "cannot view another user's violations")
		return
	}

	violations, err := h.store.ListViolationsForUser(r.Context(), userID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, violations)
}
