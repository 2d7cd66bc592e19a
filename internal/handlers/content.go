package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"campusforum/internal/credit"
	"campusforum/internal/metrics"
	"campusforum/internal/models"
)

// MaxEditCount caps how many times a post or comment may be edited.
const MaxEditCount = 2

// ========== Categories ==========

type createCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) HandleCategoryList(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) HandleCategoryCreate(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "category name is required")
		return
	}

	category, err := h.store.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// HandleCategoryDelete removes a category; the store cascades the
// delete to its posts and their comments.
func (h *Handler) HandleCategoryDelete(w http.ResponseWriter, r *http.Request) {
	if requireAdmin(w, r) == nil {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	if err := h.store.DeleteCategory(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ========== Posts ==========

type createPostRequest struct {
	CategoryID int64  `json:"category_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
}

type updatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// admissionDenied writes the user-facing denial: the ban countdown in
// whole hours, or the low-score warning, plus the current score.
func admissionDenied(w http.ResponseWriter, adm *credit.Admission) {
	var msg string
	if adm.Remaining > 0 {
		msg = fmt.Sprintf("you are banned from posting: about %d hour(s) remaining", adm.RemainingHours())
		metrics.AdmissionDeniedTotal.WithLabelValues("banned").Inc()
	} else {
		msg = fmt.Sprintf("your credit score (%d) is below %d", adm.Score, credit.AdmissionThreshold)
		metrics.AdmissionDeniedTotal.WithLabelValues("low_score").Inc()
	}
	writeJSON(w, http.StatusForbidden, map[string]any{
		"error":        msg,
		"credit_score": adm.Score,
	})
}

func (h *Handler) HandlePostCreate(w http.ResponseWriter, r *http.Request) {
	ident := requireAuth(w, r)
	if ident == nil {
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	adm, err := h.engine.CheckAdmission(r.Context(), ident.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !adm.Allowed {
		admissionDenied(w, adm)
		return
	}

	post, err := h.store.CreatePost(r.Context(), &models.CreatePostRequest{
		CategoryID: req.CategoryID,
		AuthorID:   ident.UserID,
		Title:      req.Title,
		Content:    req.Content,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	metrics.PostsCreatedTotal.Inc()
	writeJSON(w, http.StatusCreated, post)
}

func (h *Handler) HandlePostGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	post, err := h.store.GetPost(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandlePostList lists posts in a category, or runs the substring
// search when a q parameter is present.
func (h *Handler) HandlePostList(w http.ResponseWriter, r *http.Request) {
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		posts, err := h.store.SearchPosts(r.Context(), q)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, posts)
		return
	}

	categoryID, err := strconv.ParseInt(r.URL.Query().Get("category"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "category parameter is required")
		return
	}
	posts, err := h.store.ListPosts(r.Context(), categoryID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) HandlePostUpdate(w http.ResponseWriter, r *http.Request) {
	ident := requireAuth(w, r)
	if ident == nil {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	var req updatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	post, err := h.store.GetPost(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if post.AuthorID != ident.UserID {
		writeError(w, http.StatusForbidden, "only the author can edit this post")
		return
	}
	if post.EditCount >= MaxEditCount {
		writeError(w, http.StatusForbidden, fmt.Sprintf("posts can be edited at most %d times", MaxEditCount))
		return
	}

	if err := h.store.UpdatePost(r.Context(), id, req.Title, req.Content); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) HandlePostDelete(w http.ResponseWriter, r *http.Request) {
	ident := requireAuth(w, r)
	if ident == nil {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	post, err := h.store.GetPost(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if post.AuthorID != ident.UserID && !ident.IsAdmin {
		writeError(w, http.StatusForbidden, "only the author or an admin can delete this post")
		return
	}

	if err := h.store.DeletePost(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ========== Comments ==========

type createCommentRequest struct {
	Content string `json:"content"`
}

func (h *Handler) HandleCommentCreate(w http.ResponseWriter, r *http.Request) {
	ident := requireAuth(w, r)
	if ident == nil {
		return
	}

	postID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	adm, err := h.engine.CheckAdmission(r.Context(), ident.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !adm.Allowed {
		admissionDenied(w, adm)
		return
	}

	// Ensure the post exists before attaching a comment.
	if _, err := h.store.GetPost(r.Context(), postID); err != nil {
		writeStoreError(w, err)
		return
	}

	comment, err := h.store.CreateComment(r.Context(), &models.CreateCommentRequest{
		PostID:   postID,
		AuthorID: ident.UserID,
		Content:  req.Content,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	metrics.CommentsCreatedTotal.Inc()
	writeJSON(w, http.StatusCreated, comment)
}

func (h *Handler) HandleCommentList(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	comments, err := h.store.ListComments(r.Context(), postID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *Handler) HandleCommentUpdate(w http.ResponseWriter, r *http.Request) {
	ident := requireAuth(w, r)
	if ident == nil {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid comment id")
		return
	}

	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	comment, err := h.store.GetComment(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if comment.AuthorID != ident.UserID {
		writeError(w, http.StatusForbidden, "only the author can edit this comment")
		return
	}
	if comment.EditCount >= MaxEditCount {
		writeError(w, http.StatusForbidden, fmt.Sprintf("comments can be edited at most %d times", MaxEditCount))
		return
	}

	if err := h.store.UpdateComment(r.Context(), id, req.Content); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) HandleCommentDelete(w http.ResponseWriter, r *http.Request) {
	ident := requireAuth(w, r)
	if ident == nil {
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid comment id")
		return
	}

	comment, err := h.store.GetComment(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if comment.AuthorID != ident.UserID && !ident.IsAdmin {
		writeError(w, http.StatusForbidden, "only the author or an admin can delete this comment")
		return
	}

	if err := h.store.DeleteComment(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
