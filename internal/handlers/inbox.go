package handlers

import "net/http"

// HandleInboxList returns the caller's inbox messages, newest first,
// plus the unread count.
func (h *Handler) HandleInboxList(w http.ResponseWriter, r *http.Request) {
	ident := requireAuth(w, r)
	if ident == nil {
		return
	}

	messages, err := h.store.ListInbox(r.Context(), ident.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	unread, err := h.store.CountUnread(r.Context(), ident.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"unread":   unread,
	})
}

// HandleInboxRead marks one of the caller's messages as read. The
// store scopes the update by user id, so a message id belonging to
// someone else reads as not found.
func (h *Handler) HandleInboxRead(w http.ResponseWriter, r *http.Request) {
	ident := requireAuth(w, r)
	if ident == nil {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	if err := h.store.MarkInboxRead(r.Context(), id, ident.UserID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
