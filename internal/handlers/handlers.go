// Package handlers contains the HTTP glue around the record store,
// session provider, credit engine, and violation recorder.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"campusforum/internal/credit"
	"campusforum/internal/database"
	"campusforum/internal/middleware"
	"campusforum/internal/moderation"
	"campusforum/internal/session"
)

// Config holds handler configuration options.
type Config struct {
	// SecureCookies sets the Secure flag on session cookies. Should
	// be true in production (HTTPS).
	SecureCookies bool

	// EmailDomain is the institutional email domain required at
	// registration, e.g. "campus.edu". Empty disables the check.
	EmailDomain string

	// SweepToken is the shared secret gating the task endpoint.
	SweepToken string
}

// Handler contains all HTTP handler methods and their dependencies.
// Dependencies are injected via the constructor for better
// testability.
type Handler struct {
	store    database.Store
	sessions *session.Provider
	engine   *credit.Engine
	recorder *moderation.Recorder
	config   Config
}

// NewHandler creates a new Handler with all required dependencies.
func NewHandler(
	store database.Store,
	sessions *session.Provider,
	engine *credit.Engine,
	recorder *moderation.Recorder,
	config Config,
) *Handler {
	return &Handler{
		store:    store,
		sessions: sessions,
		engine:   engine,
		recorder: recorder,
		config:   config,
	}
}

// errorResponse is the JSON shape of every error reply.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeStoreError maps store sentinel errors to HTTP statuses;
// anything else surfaces as a generic failure while the detail is
// logged for operators.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, database.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "action failed, try again")
	}
}

// requireAuth returns the caller identity or writes a 401.
func requireAuth(w http.ResponseWriter, r *http.Request) *session.Identity {
	ident := middleware.GetIdentity(r.Context())
	if ident == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return nil
	}
	return ident
}

// requireAdmin returns the caller identity or writes a 401/403.
func requireAdmin(w http.ResponseWriter, r *http.Request) *session.Identity {
	ident := requireAuth(w, r)
	if ident == nil {
		return nil
	}
	if !ident.IsAdmin {
		writeError(w, http.StatusForbidden, "admin privileges required")
		return nil
	}
	return ident
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// HandleHealth is a liveness probe.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
