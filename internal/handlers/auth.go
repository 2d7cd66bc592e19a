package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"campusforum/internal/database"
	"campusforum/internal/metrics"
	"campusforum/internal/middleware"
	"campusforum/internal/models"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// HandleRegister creates a new account. Registration requires an
// institutional email when an email domain is configured.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	if req.Email == "" || req.Username == "" || len(req.Password) < 8 {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, "email, username, and a password of at least 8 characters are required")
		return
	}
	if h.config.EmailDomain != "" && !strings.HasSuffix(req.Email, "@"+h.config.EmailDomain) {
		metrics.RegistrationsTotal.WithLabelValues("wrong_domain").Inc()
		writeError(w, http.StatusBadRequest, "registration requires an @"+h.config.EmailDomain+" email address")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), &models.CreateUserRequest{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
			writeError(w, http.StatusConflict, "email or username already taken")
			return
		}
		writeStoreError(w, err)
		return
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	writeJSON(w, http.StatusCreated, user)
}

// HandleLogin verifies credentials and issues a session token, set as
// a cookie and returned in the body for API clients.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.sessions.Issue(r.Context(), user.ID, user.Username, user.IsAdmin)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(24 * time.Hour),
	})

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// HandleLogout revokes the current session and clears the cookie.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ident := requireAuth(w, r)
	if ident == nil {
		return
	}

	if err := h.sessions.Revoke(r.Context(), ident.TokenID); err != nil {
		log.Warn().Err(err).Msg("failed to revoke session")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// HandleMe returns the caller's profile including current credit and
// ban state.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ident := requireAuth(w, r)
	if ident == nil {
		return
	}

	user, err := h.store.GetUser(r.Context(), ident.UserID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
