package routing

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"campusforum/internal/handlers"
	"campusforum/internal/middleware"
	"campusforum/internal/session"
)

// Config holds the configuration needed for setting up routes
type Config struct {
	Handlers *handlers.Handler
	Sessions *session.Provider
	Logger   zerolog.Logger
}

// SetupRouter creates and configures the HTTP router with all routes and middleware
func SetupRouter(cfg Config) http.Handler {
	h := cfg.Handlers
	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("POST /api/register", h.HandleRegister)
	mux.HandleFunc("POST /api/login", h.HandleLogin)
	mux.HandleFunc("POST /api/logout", h.HandleLogout)
	mux.HandleFunc("GET /api/me", h.HandleMe)

	// Categories
	mux.HandleFunc("GET /api/categories", h.HandleCategoryList)
	mux.HandleFunc("POST /api/categories", h.HandleCategoryCreate)
	mux.HandleFunc("DELETE /api/categories/{id}", h.HandleCategoryDelete)

	// Posts (list doubles as substring search via ?q=)
	mux.HandleFunc("GET /api/posts", h.HandlePostList)
	mux.HandleFunc("POST /api/posts", h.HandlePostCreate)
	mux.HandleFunc("GET /api/posts/{id}", h.HandlePostGet)
	mux.HandleFunc("PUT /api/posts/{id}", h.HandlePostUpdate)
	mux.HandleFunc("DELETE /api/posts/{id}", h.HandlePostDelete)

	// Comments
	mux.HandleFunc("GET /api/posts/{id}/comments", h.HandleCommentList)
	mux.HandleFunc("POST /api/posts/{id}/comments", h.HandleCommentCreate)
	mux.HandleFunc("PUT /api/comments/{id}", h.HandleCommentUpdate)
	mux.HandleFunc("DELETE /api/comments/{id}", h.HandleCommentDelete)

	// Moderation
	mux.HandleFunc("POST /api/moderation/violations", h.HandleViolationCreate)
	mux.HandleFunc("GET /api/users/{id}/violations", h.HandleUserViolations)

	// Inbox
	mux.HandleFunc("GET /api/inbox", h.HandleInboxList)
	mux.HandleFunc("POST /api/inbox/{id}/read", h.HandleInboxRead)

	// Scheduled task trigger, gated by a shared token inside the handler
	mux.HandleFunc("POST /api/tasks/sweep", h.HandleSweep)

	// Operational endpoints
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Apply middleware in order (outermost first, innermost last)
	var handler http.Handler = mux

	// 1. Limit request body size (innermost - runs first on request)
	handler = middleware.LimitBodyMiddleware(handler)

	// 2. Resolve session tokens into the request context
	handler = middleware.AuthContext(cfg.Sessions)(handler)

	// 3. Apply rate limiting
	rateLimitConfig := middleware.NewDefaultRateLimitConfig()
	handler = middleware.RateLimitMiddleware(rateLimitConfig)(handler)

	// 4. Apply security headers
	handler = middleware.SecurityHeadersMiddleware(handler)

	// 5. Apply logging middleware (outermost - wraps everything)
	handler = middleware.LoggingMiddleware(cfg.Logger)(handler)

	return handler
}
