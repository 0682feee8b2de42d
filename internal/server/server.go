// Package server provides the HTTP API for the claims service: public
// submission and browsing endpoints, and the admin review queue.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rgygrj9sjw-svg/Claims/internal/audit"
	"github.com/rgygrj9sjw-svg/Claims/internal/claim"
	"github.com/rgygrj9sjw-svg/Claims/internal/otel"
	"github.com/rgygrj9sjw-svg/Claims/internal/sanitize"
	"github.com/rgygrj9sjw-svg/Claims/internal/store"
)

const requestTimeout = 30 * time.Second

// Server holds all dependencies for the HTTP API.
type Server struct {
	router     *chi.Mux
	store      *store.Store
	auditStore *audit.Store
	pipeline   *claim.Pipeline
	scanner    *sanitize.Scanner
	adminKeys  map[string]string
	limiter    *RateLimiter
	startTime  time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithAuditStore sets the moderation audit store (optional; submissions are
// still accepted if auditing is disabled).
func WithAuditStore(a *audit.Store) Option {
	return func(s *Server) { s.auditStore = a }
}

// WithAdminKeys sets the admin API keys. Map is key -> admin name.
func WithAdminKeys(keys map[string]string) Option {
	return func(s *Server) { s.adminKeys = keys }
}

// WithRateLimiter sets the submission rate limiter (optional).
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) { s.limiter = rl }
}

// New creates the server and mounts all routes.
func New(st *store.Store, pipeline *claim.Pipeline, scanner *sanitize.Scanner, opts ...Option) *Server {
	s := &Server{
		store:     st,
		pipeline:  pipeline,
		scanner:   scanner,
		adminKeys: map[string]string{},
		startTime: time.Now(),
	}
	for _, o := range opts {
		o(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(otel.Middleware())

	r.Get("/health", s.handleHealth)

	r.Route("/v1/claims", func(r chi.Router) {
		r.With(s.submitRateLimit).Post("/", s.handleSubmitClaim)
		r.Get("/", s.handleListClaims)
		r.Get("/{id}", s.handleGetClaim)
	})

	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(AdminAuthMiddleware(s.adminKeys))
		r.Get("/claims", s.handleListPending)
		r.Post("/claims/{id}/publish", s.handlePublishClaim)
		r.Post("/claims/{id}/reject", s.handleRejectClaim)
		r.Delete("/claims/{id}", s.handleDeleteClaim)
		r.Get("/claims/{id}/pii-check", s.handlePIICheck)
		r.Get("/claims/{id}/audit", s.handleClaimAudit)
	})

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// submitRateLimit applies the token-bucket limiter to the submission
// endpoint, keyed by client IP. A no-op when no limiter is configured.
func (s *Server) submitRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded",
				"Too many submissions, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}
