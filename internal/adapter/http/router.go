package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/immoflow/reconcile/internal/adapter/http/handler"
	"github.com/immoflow/reconcile/internal/adapter/http/middleware"
	"github.com/immoflow/reconcile/internal/domain"
	"github.com/immoflow/reconcile/internal/infrastructure/auth"
	"github.com/immoflow/reconcile/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	MatchHandler       *handler.MatchHandler
	RuleHandler        *handler.RuleHandler
	TransactionHandler *handler.TransactionHandler
	AuthHandler        *handler.AuthHandler
	UserHandler        *handler.UserHandler
	AuditHandler       *handler.AuditHandler
	HealthHandler      *handler.HealthHandler
	JWTManager         *auth.JWTManager
	IdempotencyStore   usecase.IdempotencyStore
	RateLimiter        *middleware.RateLimiter
	Logger             zerolog.Logger
}

// NewRouter creates a new HTTP router. Everything under /api/v1 except the
// login endpoint requires a bearer token.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Metrics)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))

	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health and metrics endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", cfg.AuthHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(cfg.JWTManager))

			// Idempotency middleware for mutating requests
			if cfg.IdempotencyStore != nil {
				idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore)
				r.Use(idempotencyMiddleware.Wrap)
			}

			r.Get("/auth/me", cfg.AuthHandler.GetCurrentUser)

			// Transactions
			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", cfg.TransactionHandler.List)
				r.Post("/match", cfg.MatchHandler.Match)
				r.Get("/{id}", cfg.TransactionHandler.Get)
			})

			// Rules
			r.Route("/rules", func(r chi.Router) {
				r.Post("/", cfg.RuleHandler.Create)
				r.Get("/", cfg.RuleHandler.List)
				r.Get("/{id}", cfg.RuleHandler.Get)
				r.Post("/{id}/apply", cfg.RuleHandler.Apply)
			})

			// Admin endpoints
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleAdmin))

				r.Route("/users", func(r chi.Router) {
					r.Post("/", cfg.UserHandler.Create)
					r.Get("/", cfg.UserHandler.List)
					r.Get("/{id}", cfg.UserHandler.Get)
					r.Put("/{id}", cfg.UserHandler.Update)
				})

				r.Get("/audit", cfg.AuditHandler.List)
			})
		})
	})

	return r
}
