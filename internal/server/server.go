package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sevasetu/backoffice/internal/auth"
	"github.com/sevasetu/backoffice/internal/config"
	"github.com/sevasetu/backoffice/internal/http/handlers"
	"github.com/sevasetu/backoffice/internal/middleware"
	"github.com/sevasetu/backoffice/internal/models"
	"github.com/sevasetu/backoffice/internal/storage"
)

// Stores bundles the persistence collaborators the router needs.
type Stores struct {
	Users     storage.UserStore
	Donations storage.DonationStore
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires middleware and routes, and returns a ready server.
func New(cfg config.Config, stores Stores, log *slog.Logger) *Server {
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           Router(cfg, tokens, stores, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Router builds the chi handler tree. Split out from New so tests can mount
// it on httptest servers.
func Router(cfg config.Config, tokens *auth.TokenManager, stores Stores, log *slog.Logger) http.Handler {
	authHandler := handlers.NewAuthHandler(stores.Users, tokens, log)
	donationHandler := handlers.NewDonationHandler(stores.Donations, log)
	health := handlers.NewHealthHandler(time.Now())

	authenticate := middleware.Authenticator(tokens, stores.Users, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", health.Handle)
	r.Post("/auth/login", authHandler.Login)

	// Authenticated-only: the verifier runs, no role gate.
	r.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/auth/profile", authHandler.Profile)
		r.With(middleware.RequireRoles()).Get("/donations", donationHandler.List)
	})

	// Verifier and role gate composed.
	r.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.With(middleware.RequireRoles(models.RoleAdmin)).
			Post("/auth/register", authHandler.Register)
		r.With(middleware.RequireRoles(models.RoleAdmin, models.RoleTreasurer)).
			Post("/donations", donationHandler.Create)
	})

	return r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start).String(),
				"request_id", chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
