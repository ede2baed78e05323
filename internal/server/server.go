package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/hongminglow/anonboard/internal/auth"
	"github.com/hongminglow/anonboard/internal/config"
	"github.com/hongminglow/anonboard/internal/http/handlers"
	"github.com/hongminglow/anonboard/internal/http/respond"
	"github.com/hongminglow/anonboard/internal/middleware"
	"github.com/hongminglow/anonboard/internal/storage"
)

// Server wraps an http.Server with the dev stub's routes.
type Server struct {
	inner *http.Server
}

// Handler builds the routed, middleware-wrapped handler. Tests mount it on
// httptest servers directly.
func Handler(cfg config.ServerConfig, store storage.AccountStore, logger *slog.Logger, opts ...handlers.Option) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	router := mux.NewRouter()
	health := handlers.NewHealthHandler(time.Now())
	health.Register(router)

	api := router.PathPrefix("/api").Subrouter()
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	authHandler := handlers.NewAuthHandler(store, tokenManager, opts...)
	authHandler.Register(api)
	authHandler.RegisterAdmin(api)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return middleware.CORS(cfg.CORSOrigins, middleware.Logging(logger, router))
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.ServerConfig, store storage.AccountStore, logger *slog.Logger, opts ...handlers.Option) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           Handler(cfg, store, logger, opts...),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
