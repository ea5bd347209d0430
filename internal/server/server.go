package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/tiancizhuang/apiserver/config"
	"github.com/tiancizhuang/apiserver/internal/db"
	"github.com/tiancizhuang/apiserver/internal/handlers"
	"github.com/tiancizhuang/apiserver/internal/metrics"
	"github.com/tiancizhuang/apiserver/internal/mq"
	"github.com/tiancizhuang/apiserver/internal/services"
	"github.com/tiancizhuang/apiserver/internal/session"
	"github.com/tiancizhuang/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     *mq.MQ
}

// New opens the database and broker and constructs a Server with the
// standard middleware chain.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	sessions, err := session.NewManager(session.Options{
		Secret:     cfg.Session.Secret,
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("SESSION_SECRET: %w", err)
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	broker, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	router := NewRouter(cfg, dbConn, broker, sessions)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
	}, nil
}

// NewRouter wires repositories, services and handlers onto a chi router.
// broker may be nil, in which case post events are not published.
func NewRouter(cfg config.Config, dbConn *sql.DB, broker *mq.MQ, sessions *session.Manager) *chi.Mux {
	dialect := store.Dialect(cfg.Database.Driver)
	if dialect == "" {
		dialect = store.DialectPostgres
	}

	userRepo := store.NewUserRepository(dbConn, dialect)
	postRepo := store.NewPostRepository(dbConn, dialect)

	userService := services.NewUserService(userRepo)
	var postOpts []services.PostOption
	if broker != nil {
		postOpts = append(postOpts, services.WithEvents(broker, cfg.MQ.PostEventsChannel))
	}
	postService := services.NewPostService(postRepo, postOpts...)

	httpMetrics := metrics.NewHTTP()

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger,
		middleware.Recoverer,
		httpMetrics.Middleware,
	)
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			AllowCredentials: !slices.Contains(cfg.CORSOrigins, "*"),
			MaxAge:           300,
		}).Handler)
	}
	router.Use(
		middleware.Timeout(60*time.Second),
		handlers.LoadUser(userService, sessions),
	)

	router.Get("/healthz", handlers.Healthz(dbConn))
	router.Handle("/metrics", httpMetrics.Handler())
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, sessions)
	})

	postHandler := handlers.NewPostHandler(postService)
	router.Get("/", postHandler.ListPosts)
	router.Route("/posts", func(r chi.Router) {
		handlers.PostRouter(r, postService, handlers.RequireAuth)
	})

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the broker and database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.broker != nil {
		if closeErr := s.broker.Close(); closeErr != nil {
			slog.Warn("Failed to close message broker", "error", closeErr)
		}
	}
	if s.db != nil {
		if closeErr := s.db.Close(); closeErr != nil {
			slog.Warn("Failed to close database", "error", closeErr)
		}
	}
	return err
}
