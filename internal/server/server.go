// Package server wires storage, services and handlers into an HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/stockbook/internal/auth"
	"github.com/sakif/stockbook/internal/config"
	"github.com/sakif/stockbook/internal/handler"
	"github.com/sakif/stockbook/internal/middleware"
	"github.com/sakif/stockbook/internal/repository"
	"github.com/sakif/stockbook/internal/repository/jsonfile"
	"github.com/sakif/stockbook/internal/repository/sqlite"
	"github.com/sakif/stockbook/internal/service"
)

// Server owns the router and the storage backend.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  *repository.Store
	tokens *auth.TokenService // nil without JWT_SECRET
	close  func() error
}

// New opens the configured storage backend and builds the routes.
// The caller must call Close (Start does it on return).
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		close:  func() error { return nil },
	}

	switch cfg.StorageDriver {
	case config.DriverSQLite:
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		s.store = db.Store()
		s.close = db.Close
	default:
		store, err := jsonfile.New(cfg.DataDir, logger)
		if err != nil {
			return nil, fmt.Errorf("opening data directory: %w", err)
		}
		s.store = store
	}

	if cfg.JWTSecret != "" {
		tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("creating token service: %w", err)
		}
		s.tokens = tokens
	}
	if cfg.AuthRequired && s.tokens == nil {
		s.close()
		return nil, errors.New("authentication required but no JWT secret configured")
	}

	if err := s.setupRoutes(); err != nil {
		s.close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(middleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	products := service.NewProductService(s.store, s.config.LowStockThreshold, s.logger)
	categories := service.NewCategoryService(s.store, s.logger)
	users := service.NewUserService(s.store, auth.NewPasswordService(), s.tokens, s.logger)
	invoices := service.NewInvoiceService(s.store, s.logger)
	dashboard := service.NewDashboardService(s.store, s.config.LowStockThreshold, s.logger)

	productHandler := handler.NewProductHandler(products, dashboard, s.logger)
	categoryHandler := handler.NewCategoryHandler(categories, s.logger)
	userHandler := handler.NewUserHandler(users, s.config.TokenTTL, s.logger)
	invoiceHandler := handler.NewInvoiceHandler(invoices, s.logger)
	dashboardHandler := handler.NewDashboardHandler(dashboard, s.logger)

	frontend, err := handler.NewFrontendHandler(s.config.StaticDir, s.logger)
	if err != nil {
		return fmt.Errorf("creating frontend handler: %w", err)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"route not found"}` + "\n"))
		})

		r.Get("/test", handler.HandleTest)

		r.Get("/register", userHandler.HandleRegisterInfo)
		r.Post("/register", userHandler.HandleRegister)
		r.Get("/login", userHandler.HandleLoginInfo)
		r.Post("/login", userHandler.HandleLogin)
		r.Post("/logout", userHandler.HandleLogout)

		r.Get("/products", productHandler.HandleList)
		r.Get("/products/low-stock", productHandler.HandleLowStock)
		r.Get("/products/{id}", productHandler.HandleGet)
		r.Get("/categories", categoryHandler.HandleList)
		r.Get("/invoices", invoiceHandler.HandleList)
		r.Get("/invoices/{id}", invoiceHandler.HandleGet)
		r.Get("/dashboard/stats", dashboardHandler.HandleStats)

		// Writes. Guarded when AUTH_REQUIRED is set.
		r.Group(func(r chi.Router) {
			switch {
			case s.config.AuthRequired:
				r.Use(auth.RequireAuth(s.tokens))
			case s.tokens != nil:
				r.Use(auth.OptionalAuth(s.tokens))
			}

			r.Post("/products", productHandler.HandleCreate)
			r.Put("/products/{id}", productHandler.HandleUpdate)
			r.Delete("/products/{id}", productHandler.HandleDelete)

			r.Post("/categories", categoryHandler.HandleCreate)
			r.Put("/categories/{id}", categoryHandler.HandleUpdate)
			r.Delete("/categories/{id}", categoryHandler.HandleDelete)

			r.Post("/invoices", invoiceHandler.HandleCreate)
		})
	})

	s.router.Get("/*", frontend.HandleApp)
	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the storage backend.
func (s *Server) Close() error {
	return s.close()
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("storage", s.config.StorageDriver),
			slog.Bool("auth_required", s.config.AuthRequired),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
