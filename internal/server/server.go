// Package server serves the dashboard pages, the Plaid endpoints and the
// debug API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/brizzai/nicklpass/internal/auth"
	"github.com/brizzai/nicklpass/internal/auth/constants"
	"github.com/brizzai/nicklpass/internal/config"
	"github.com/brizzai/nicklpass/internal/logger"
	"github.com/brizzai/nicklpass/internal/session"
	"github.com/brizzai/nicklpass/internal/spend"
	"github.com/brizzai/nicklpass/internal/web"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second

	// recentTransactions caps the full transaction list on the spend page
	recentTransactions = 50
)

// Server wires the sign-in flow, the pages and the JSON endpoints onto one
// router.
type Server struct {
	config     *config.Config
	auth       *auth.Service
	store      session.Store
	pages      *web.Renderer
	workspace  Workspace
	bank       Bank
	classifier *spend.Classifier
	router     chi.Router
	now        func() time.Time
}

// NewServer creates the server and registers every route.
func NewServer(cfg *config.Config, authSvc *auth.Service, store session.Store, pages *web.Renderer, ws Workspace, bank Bank, classifier *spend.Classifier) *Server {
	s := &Server{
		config:     cfg,
		auth:       authSvc,
		store:      store,
		pages:      pages,
		workspace:  ws,
		bank:       bank,
		classifier: classifier,
		now:        time.Now,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.pages.NotFound(w, "Page Not Found", "Nothing lives at "+r.URL.Path+".", constants.HomePath)
	})

	r.Get(constants.HomePath, s.handleHome)
	r.Get(constants.NotAdminPath, s.handleNotAdmin)
	r.Get("/health", s.handleHealth)
	r.Handle("/static/*", web.Static())
	s.auth.RegisterRoutes(r)
	logger.Info("Registered authentication routes")

	r.Group(func(r chi.Router) {
		r.Use(s.auth.RequireSession(), s.auth.RequireAdmin())

		r.Get(constants.UsersPath, s.handleUsers)
		r.Get(constants.UsersPath+"/{email}", s.handleUser)
		r.Get("/apps", s.handleApps)
		r.Get("/apps/{clientID}", s.handleApp)

		r.Get("/spend", s.handleSpend)
		r.Get("/spend/transactions", s.handleTransactions)
		r.Get("/plaid/create-link-token", s.handleCreateLinkToken)
		r.Post("/plaid/exchange-token", s.handleExchangeToken)
		r.Get("/plaid/disconnect", s.handleDisconnect)

		r.Get("/debug/tokens/{email}", s.handleDebugTokens)
		r.Get("/debug/audit/{email}", s.handleDebugAudit)
		r.Get("/debug/plaid-status", s.handlePlaidStatus)
	})
	return r
}

// Handler returns the router with every route registered.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Server.Addr()
	server := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.Server.ReadTimeout,
	}

	// Channel for server errors
	errChan := make(chan error, 1)

	go func() {
		logger.Info("Starting server",
			zap.String("address", addr),
			zap.String("version", config.GetVersionInfo()),
		)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		timeout := s.config.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = shutdownTimeout
		}
		logger.Info("Shutting down server", zap.Duration("timeout", timeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}
