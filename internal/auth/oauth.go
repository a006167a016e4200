package auth

import (
	"context"
	"net/http"

	"github.com/brizzai/nicklpass/internal/auth/constants"
	"github.com/brizzai/nicklpass/internal/auth/handlers"
	"github.com/brizzai/nicklpass/internal/auth/middleware"
	"github.com/brizzai/nicklpass/internal/auth/providers"
	"github.com/brizzai/nicklpass/internal/config"
	"github.com/brizzai/nicklpass/internal/session"
	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
)

// Service represents the Google sign-in service
type Service struct {
	config       config.SessionConfig
	authProvider providers.Provider
	store        session.Store
	handler      *handlers.Handler
}

// NewService creates a new sign-in service
func NewService(cfg config.SessionConfig, provider providers.Provider, store session.Store, admins handlers.AdminChecker, onError handlers.ErrorFunc) *Service {
	return &Service{
		config:       cfg,
		authProvider: provider,
		store:        store,
		handler:      handlers.NewHandler(cfg, provider, store, admins, onError),
	}
}

// RegisterRoutes registers the sign-in routes
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get(constants.LoginPath, s.handler.HandleLogin)
	r.Get(constants.CallbackPath, s.handler.HandleCallback)
	r.Get(constants.LogoutPath, s.handler.HandleLogout)
}

// RequireSession returns the middleware loading the signed-in session
func (s *Service) RequireSession() func(http.Handler) http.Handler {
	return middleware.RequireSession(s.store, s.config.CookieName)
}

// RequireAdmin returns the middleware rejecting non-admin sessions
func (s *Service) RequireAdmin() func(http.Handler) http.Handler {
	return middleware.RequireAdmin
}

// GetProvider returns the configured auth provider
func (s *Service) GetProvider() providers.Provider {
	return s.authProvider
}

func provideProvider(cfg *config.Config) (providers.Provider, error) {
	return providers.NewGoogleProvider(context.Background(), cfg.Google)
}

func provideService(cfg *config.Config, provider providers.Provider, store session.Store, admins handlers.AdminChecker, onError handlers.ErrorFunc) *Service {
	return NewService(cfg.Session, provider, store, admins, onError)
}

var Module = fx.Module("auth",
	fx.Provide(provideProvider, provideService),
)
