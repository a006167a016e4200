package server

import (
	"context"

	"github.com/brizzai/nicklpass/internal/auth/handlers"
	"github.com/brizzai/nicklpass/internal/auth/providers"
	"github.com/brizzai/nicklpass/internal/config"
	"github.com/brizzai/nicklpass/internal/google"
	"github.com/brizzai/nicklpass/internal/logger"
	"github.com/brizzai/nicklpass/internal/plaid"
	"github.com/brizzai/nicklpass/internal/session"
	"github.com/brizzai/nicklpass/internal/web"
	"github.com/brizzai/nicklpass/internal/workspace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func provideWorkspace(cfg *config.Config, provider providers.Provider, store session.Store, clients *google.Factory, matcher *workspace.Matcher) Workspace {
	return NewGoogleWorkspace(cfg.Workspace, provider, store, clients, matcher)
}

func provideBank(client *plaid.Client) Bank {
	return client
}

func provideAdminChecker(clients *google.Factory) handlers.AdminChecker {
	return clients
}

func provideErrorFunc(pages *web.Renderer) handlers.ErrorFunc {
	return pages.Error
}

// registerHooks runs the server for the lifetime of the fx app. A server
// that fails on its own shuts the app down.
func registerHooks(lc fx.Lifecycle, srv *Server, shutdowner fx.Shutdowner) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				err := srv.Start(ctx)
				if err != nil {
					logger.Error("Server stopped", zap.Error(err))
					if shutdownErr := shutdowner.Shutdown(fx.ExitCode(1)); shutdownErr != nil {
						logger.Error("Failed to shut down", zap.Error(shutdownErr))
					}
				}
				done <- err
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case err := <-done:
				return err
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

// Module provides the HTTP server and binds it to the app lifecycle
var Module = fx.Module("server",
	fx.Provide(
		NewServer,
		provideWorkspace,
		provideBank,
		provideAdminChecker,
		provideErrorFunc,
	),
	fx.Invoke(registerHooks),
)
