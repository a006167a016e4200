package plaid

import (
	"github.com/brizzai/nicklpass/internal/config"
	"go.uber.org/fx"
)

func provideClient(cfg *config.Config, authMgr AuthManager) *Client {
	return NewClient(cfg.Plaid, authMgr)
}

func provideAuthManager(cfg *config.Config) *HeaderAuthManager {
	return NewHeaderAuthManager(cfg.Plaid.ClientID, cfg.Plaid.Secret)
}

// Module provides the Plaid client
var Module = fx.Module("plaid",
	fx.Provide(
		provideClient,
		fx.Annotate(
			provideAuthManager,
			fx.As(new(AuthManager)),
		),
	),
)
