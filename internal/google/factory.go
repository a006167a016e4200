package google

import (
	"context"

	"github.com/brizzai/nicklpass/internal/config"
	"github.com/brizzai/nicklpass/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Factory builds Admin SDK clients for the signed-in admin's token source.
// Every client shares one RateLimiter since quotas are per customer.
type Factory struct {
	opts Options
}

// NewFactory returns a factory creating clients with opts. A nil limiter is
// replaced by an unthrottled one.
func NewFactory(opts Options) *Factory {
	if opts.Limiter == nil {
		opts.Limiter = NewRateLimiter(0, 1)
	}
	return &Factory{opts: opts}
}

// Customer returns the customer the directory clients list.
func (f *Factory) Customer() string {
	if f.opts.Customer == "" {
		return DefaultCustomer
	}
	return f.opts.Customer
}

func (f *Factory) Directory(ctx context.Context, ts oauth2.TokenSource) (*DirectoryClient, error) {
	return NewDirectoryClient(ctx, ts, f.opts)
}

func (f *Factory) Reports(ctx context.Context, ts oauth2.TokenSource) (*ReportsClient, error) {
	return NewReportsClient(ctx, ts, f.opts)
}

// IsAdmin looks email up with ts and reports its administrator flag.
func (f *Factory) IsAdmin(ctx context.Context, ts oauth2.TokenSource, email string) (bool, error) {
	dir, err := f.Directory(ctx, ts)
	if err != nil {
		return false, err
	}
	return dir.IsAdmin(ctx, email)
}

func provideFactory(cfg *config.Config) *Factory {
	logger.Debug("Admin SDK throttling",
		zap.Float64("requests_per_second", cfg.Google.RequestsPerSecond),
		zap.Int("burst", cfg.Google.Burst),
	)
	return NewFactory(Options{
		Customer: cfg.Workspace.Customer,
		Endpoint: cfg.Google.Endpoint,
		Limiter:  NewRateLimiter(cfg.Google.RequestsPerSecond, cfg.Google.Burst),
	})
}

// Module provides the Admin SDK client factory
var Module = fx.Module("google", fx.Provide(provideFactory))
