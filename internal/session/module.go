package session

import (
	"context"
	"fmt"
	"time"

	"github.com/brizzai/nicklpass/internal/config"
	"github.com/brizzai/nicklpass/internal/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sweepInterval = 10 * time.Minute

// Open returns the store selected by cfg.
func Open(cfg config.SessionConfig) (Store, error) {
	switch cfg.Store {
	case config.SessionStoreSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case config.SessionStoreMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported session store %q", cfg.Store)
	}
}

// Sweep deletes expired sessions every interval until ctx is done.
func Sweep(ctx context.Context, store Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := store.DeleteExpired(ctx, now)
			if err != nil {
				logger.Warn("Failed to delete expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("Deleted expired sessions", zap.Int("count", n))
			}
		}
	}
}

func provideStore(cfg *config.Config, lc fx.Lifecycle) (Store, error) {
	store, err := Open(cfg.Session)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go Sweep(ctx, store, sweepInterval)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return store.Close()
		},
	})
	return store, nil
}

var Module = fx.Module("session", fx.Provide(provideStore))
