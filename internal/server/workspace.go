package server

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/brizzai/nicklpass/internal/auth/providers"
	"github.com/brizzai/nicklpass/internal/config"
	"github.com/brizzai/nicklpass/internal/google"
	"github.com/brizzai/nicklpass/internal/logger"
	"github.com/brizzai/nicklpass/internal/session"
	"github.com/brizzai/nicklpass/internal/workspace"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	admin "google.golang.org/api/admin/directory/v1"
)

// Workspace reads the organization with the signed-in admin's credentials.
type Workspace interface {
	Graph(ctx context.Context, sess *session.Session) (*workspace.Graph, error)
	InteractiveLogins(ctx context.Context, sess *session.Session, email string) (map[string]time.Time, error)
	RawTokens(ctx context.Context, sess *session.Session, email string) (*admin.Tokens, error)
}

// GoogleWorkspace builds graphs through the Admin SDK.
type GoogleWorkspace struct {
	provider providers.Provider
	store    session.Store
	clients  *google.Factory
	cache    *workspace.Cache
	opts     workspace.BuilderOptions
	lookback time.Duration
}

func NewGoogleWorkspace(cfg config.WorkspaceConfig, provider providers.Provider, store session.Store, clients *google.Factory, matcher *workspace.Matcher) *GoogleWorkspace {
	policy := workspace.SkipFailedUsers
	if cfg.OnUserError == config.UserErrorAbort {
		policy = workspace.AbortOnUserError
	}
	return &GoogleWorkspace{
		provider: provider,
		store:    store,
		clients:  clients,
		cache:    workspace.NewCache(cfg.CacheTTL),
		opts: workspace.BuilderOptions{
			Policy:      policy,
			UserTimeout: cfg.UserTimeout,
			Deadline:    cfg.Deadline,
			Matcher:     matcher,
		},
		lookback: cfg.AuditLookback,
	}
}

// Graph returns the access graph of the admin's organization, from the
// cache when one is configured.
func (g *GoogleWorkspace) Graph(ctx context.Context, sess *session.Session) (*workspace.Graph, error) {
	return g.cache.Get(ctx, g.cacheKey(sess), func(ctx context.Context) (*workspace.Graph, error) {
		dir, err := g.clients.Directory(ctx, g.tokenSource(ctx, sess))
		if err != nil {
			return nil, err
		}
		return workspace.NewBuilder(dir, dir, g.opts).Build(ctx)
	})
}

func (g *GoogleWorkspace) InteractiveLogins(ctx context.Context, sess *session.Session, email string) (map[string]time.Time, error) {
	reports, err := g.clients.Reports(ctx, g.tokenSource(ctx, sess))
	if err != nil {
		return nil, err
	}
	return reports.InteractiveLogins(ctx, email, g.lookback)
}

func (g *GoogleWorkspace) RawTokens(ctx context.Context, sess *session.Session, email string) (*admin.Tokens, error) {
	dir, err := g.clients.Directory(ctx, g.tokenSource(ctx, sess))
	if err != nil {
		return nil, err
	}
	return dir.RawTokens(ctx, email)
}

// tokenSource refreshes the session's Google token when it expires and
// writes the refreshed token back to the store.
func (g *GoogleWorkspace) tokenSource(ctx context.Context, sess *session.Session) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(sess.Token, &persistingTokenSource{
		base:  g.provider.TokenSource(ctx, sess.Token),
		ctx:   context.WithoutCancel(ctx),
		store: g.store,
		sess:  *sess,
	})
}

// persistingTokenSource saves every token that differs from the one the
// session was loaded with. It saves a copy and leaves the caller's session
// untouched.
type persistingTokenSource struct {
	base  oauth2.TokenSource
	ctx   context.Context
	store session.Store

	mu   sync.Mutex
	sess session.Session
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.store == nil || (p.sess.Token != nil && p.sess.Token.AccessToken == tok.AccessToken) {
		return tok, nil
	}
	p.sess.Token = tok
	if err := p.store.Save(p.ctx, &p.sess); err != nil {
		logger.Warn("Failed to save refreshed token", zap.String("email", p.sess.Email), zap.Error(err))
	}
	return tok, nil
}

// cacheKey scopes cached graphs to the customer and the admin's domain, so
// admins of different organizations never share an entry.
func (g *GoogleWorkspace) cacheKey(sess *session.Session) string {
	domain := sess.Email
	if i := strings.LastIndex(domain, "@"); i >= 0 {
		domain = domain[i+1:]
	}
	return g.clients.Customer() + "/" + strings.ToLower(domain)
}
