package workspace

import (
	"context"
	"fmt"
	"time"

	"github.com/brizzai/nicklpass/internal/logger"
	"go.uber.org/zap"
)

// BuilderOptions tune a Builder. Zero durations disable the matching limit.
type BuilderOptions struct {
	Policy      Policy
	UserTimeout time.Duration
	Deadline    time.Duration
	Matcher     *Matcher
}

// Builder fetches users and grants through the collaborators and aggregates
// them. Calls are issued strictly in sequence.
type Builder struct {
	directory DirectoryLister
	grants    GrantLister
	opts      BuilderOptions
}

func NewBuilder(directory DirectoryLister, grants GrantLister, opts BuilderOptions) *Builder {
	if opts.Matcher == nil {
		opts.Matcher = NewMatcher(nil)
	}
	return &Builder{directory: directory, grants: grants, opts: opts}
}

// Build lists every user and their grants and returns the filtered graph.
func (b *Builder) Build(ctx context.Context) (*Graph, error) {
	if b.opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.Deadline)
		defer cancel()
	}

	start := time.Now()
	users, err := b.directory.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	g, err := Aggregate(users, func(u User) ([]Grant, error) {
		return b.userGrants(ctx, u.Email)
	}, b.opts.Policy, b.opts.Matcher)
	if err != nil {
		return nil, err
	}

	for _, ue := range g.Errors {
		logger.Warn("Skipped user after grant lookup failed",
			zap.String("email", ue.Email),
			zap.Error(ue.Err),
		)
	}
	logger.Info("Built workspace graph",
		zap.Int("users", len(g.Users)),
		zap.Int("apps", len(g.Apps)),
		zap.Int("failed_users", len(g.Errors)),
		zap.Duration("duration", time.Since(start)),
	)
	return g, nil
}

// userGrants applies the per-user timeout. Once the request context itself
// is done the failure is fatal, so the remaining users are not attempted.
func (b *Builder) userGrants(ctx context.Context, email string) ([]Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, Fatal(err)
	}
	userCtx := ctx
	if b.opts.UserTimeout > 0 {
		var cancel context.CancelFunc
		userCtx, cancel = context.WithTimeout(ctx, b.opts.UserTimeout)
		defer cancel()
	}
	grants, err := b.grants.ListGrants(userCtx, email)
	if err != nil && ctx.Err() != nil {
		return nil, Fatal(err)
	}
	return grants, err
}
