// Package google wraps the Admin SDK Directory and Reports APIs used to build
// the workspace access graph.
package google

import (
	"context"
	"fmt"
	"net/http"

	"github.com/brizzai/nicklpass/internal/logger"
	"github.com/brizzai/nicklpass/internal/workspace"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/option"
)

const (
	// DefaultCustomer addresses the account of the authenticated admin.
	DefaultCustomer = "my_customer"

	usersPageSize = 500
)

// Options configure the Admin SDK clients.
type Options struct {
	Customer string
	// Endpoint overrides the API base URL, mostly for tests.
	Endpoint string
	// HTTPClient replaces the token source based client when set.
	HTTPClient *http.Client
	Limiter    *RateLimiter
}

func clientOptions(ts oauth2.TokenSource, opts Options) []option.ClientOption {
	var o []option.ClientOption
	if opts.HTTPClient != nil {
		o = append(o, option.WithHTTPClient(opts.HTTPClient))
	} else {
		o = append(o, option.WithTokenSource(ts))
	}
	if opts.Endpoint != "" {
		o = append(o, option.WithEndpoint(opts.Endpoint))
	}
	return o
}

// DirectoryClient lists users and their third-party tokens. It satisfies
// workspace.DirectoryLister and workspace.GrantLister.
type DirectoryClient struct {
	svc      *admin.Service
	customer string
	limiter  *RateLimiter
}

// NewDirectoryClient creates a Directory API client acting with ts.
func NewDirectoryClient(ctx context.Context, ts oauth2.TokenSource, opts Options) (*DirectoryClient, error) {
	svc, err := admin.NewService(ctx, clientOptions(ts, opts)...)
	if err != nil {
		return nil, fmt.Errorf("create directory service: %w", err)
	}
	customer := opts.Customer
	if customer == "" {
		customer = DefaultCustomer
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(0, 1)
	}
	return &DirectoryClient{svc: svc, customer: customer, limiter: limiter}, nil
}

func (c *DirectoryClient) wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

func (c *DirectoryClient) wrap(err error) error {
	if IsRateLimited(err) {
		c.limiter.Backoff(0)
	}
	return WrapError(err)
}

// ListUsers pages through every user of the customer.
func (c *DirectoryClient) ListUsers(ctx context.Context) ([]workspace.User, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var users []workspace.User
	call := c.svc.Users.List().
		Customer(c.customer).
		MaxResults(usersPageSize).
		OrderBy("email")
	err := call.Pages(ctx, func(page *admin.Users) error {
		for _, u := range page.Users {
			users = append(users, toUser(u))
		}
		if page.NextPageToken != "" {
			return c.wait(ctx)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list users for %s: %w", c.customer, c.wrap(err))
	}

	logger.Debug("Listed directory users", zap.String("customer", c.customer), zap.Int("count", len(users)))
	return users, nil
}

// GetUser fetches one directory record.
func (c *DirectoryClient) GetUser(ctx context.Context, email string) (workspace.User, error) {
	if err := c.wait(ctx); err != nil {
		return workspace.User{}, err
	}
	u, err := c.svc.Users.Get(email).Context(ctx).Do()
	if err != nil {
		return workspace.User{}, fmt.Errorf("get user %s: %w", email, c.wrap(err))
	}
	return toUser(u), nil
}

// IsAdmin reports whether email is a super administrator.
func (c *DirectoryClient) IsAdmin(ctx context.Context, email string) (bool, error) {
	u, err := c.GetUser(ctx, email)
	if err != nil {
		return false, err
	}
	return u.IsAdmin, nil
}

// ListGrants returns the third-party OAuth tokens issued to email.
func (c *DirectoryClient) ListGrants(ctx context.Context, email string) ([]workspace.Grant, error) {
	tokens, err := c.RawTokens(ctx, email)
	if err != nil {
		return nil, err
	}
	grants := make([]workspace.Grant, 0, len(tokens.Items))
	for _, t := range tokens.Items {
		grants = append(grants, toGrant(t))
	}
	return grants, nil
}

// RawTokens returns the Directory API response unchanged.
func (c *DirectoryClient) RawTokens(ctx context.Context, email string) (*admin.Tokens, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	tokens, err := c.svc.Tokens.List(email).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list tokens for %s: %w", email, c.wrap(err))
	}
	return tokens, nil
}

func toUser(u *admin.User) workspace.User {
	return workspace.User{
		Email:         u.PrimaryEmail,
		LastLoginTime: normalizeLastLogin(u.LastLoginTime),
		IsAdmin:       u.IsAdmin,
		Suspended:     u.Suspended,
	}
}

// neverLoggedIn is what the Directory API reports for users that never
// signed in.
const neverLoggedIn = "1970-01-01T00:00:00.000Z"

func normalizeLastLogin(ts string) string {
	if ts == neverLoggedIn {
		return ""
	}
	return ts
}

func toGrant(t *admin.Token) workspace.Grant {
	return workspace.Grant{
		ClientID:    t.ClientId,
		DisplayText: t.DisplayText,
		Scopes:      t.Scopes,
		Anonymous:   t.Anonymous,
		NativeApp:   t.NativeApp,
		UserKey:     t.UserKey,
	}
}
