package providers

import (
	"context"

	"github.com/brizzai/nicklpass/internal/auth/models"
	"golang.org/x/oauth2"
)

// Provider defines the OAuth identity provider used to sign admins in
type Provider interface {
	// AuthURL returns the consent page URL carrying state
	AuthURL(state string) string

	// Exchange exchanges an authorization code for tokens
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// Identify verifies the ID token in token and returns the account
	Identify(ctx context.Context, token *oauth2.Token) (*models.UserInfo, error)

	// TokenSource returns a source that refreshes token when it expires
	TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource
}
