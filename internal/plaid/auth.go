package plaid

import (
	"errors"

	plaidgo "github.com/plaid/plaid-go/v20/plaid"
)

const (
	clientIDHeader = "PLAID-CLIENT-ID"
	secretHeader   = "PLAID-SECRET"
)

// ErrMissingCredentials is returned when the client id or secret is unset.
var ErrMissingCredentials = errors.New("plaid client id and secret are required")

// AuthManager applies credentials to the SDK configuration
type AuthManager interface {
	ApplyAuth(cfg *plaidgo.Configuration) error
}

// HeaderAuthManager sends the API keys as Plaid's credential headers
type HeaderAuthManager struct {
	clientID string
	secret   string
}

// NewHeaderAuthManager creates a new HeaderAuthManager
func NewHeaderAuthManager(clientID, secret string) *HeaderAuthManager {
	return &HeaderAuthManager{clientID: clientID, secret: secret}
}

// ApplyAuth adds the credential headers to every request made with cfg
func (a *HeaderAuthManager) ApplyAuth(cfg *plaidgo.Configuration) error {
	if a.clientID == "" || a.secret == "" {
		return ErrMissingCredentials
	}
	cfg.AddDefaultHeader(clientIDHeader, a.clientID)
	cfg.AddDefaultHeader(secretHeader, a.secret)
	return nil
}
