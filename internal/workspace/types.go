// Package workspace builds the organization's third-party access graph from
// Google Workspace directory users and their OAuth grants.
package workspace

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingEmail is returned when a directory record has no primary email.
var ErrMissingEmail = errors.New("workspace: user record has no email")

// User is a directory record. Email is the identity key.
type User struct {
	Email         string
	LastLoginTime string // RFC 3339, empty when the user never signed in
	IsAdmin       bool
	Suspended     bool
}

// Grant is a third-party OAuth token issued to one user for one client.
type Grant struct {
	ClientID    string   `json:"clientId"`
	DisplayText string   `json:"displayText"`
	Scopes      []string `json:"scopes"`
	Anonymous   bool     `json:"anonymous"`
	NativeApp   bool     `json:"nativeApp"`
	UserKey     string   `json:"userKey,omitempty"`
}

// Name returns the display text, or fallback when it is empty.
func (g Grant) Name(fallback string) string {
	if g.DisplayText == "" {
		return fallback
	}
	return g.DisplayText
}

// AppAggregate collects every user holding a grant for one client id.
type AppAggregate struct {
	ClientID    string
	DisplayName string
	// Users is in processing order and is not de-duplicated.
	Users []string
	// AltNames holds display names seen for this client after the first one.
	AltNames []string
}

// UserError records a grant lookup failure for one user.
type UserError struct {
	Email string
	Err   error
}

func (e *UserError) Error() string {
	return fmt.Sprintf("list grants for %s: %v", e.Email, e.Err)
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// DirectoryLister returns every user of the organization.
type DirectoryLister interface {
	ListUsers(ctx context.Context) ([]User, error)
}

// GrantLister returns the third-party grants held by one user.
type GrantLister interface {
	ListGrants(ctx context.Context, email string) ([]Grant, error)
}
