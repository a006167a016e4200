// Package session keeps signed-in administrators between requests.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// DefaultTTL applies when a store is created without a lifetime.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Session is the server-side state behind the session cookie.
type Session struct {
	ID      string
	Email   string
	IsAdmin bool
	Token   *oauth2.Token

	// Plaid item linked during this session, if any.
	PlaidAccessToken string
	PlaidItemID      string

	CreatedAt time.Time
	ExpiresAt time.Time
}

// New creates a session for email valid for ttl from now.
func New(email string, isAdmin bool, token *oauth2.Token, ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Email:     email,
		IsAdmin:   isAdmin,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// PlaidLinked reports whether a bank item is connected.
func (s *Session) PlaidLinked() bool {
	return s.PlaidAccessToken != ""
}

// Store persists sessions.
type Store interface {
	// Get returns ErrNotFound for unknown and expired sessions.
	Get(ctx context.Context, id string) (*Session, error)
	// Save inserts or replaces the session.
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes sessions expired at now and returns how many.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	Close() error
}
