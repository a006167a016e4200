package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brizzai/nicklpass/internal/config"
	"github.com/brizzai/nicklpass/internal/google"
	"github.com/brizzai/nicklpass/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newGoogleAPI(t *testing.T, listCalls *atomic.Int32) google.Options {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}
	mux.HandleFunc("/admin/directory/v1/users", func(w http.ResponseWriter, r *http.Request) {
		listCalls.Add(1)
		reply(w, map[string]any{"users": []map[string]any{
			{"primaryEmail": "alice@acme.test", "lastLoginTime": "2026-10-15T09:00:00.000Z"},
		}})
	})
	mux.HandleFunc("/admin/directory/v1/users/alice@acme.test/tokens", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"items": []map[string]any{
			{"clientId": "123.apps", "displayText": "Notion"},
			{"clientId": "999.apps", "displayText": "Google Drive for desktop"},
		}})
	})
	mux.HandleFunc("/admin/reports/v1/activity/users/alice@acme.test/applications/login", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"items": []map[string]any{{
			"id":     map[string]any{"time": "2026-10-16T08:00:00.000Z"},
			"events": []map[string]any{{"name": "oauth_authorization", "parameters": []map[string]any{{"name": "client_id", "value": "123.apps"}}}},
		}}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return google.Options{Endpoint: srv.URL + "/", HTTPClient: srv.Client()}
}

func TestGoogleWorkspace_GraphIsCachedPerDomain(t *testing.T) {
	var listCalls atomic.Int32
	clients := google.NewFactory(newGoogleAPI(t, &listCalls))
	ws := NewGoogleWorkspace(config.WorkspaceConfig{CacheTTL: time.Minute}, stubProvider{}, nil, clients, nil)
	sess := &session.Session{Email: "admin@Acme.test", Token: &oauth2.Token{AccessToken: "at"}}

	g, err := ws.Graph(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@acme.test"}, g.Users)
	assert.Equal(t, []string{"123.apps"}, g.Apps)

	_, err = ws.Graph(context.Background(), &session.Session{Email: "other@acme.test", Token: sess.Token})
	require.NoError(t, err)
	assert.Equal(t, int32(1), listCalls.Load())

	_, err = ws.Graph(context.Background(), &session.Session{Email: "admin@globex.test", Token: sess.Token})
	require.NoError(t, err)
	assert.Equal(t, int32(2), listCalls.Load())

	assert.Equal(t, "my_customer/acme.test", ws.cacheKey(sess))
}

func TestGoogleWorkspace_AuditAndRawTokens(t *testing.T) {
	var listCalls atomic.Int32
	ws := NewGoogleWorkspace(config.WorkspaceConfig{AuditLookback: 24 * time.Hour}, stubProvider{}, nil, google.NewFactory(newGoogleAPI(t, &listCalls)), nil)
	sess := &session.Session{Email: "admin@acme.test", Token: &oauth2.Token{AccessToken: "at"}}

	logins, err := ws.InteractiveLogins(context.Background(), sess, "alice@acme.test")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC), logins["123.apps"])

	tokens, err := ws.RawTokens(context.Background(), sess, "alice@acme.test")
	require.NoError(t, err)
	assert.Len(t, tokens.Items, 2)
}

func TestNewGoogleWorkspace_Policy(t *testing.T) {
	ws := NewGoogleWorkspace(config.WorkspaceConfig{OnUserError: config.UserErrorAbort, UserTimeout: time.Second}, stubProvider{}, nil, google.NewFactory(google.Options{}), nil)
	assert.Equal(t, time.Second, ws.opts.UserTimeout)
	assert.NotEqual(t, ws.opts.Policy, NewGoogleWorkspace(config.WorkspaceConfig{}, stubProvider{}, nil, google.NewFactory(google.Options{}), nil).opts.Policy)
}

type refreshingProvider struct {
	stubProvider
	refreshes *atomic.Int32
}

func (p refreshingProvider) TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(token, tokenFunc(func() (*oauth2.Token, error) {
		p.refreshes.Add(1)
		return &oauth2.Token{AccessToken: "refreshed", Expiry: time.Now().Add(time.Hour)}, nil
	}))
}

type tokenFunc func() (*oauth2.Token, error)

func (f tokenFunc) Token() (*oauth2.Token, error) { return f() }

func TestGoogleWorkspace_SavesRefreshedToken(t *testing.T) {
	var refreshes atomic.Int32
	store := session.NewMemoryStore()
	ws := NewGoogleWorkspace(config.WorkspaceConfig{}, refreshingProvider{refreshes: &refreshes}, store, google.NewFactory(google.Options{}), nil)

	sess := session.New("admin@acme.test", true, &oauth2.Token{AccessToken: "stale", Expiry: time.Now().Add(-time.Minute)}, time.Hour)
	require.NoError(t, store.Save(context.Background(), sess))

	tok, err := ws.tokenSource(context.Background(), sess).Token()
	require.NoError(t, err)
	assert.Equal(t, "refreshed", tok.AccessToken)
	assert.Equal(t, "stale", sess.Token.AccessToken)

	stored, err := store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "refreshed", stored.Token.AccessToken)

	// the next request loads the refreshed token and does not refresh again
	tok, err = ws.tokenSource(context.Background(), stored).Token()
	require.NoError(t, err)
	assert.Equal(t, "refreshed", tok.AccessToken)
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestGoogleWorkspace_ValidTokenIsNotSaved(t *testing.T) {
	var refreshes atomic.Int32
	store := session.NewMemoryStore()
	ws := NewGoogleWorkspace(config.WorkspaceConfig{}, refreshingProvider{refreshes: &refreshes}, store, google.NewFactory(google.Options{}), nil)

	sess := session.New("admin@acme.test", true, &oauth2.Token{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)}, time.Hour)
	tok, err := ws.tokenSource(context.Background(), sess).Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.Zero(t, refreshes.Load())

	_, err = store.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}
