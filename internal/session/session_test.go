package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/brizzai/nicklpass/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestNew(t *testing.T) {
	tok := &oauth2.Token{AccessToken: "at"}
	s := New("admin@acme.test", true, tok, 0)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, DefaultTTL, s.ExpiresAt.Sub(s.CreatedAt))
	assert.False(t, s.Expired(time.Now()))
	assert.True(t, s.Expired(s.ExpiresAt))
	assert.False(t, s.PlaidLinked())

	other := New("admin@acme.test", true, tok, time.Hour)
	assert.NotEqual(t, s.ID, other.ID)
}

func TestStore_SaveGetDelete(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			expiry := time.Now().Add(time.Hour).Truncate(time.Second)
			s := New("admin@acme.test", true, &oauth2.Token{
				AccessToken:  "at",
				RefreshToken: "rt",
				TokenType:    "Bearer",
				Expiry:       expiry,
			}, time.Hour)

			require.NoError(t, store.Save(ctx, s))

			got, err := store.Get(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, "admin@acme.test", got.Email)
			assert.True(t, got.IsAdmin)
			require.NotNil(t, got.Token)
			assert.Equal(t, "rt", got.Token.RefreshToken)
			assert.True(t, expiry.Equal(got.Token.Expiry))

			got.PlaidAccessToken = "access-sandbox-1"
			got.PlaidItemID = "item-1"
			require.NoError(t, store.Save(ctx, got))

			again, err := store.Get(ctx, s.ID)
			require.NoError(t, err)
			assert.True(t, again.PlaidLinked())
			assert.Equal(t, "item-1", again.PlaidItemID)

			require.NoError(t, store.Delete(ctx, s.ID))
			_, err = store.Get(ctx, s.ID)
			assert.ErrorIs(t, err, ErrNotFound)

			assert.NoError(t, store.Delete(ctx, "unknown"))
		})
	}
}

func TestStore_Expired(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			old := New("old@acme.test", false, nil, time.Hour)
			old.CreatedAt = time.Now().Add(-2 * time.Hour)
			old.ExpiresAt = time.Now().Add(-time.Hour)
			fresh := New("fresh@acme.test", false, nil, time.Hour)

			require.NoError(t, store.Save(ctx, old))
			require.NoError(t, store.Save(ctx, fresh))

			_, err := store.Get(ctx, old.ID)
			assert.ErrorIs(t, err, ErrNotFound)

			n, err := store.DeleteExpired(ctx, time.Now())
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			got, err := store.Get(ctx, fresh.ID)
			require.NoError(t, err)
			assert.Nil(t, got.Token)
		})
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	s := New("admin@acme.test", true, nil, time.Hour)
	require.NoError(t, store.Save(ctx, s))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Email, got.Email)
}

func TestSQLiteStore_RequiresPath(t *testing.T) {
	_, err := NewSQLiteStore("")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	store, err := Open(config.SessionConfig{Store: config.SessionStoreMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = Open(config.SessionConfig{Store: config.SessionStoreSQLite, SQLitePath: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open(config.SessionConfig{Store: "redis"})
	assert.Error(t, err)
}

func TestSweep(t *testing.T) {
	store := NewMemoryStore()
	expired := New("old@acme.test", false, nil, time.Hour)
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Save(context.Background(), expired))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Sweep(ctx, store, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		store.mu.RLock()
		defer store.mu.RUnlock()
		return len(store.sessions) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
