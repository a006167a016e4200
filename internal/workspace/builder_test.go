package workspace

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	users []User
	err   error
}

func (f *fakeDirectory) ListUsers(ctx context.Context) ([]User, error) {
	return f.users, f.err
}

type fakeGrants struct {
	grants map[string][]Grant
	errs   map[string]error
	delay  map[string]time.Duration
	calls  []string
}

func (f *fakeGrants) ListGrants(ctx context.Context, email string) ([]Grant, error) {
	f.calls = append(f.calls, email)
	if d := f.delay[email]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.errs[email]; err != nil {
		return nil, err
	}
	return f.grants[email], nil
}

func TestBuilder_BuildSequential(t *testing.T) {
	dir := &fakeDirectory{users: []User{{Email: "a"}, {Email: "b"}}}
	grants := &fakeGrants{grants: map[string][]Grant{
		"a": {{ClientID: "c1", DisplayText: "Linear"}},
		"b": {{ClientID: "c1", DisplayText: "Linear"}, {ClientID: "c2", DisplayText: "Google Sheets add-on"}},
	}}

	g, err := NewBuilder(dir, grants, BuilderOptions{}).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, grants.calls)
	app, ok := g.App("c1")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, app.Users)
	_, ok = g.App("c2")
	assert.False(t, ok)
}

func TestBuilder_DirectoryFailure(t *testing.T) {
	dirErr := errors.New("directory down")
	_, err := NewBuilder(&fakeDirectory{err: dirErr}, &fakeGrants{}, BuilderOptions{}).Build(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, dirErr)
	assert.Contains(t, err.Error(), "list users")
}

func TestBuilder_UserTimeoutIsSkipped(t *testing.T) {
	dir := &fakeDirectory{users: []User{{Email: "slow"}, {Email: "fast"}}}
	grants := &fakeGrants{
		grants: map[string][]Grant{"fast": {{ClientID: "c1", DisplayText: "Miro"}}},
		delay:  map[string]time.Duration{"slow": time.Second},
	}

	g, err := NewBuilder(dir, grants, BuilderOptions{UserTimeout: 20 * time.Millisecond}).Build(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, g.FailureFor("slow"), context.DeadlineExceeded)
	assert.Equal(t, []string{"fast"}, g.Users)
}

func TestBuilder_DeadlineAbortsRemainingUsers(t *testing.T) {
	dir := &fakeDirectory{users: []User{{Email: "a"}, {Email: "b"}, {Email: "c"}}}
	grants := &fakeGrants{delay: map[string]time.Duration{"a": time.Second}}

	_, err := NewBuilder(dir, grants, BuilderOptions{Deadline: 20 * time.Millisecond}).Build(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"a"}, grants.calls)
}

func TestBuilder_AbortPolicy(t *testing.T) {
	dir := &fakeDirectory{users: []User{{Email: "a"}, {Email: "b"}}}
	grants := &fakeGrants{errs: map[string]error{"a": errors.New("403")}}

	_, err := NewBuilder(dir, grants, BuilderOptions{Policy: AbortOnUserError}).Build(context.Background())
	var ue *UserError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "a", ue.Email)
	assert.Equal(t, []string{"a"}, grants.calls)
}

func TestCache_ReusesGraphWithinTTL(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	var builds int32
	build := func(context.Context) (*Graph, error) {
		atomic.AddInt32(&builds, 1)
		return newGraph(), nil
	}

	g1, err := c.Get(context.Background(), "org", build)
	require.NoError(t, err)
	g2, err := c.Get(context.Background(), "org", build)
	require.NoError(t, err)
	assert.Same(t, g1, g2)
	assert.EqualValues(t, 1, builds)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(context.Background(), "org", build)
	require.NoError(t, err)
	assert.EqualValues(t, 2, builds)

	c.Invalidate("org")
	_, err = c.Get(context.Background(), "org", build)
	require.NoError(t, err)
	assert.EqualValues(t, 3, builds)
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	c := NewCache(time.Minute)
	fail := true
	build := func(context.Context) (*Graph, error) {
		if fail {
			return nil, errors.New("nope")
		}
		return newGraph(), nil
	}

	_, err := c.Get(context.Background(), "org", build)
	require.Error(t, err)
	fail = false
	g, err := c.Get(context.Background(), "org", build)
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestCache_DisabledAlwaysBuilds(t *testing.T) {
	c := NewCache(0)
	var builds int
	build := func(context.Context) (*Graph, error) {
		builds++
		return newGraph(), nil
	}
	_, _ = c.Get(context.Background(), "org", build)
	_, _ = c.Get(context.Background(), "org", build)
	assert.Equal(t, 2, builds)
}

func TestCache_ConcurrentMissesShareOneBuild(t *testing.T) {
	c := NewCache(time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})

	var builds int32
	build := func(context.Context) (*Graph, error) {
		if atomic.AddInt32(&builds, 1) == 1 {
			close(started)
		}
		<-release
		return newGraph(), nil
	}

	const callers = 8
	graphs := make([]*Graph, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			graphs[i], errs[i] = c.Get(context.Background(), "org", build)
		}(i)
	}

	<-started
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&builds))
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, graphs[0], graphs[i])
	}
}

func TestCache_CancelledCallerLeavesSharedBuildRunning(t *testing.T) {
	c := NewCache(time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})

	var builds int32
	build := func(ctx context.Context) (*Graph, error) {
		if atomic.AddInt32(&builds, 1) == 1 {
			close(started)
		}
		select {
		case <-release:
			return newGraph(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Get(first, "org", build)
		firstErr <- err
	}()
	<-started

	type result struct {
		graph *Graph
		err   error
	}
	second := make(chan result, 1)
	go func() {
		g, err := c.Get(context.Background(), "org", build)
		second <- result{g, err}
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	res := <-second
	require.NoError(t, res.err)
	assert.NotNil(t, res.graph)
	assert.EqualValues(t, 1, atomic.LoadInt32(&builds))

	g, err := c.Get(context.Background(), "org", build)
	require.NoError(t, err)
	assert.Same(t, res.graph, g)
}
