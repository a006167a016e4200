package workspace

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grantsFrom(m map[string][]Grant) GrantFunc {
	return func(u User) ([]Grant, error) {
		return m[u.Email], nil
	}
}

func TestAggregate_NotionScenario(t *testing.T) {
	notion := Grant{ClientID: "xyz123", DisplayText: "Notion", Scopes: []string{"email"}}
	drive := Grant{ClientID: "drv", DisplayText: "Google Drive"}

	users := []User{{Email: "A"}, {Email: "B"}}
	g, err := Aggregate(users, grantsFrom(map[string][]Grant{
		"A": {notion, drive},
		"B": {notion},
	}), SkipFailedUsers, nil)
	require.NoError(t, err)

	assert.Equal(t, []Grant{notion}, g.UserToApps["A"])
	assert.Equal(t, []Grant{notion}, g.UserToApps["B"])

	want := map[string]*AppAggregate{
		"xyz123": {ClientID: "xyz123", DisplayName: "Notion", Users: []string{"A", "B"}},
	}
	if diff := cmp.Diff(want, g.AppToUsers, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("AppToUsers mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"A", "B"}, g.Users)
	assert.Equal(t, []string{"xyz123"}, g.Apps)
}

func TestAggregate_UserWithoutGrants(t *testing.T) {
	g, err := Aggregate([]User{{Email: "idle@example.com"}}, grantsFrom(nil), SkipFailedUsers, nil)
	require.NoError(t, err)

	apps, ok := g.AppsFor("idle@example.com")
	require.True(t, ok)
	assert.Empty(t, apps)
	assert.NotNil(t, apps)
	assert.Empty(t, g.AppToUsers)
}

func TestAggregate_GoogleKeywordsAreCaseInsensitive(t *testing.T) {
	raw := []Grant{
		{ClientID: "1", DisplayText: "GMAIL for iOS"},
		{ClientID: "2", DisplayText: "My Chrome Extension"},
		{ClientID: "3", DisplayText: "Google Meet"},
		{ClientID: "4", DisplayText: "Slack"},
	}
	g, err := Aggregate([]User{{Email: "u"}}, grantsFrom(map[string][]Grant{"u": raw}), SkipFailedUsers, nil)
	require.NoError(t, err)

	require.Len(t, g.UserToApps["u"], 1)
	assert.Equal(t, "4", g.UserToApps["u"][0].ClientID)
	for _, id := range []string{"1", "2", "3"} {
		_, ok := g.App(id)
		assert.False(t, ok, "client %s should be filtered", id)
	}
}

func TestAggregate_EmptyDisplayNameIsKept(t *testing.T) {
	g, err := Aggregate([]User{{Email: "u"}}, grantsFrom(map[string][]Grant{
		"u": {{ClientID: "anon"}},
	}), SkipFailedUsers, nil)
	require.NoError(t, err)

	app, ok := g.App("anon")
	require.True(t, ok)
	assert.Equal(t, "", app.DisplayName)
	assert.Equal(t, []string{"u"}, app.Users)
}

func TestAggregate_FirstDisplayNameWins(t *testing.T) {
	g, err := Aggregate([]User{{Email: "a"}, {Email: "b"}, {Email: "c"}}, grantsFrom(map[string][]Grant{
		"a": {{ClientID: "c1", DisplayText: "Zoom"}},
		"b": {{ClientID: "c1", DisplayText: "Zoom Workplace App"}},
		"c": {{ClientID: "c1", DisplayText: "Zoom Client"}},
	}), SkipFailedUsers, nil)
	require.NoError(t, err)

	app, _ := g.App("c1")
	assert.Equal(t, "Zoom", app.DisplayName)
	assert.Equal(t, []string{"Zoom Workplace App", "Zoom Client"}, app.AltNames)
	assert.Equal(t, []string{"a", "b", "c"}, app.Users)
}

func TestAggregate_DuplicateGrantsAreNotDeduplicated(t *testing.T) {
	dup := Grant{ClientID: "c1", DisplayText: "Figma"}
	g, err := Aggregate([]User{{Email: "a"}}, grantsFrom(map[string][]Grant{"a": {dup, dup}}), SkipFailedUsers, nil)
	require.NoError(t, err)

	app, _ := g.App("c1")
	assert.Equal(t, []string{"a", "a"}, app.Users)
	assert.Len(t, g.UserToApps["a"], 2)
}

func TestAggregate_UsersCountMatchesDistinctHolders(t *testing.T) {
	users := []User{{Email: "a"}, {Email: "b"}, {Email: "c"}, {Email: "d"}}
	g, err := Aggregate(users, grantsFrom(map[string][]Grant{
		"a": {{ClientID: "slack", DisplayText: "Slack"}, {ClientID: "figma", DisplayText: "Figma"}},
		"b": {{ClientID: "slack", DisplayText: "Slack"}},
		"c": {{ClientID: "slack", DisplayText: "Slack"}, {ClientID: "docs", DisplayText: "Google Docs"}},
	}), SkipFailedUsers, nil)
	require.NoError(t, err)

	slack, _ := g.App("slack")
	figma, _ := g.App("figma")
	assert.Len(t, slack.Users, 3)
	assert.Len(t, figma.Users, 1)

	ranked := g.RankedApps()
	require.Len(t, ranked, 2)
	assert.Equal(t, "slack", ranked[0].ClientID)
	assert.Equal(t, "figma", ranked[1].ClientID)
}

func TestAggregate_SkipPolicyRecordsFailure(t *testing.T) {
	boom := errors.New("backend unavailable")
	g, err := Aggregate([]User{{Email: "a"}, {Email: "b"}}, func(u User) ([]Grant, error) {
		if u.Email == "a" {
			return nil, boom
		}
		return []Grant{{ClientID: "c1", DisplayText: "Asana"}}, nil
	}, SkipFailedUsers, nil)
	require.NoError(t, err)

	_, ok := g.AppsFor("a")
	assert.False(t, ok, "failed user must not look like a user with zero apps")
	assert.ErrorIs(t, g.FailureFor("a"), boom)
	assert.NoError(t, g.FailureFor("b"))
	assert.Equal(t, []string{"b"}, g.Users)
	app, _ := g.App("c1")
	assert.Equal(t, []string{"b"}, app.Users)

	rec, ok := g.User("a")
	assert.True(t, ok, "failed users keep their directory record")
	assert.Equal(t, "a", rec.Email)
}

func TestAggregate_AbortPolicyReturnsUserError(t *testing.T) {
	boom := errors.New("forbidden")
	g, err := Aggregate([]User{{Email: "a"}, {Email: "b"}}, func(u User) ([]Grant, error) {
		if u.Email == "b" {
			return nil, boom
		}
		return nil, nil
	}, AbortOnUserError, nil)
	require.Error(t, err)
	assert.Nil(t, g)

	var ue *UserError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "b", ue.Email)
	assert.ErrorIs(t, err, boom)
}

func TestAggregate_FatalAbortsUnderSkip(t *testing.T) {
	calls := 0
	_, err := Aggregate([]User{{Email: "a"}, {Email: "b"}}, func(u User) ([]Grant, error) {
		calls++
		return nil, Fatal(context.Canceled)
	}, SkipFailedUsers, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestAggregate_MissingEmail(t *testing.T) {
	users := []User{{Email: "a"}, {LastLoginTime: "2026-01-01T00:00:00Z"}, {Email: "b"}}

	g, err := Aggregate(users, grantsFrom(nil), SkipFailedUsers, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, g.Users)
	require.Len(t, g.Errors, 1)
	assert.Empty(t, g.Errors[0].Email)
	assert.ErrorIs(t, g.Errors[0].Err, ErrMissingEmail)
	assert.NotContains(t, g.Directory, "")

	_, err = Aggregate(users, grantsFrom(nil), AbortOnUserError, nil)
	assert.ErrorIs(t, err, ErrMissingEmail)
}

func TestMatcher(t *testing.T) {
	m := NewMatcher([]string{" Notion ", "", "FIGMA"})
	assert.Equal(t, []string{"notion", "figma"}, m.Keywords())
	assert.True(t, m.IsGoogleApp("notion calendar"))
	assert.False(t, m.IsGoogleApp("Google Drive"))
	assert.False(t, m.IsGoogleApp(""))

	def := NewMatcher(nil)
	assert.Equal(t, DefaultGoogleKeywords, def.Keywords())
}

func TestGrantName(t *testing.T) {
	assert.Equal(t, "Unknown App", Grant{}.Name("Unknown App"))
	assert.Equal(t, "Zoom", Grant{DisplayText: "Zoom"}.Name("Unknown App"))
}
