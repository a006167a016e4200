package workspace

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// Policy decides how a failed grant lookup for one user is handled.
type Policy int

const (
	// SkipFailedUsers records the failure in Graph.Errors and leaves the
	// user out of both maps.
	SkipFailedUsers Policy = iota
	// AbortOnUserError discards the partial graph and returns the error.
	AbortOnUserError
)

// Graph is the access graph for one organization.
type Graph struct {
	UserToApps map[string][]Grant
	AppToUsers map[string]*AppAggregate

	// Users lists processed emails in processing order, Apps lists client
	// ids in first-seen order. Map iteration order is random so pages use
	// these to render deterministically.
	Users  []string
	Apps   []string
	Errors []UserError

	// Directory holds the record of every listed user, failed ones included.
	Directory map[string]User
}

func newGraph() *Graph {
	return &Graph{
		UserToApps: make(map[string][]Grant),
		AppToUsers: make(map[string]*AppAggregate),
		Directory:  make(map[string]User),
	}
}

// GrantFunc returns the grants held by one user.
type GrantFunc func(u User) ([]Grant, error)

// Aggregate folds users and their grants into a Graph. It performs no I/O of
// its own; grants is called once per user, in order.
func Aggregate(users []User, grants GrantFunc, policy Policy, m *Matcher) (*Graph, error) {
	if m == nil {
		m = NewMatcher(nil)
	}
	g := newGraph()

	for _, u := range users {
		if u.Email == "" {
			if policy == AbortOnUserError {
				return nil, ErrMissingEmail
			}
			g.Errors = append(g.Errors, UserError{Err: ErrMissingEmail})
			continue
		}
		g.Directory[u.Email] = u

		raw, err := grants(u)
		if err != nil {
			var fatal *fatalError
			if errors.As(err, &fatal) {
				return nil, &UserError{Email: u.Email, Err: fatal.err}
			}
			if policy == AbortOnUserError {
				return nil, &UserError{Email: u.Email, Err: err}
			}
			g.Errors = append(g.Errors, UserError{Email: u.Email, Err: err})
			continue
		}

		g.add(u.Email, raw, m)
	}
	return g, nil
}

func (g *Graph) add(email string, raw []Grant, m *Matcher) {
	filtered := make([]Grant, 0, len(raw))
	for _, t := range raw {
		if m.IsGoogleApp(t.DisplayText) {
			continue
		}
		filtered = append(filtered, t)

		app, ok := g.AppToUsers[t.ClientID]
		if !ok {
			app = &AppAggregate{ClientID: t.ClientID, DisplayName: t.DisplayText}
			g.AppToUsers[t.ClientID] = app
			g.Apps = append(g.Apps, t.ClientID)
		} else if t.DisplayText != app.DisplayName && !slices.Contains(app.AltNames, t.DisplayText) {
			app.AltNames = append(app.AltNames, t.DisplayText)
		}
		app.Users = append(app.Users, email)
	}

	if _, seen := g.UserToApps[email]; !seen {
		g.Users = append(g.Users, email)
	}
	g.UserToApps[email] = filtered
}

// fatalError stops aggregation regardless of policy.
type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks err so that Aggregate aborts even under SkipFailedUsers.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// AppsFor returns the filtered grants of one user and whether the user was
// processed at all.
func (g *Graph) AppsFor(email string) ([]Grant, bool) {
	apps, ok := g.UserToApps[email]
	return apps, ok
}

// User returns the directory record of email.
func (g *Graph) User(email string) (User, bool) {
	u, ok := g.Directory[email]
	return u, ok
}

// App returns the aggregate for a client id.
func (g *Graph) App(clientID string) (*AppAggregate, bool) {
	app, ok := g.AppToUsers[clientID]
	return app, ok
}

// RankedApps orders aggregates by number of users, most connected first.
// Ties keep first-seen order.
func (g *Graph) RankedApps() []*AppAggregate {
	out := make([]*AppAggregate, 0, len(g.Apps))
	for _, id := range g.Apps {
		out = append(out, g.AppToUsers[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Users) > len(out[j].Users)
	})
	return out
}

// FailureFor returns the grant lookup error recorded for email, if any.
func (g *Graph) FailureFor(email string) error {
	for _, e := range g.Errors {
		if e.Email == email {
			return e.Err
		}
	}
	return nil
}

// String summarizes the graph for logs.
func (g *Graph) String() string {
	return fmt.Sprintf("graph{users=%d apps=%d errors=%d}", len(g.Users), len(g.Apps), len(g.Errors))
}
