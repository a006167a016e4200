package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/brizzai/nicklpass/internal/auth/middleware"
	"github.com/brizzai/nicklpass/internal/google"
	"github.com/brizzai/nicklpass/internal/logger"
	"github.com/brizzai/nicklpass/internal/session"
	"github.com/brizzai/nicklpass/internal/utils"
	"github.com/brizzai/nicklpass/internal/web"
	"github.com/brizzai/nicklpass/internal/workspace"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// currentSession resolves the session cookie on public routes.
func (s *Server) currentSession(r *http.Request) (*session.Session, bool) {
	c, err := r.Cookie(s.config.Session.CookieName)
	if err != nil || c.Value == "" {
		return nil, false
	}
	sess, err := s.store.Get(r.Context(), c.Value)
	if err != nil {
		return nil, false
	}
	return sess, true
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	_, signedIn := s.currentSession(r)
	s.pages.Render(w, http.StatusOK, web.PageHome, "Home", web.HomeData{SignedIn: signedIn})
}

func (s *Server) handleNotAdmin(w http.ResponseWriter, r *http.Request) {
	var data web.NotAdminData
	if sess, ok := s.currentSession(r); ok {
		data.Email = sess.Email
	}
	s.pages.Render(w, http.StatusForbidden, web.PageNotAdmin, "Admin Access Required", data)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.WriteJSON(w, map[string]string{"status": "ok"})
}

// recency classifies a directory login time. Unparseable values are logged
// and treated as never seen.
func (s *Server) recency(u workspace.User) workspace.Recency {
	rec, err := workspace.Of(u.LastLoginTime, s.now())
	if err != nil {
		logger.Warn("Ignoring unparseable last login time",
			zap.String("email", u.Email),
			zap.Error(err),
		)
		rec, _ = workspace.Of("", s.now())
	}
	return rec
}

// graph builds the access graph for the signed-in admin and renders the
// error page when that fails.
func (s *Server) graph(w http.ResponseWriter, r *http.Request) (*workspace.Graph, bool) {
	sess, _ := middleware.FromContext(r.Context())
	g, err := s.workspace.Graph(r.Context(), sess)
	if err != nil {
		logger.Error("Failed to build workspace graph",
			zap.String("admin", sess.Email),
			zap.Error(err),
		)
		s.pages.Error(w, r, statusFor(err), err)
		return nil, false
	}
	return g, true
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	g, ok := s.graph(w, r)
	if !ok {
		return
	}

	// processed users first, in processing order, then the failed ones
	emails := make([]string, 0, len(g.Directory))
	emails = append(emails, g.Users...)
	for _, ue := range g.Errors {
		if ue.Email != "" {
			emails = append(emails, ue.Email)
		}
	}

	data := web.UsersData{Rows: make([]web.UserRow, 0, len(emails)), Failed: len(g.Errors)}
	for _, email := range emails {
		u := g.Directory[email]
		apps, processed := g.AppsFor(email)
		data.Rows = append(data.Rows, web.UserRow{
			Email:     email,
			Recency:   s.recency(u),
			AppCount:  len(apps),
			Failed:    !processed,
			Suspended: u.Suspended,
		})
	}
	s.pages.Render(w, http.StatusOK, web.PageUsers, "Users", data)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	g, ok := s.graph(w, r)
	if !ok {
		return
	}

	u, found := g.User(email)
	if !found {
		s.pages.NotFound(w, "User Not Found", "No directory user "+email+".", "/users")
		return
	}

	data := web.UserData{
		Email:     email,
		Recency:   s.recency(u),
		NeverSeen: u.LastLoginTime == "",
	}
	if err := g.FailureFor(email); err != nil {
		data.Failure = err.Error()
		s.pages.Render(w, http.StatusOK, web.PageUser, email, data)
		return
	}

	sess, _ := middleware.FromContext(r.Context())
	logins, err := s.workspace.InteractiveLogins(r.Context(), sess, email)
	if err != nil {
		logger.Warn("Failed to read login audit",
			zap.String("email", email),
			zap.Error(err),
		)
		data.AuditError = err.Error()
	}

	grants, _ := g.AppsFor(email)
	now := s.now()
	for _, grant := range grants {
		app := web.UserApp{ClientID: grant.ClientID, Name: grant.Name(grant.ClientID)}
		if at, ok := logins[grant.ClientID]; ok {
			app.LastUsed = humanize.RelTime(at, now, "ago", "from now")
		}
		data.Apps = append(data.Apps, app)
	}
	s.pages.Render(w, http.StatusOK, web.PageUser, email, data)
}

func (s *Server) handleApps(w http.ResponseWriter, r *http.Request) {
	g, ok := s.graph(w, r)
	if !ok {
		return
	}

	ranked := g.RankedApps()
	data := web.AppsData{Apps: make([]web.AppRow, 0, len(ranked))}
	for _, app := range ranked {
		data.Apps = append(data.Apps, web.AppRow{
			ClientID:  app.ClientID,
			Name:      appName(app),
			UserCount: len(app.Users),
		})
	}
	s.pages.Render(w, http.StatusOK, web.PageApps, "Apps", data)
}

func (s *Server) handleApp(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	g, ok := s.graph(w, r)
	if !ok {
		return
	}

	app, found := g.App(clientID)
	if !found {
		s.pages.NotFound(w, "App Not Found", "No user has connected client "+clientID+".", "/apps")
		return
	}

	data := web.AppData{
		ClientID: app.ClientID,
		Name:     appName(app),
		AltNames: app.AltNames,
		Users:    make([]web.AppUser, 0, len(app.Users)),
	}
	for _, email := range app.Users {
		data.Users = append(data.Users, web.AppUser{Email: email, Recency: s.recency(g.Directory[email])})
	}
	s.pages.Render(w, http.StatusOK, web.PageApp, data.Name, data)
}

func appName(app *workspace.AppAggregate) string {
	if app.DisplayName == "" {
		return app.ClientID
	}
	return app.DisplayName
}

// statusFor maps collaborator failures to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, google.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, google.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, google.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, google.ErrRateLimited):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
