package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/brizzai/nicklpass/internal/auth/constants"
	"github.com/brizzai/nicklpass/internal/logger"
	"github.com/brizzai/nicklpass/internal/session"
	"go.uber.org/zap"
)

type sessionContextKey string

// SessionContextKey stores the *session.Session of the request
const SessionContextKey sessionContextKey = "session"

// FromContext returns the session put there by RequireSession.
func FromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(SessionContextKey).(*session.Session)
	return s, ok && s != nil
}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, SessionContextKey, s)
}

// RequireSession loads the session named by the cookie and redirects to the
// home page when there is none.
func RequireSession(store session.Store, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cookieName)
			if err != nil || c.Value == "" {
				http.Redirect(w, r, constants.HomePath, http.StatusFound)
				return
			}

			sess, err := store.Get(r.Context(), c.Value)
			if err != nil {
				if !errors.Is(err, session.ErrNotFound) {
					logger.Error("Failed to load session", zap.Error(err))
				}
				http.Redirect(w, r, constants.HomePath, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// RequireAdmin sends signed-in non-admins to the not-admin page. It must run
// after RequireSession.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := FromContext(r.Context())
		if !ok {
			http.Redirect(w, r, constants.HomePath, http.StatusFound)
			return
		}
		if !sess.IsAdmin {
			http.Redirect(w, r, constants.NotAdminPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
