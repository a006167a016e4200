package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/brizzai/nicklpass/internal/auth/constants"
	"github.com/brizzai/nicklpass/internal/auth/providers"
	"github.com/brizzai/nicklpass/internal/config"
	"github.com/brizzai/nicklpass/internal/logger"
	"github.com/brizzai/nicklpass/internal/session"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// AdminChecker reports whether email is a Workspace administrator, acting
// with the signed-in user's credentials.
type AdminChecker interface {
	IsAdmin(ctx context.Context, ts oauth2.TokenSource, email string) (bool, error)
}

// ErrorFunc renders a failed request.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, status int, err error)

func plainError(w http.ResponseWriter, _ *http.Request, status int, err error) {
	http.Error(w, err.Error(), status)
}

// Handler handles the sign-in HTTP requests
type Handler struct {
	provider providers.Provider
	store    session.Store
	admins   AdminChecker
	state    *StateSigner
	cfg      config.SessionConfig
	onError  ErrorFunc
}

// NewHandler creates a new Handler instance
func NewHandler(cfg config.SessionConfig, provider providers.Provider, store session.Store, admins AdminChecker, onError ErrorFunc) *Handler {
	if onError == nil {
		onError = plainError
	}
	return &Handler{
		provider: provider,
		store:    store,
		admins:   admins,
		state:    NewStateSigner(cfg.Secret, constants.StateTTL),
		cfg:      cfg,
		onError:  onError,
	}
}

// HandleLogin redirects to the Google consent screen
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := h.state.Issue()
	if err != nil {
		logger.Error("Failed to issue oauth state", zap.Error(err))
		h.onError(w, r, http.StatusInternalServerError, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     constants.StateCookieName,
		Value:    state,
		Path:     constants.CallbackPath,
		MaxAge:   int(constants.StateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusFound)
}

// HandleCallback completes the code flow, creates the session and sends
// admins to the users page and everybody else to the not-admin page
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if e := query.Get("error"); e != "" {
		logger.Warn("Google sign-in refused", zap.String("error", e))
		h.onError(w, r, http.StatusUnauthorized, errors.New("sign-in was cancelled or refused: "+e))
		return
	}

	var cookie string
	if c, err := r.Cookie(constants.StateCookieName); err == nil {
		cookie = c.Value
	}
	h.clearCookie(w, constants.StateCookieName, constants.CallbackPath)

	if err := h.state.Verify(query.Get("state"), cookie); err != nil {
		logger.Warn("Rejected oauth callback", zap.Error(err))
		h.onError(w, r, http.StatusBadRequest, ErrInvalidState)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.onError(w, r, http.StatusBadRequest, errors.New("code is required"))
		return
	}

	ctx := r.Context()
	token, err := h.provider.Exchange(ctx, code)
	if err != nil {
		logger.Error("Failed to exchange code", zap.Error(err))
		h.onError(w, r, http.StatusBadGateway, errors.New("failed to exchange authorization code"))
		return
	}

	user, err := h.provider.Identify(ctx, token)
	if err != nil {
		logger.Error("Failed to identify user", zap.Error(err))
		h.onError(w, r, http.StatusUnauthorized, errors.New("failed to verify Google identity"))
		return
	}

	isAdmin, err := h.admins.IsAdmin(ctx, h.provider.TokenSource(ctx, token), user.Email)
	if err != nil {
		// a failed lookup means the account cannot read the directory
		logger.Warn("Admin check failed, treating as non-admin",
			zap.String("email", user.Email), zap.Error(err))
		isAdmin = false
	}

	sess := session.New(user.Email, isAdmin, token, h.cfg.TTL)
	if err := h.store.Save(ctx, sess); err != nil {
		logger.Error("Failed to save session", zap.Error(err))
		h.onError(w, r, http.StatusInternalServerError, errors.New("failed to create session"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	logger.Info("User signed in", zap.String("email", user.Email), zap.Bool("admin", isAdmin))
	if isAdmin {
		http.Redirect(w, r, constants.UsersPath, http.StatusFound)
		return
	}
	http.Redirect(w, r, constants.NotAdminPath, http.StatusFound)
}

// HandleLogout deletes the session and returns home
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cfg.CookieName); err == nil {
		if err := h.store.Delete(r.Context(), c.Value); err != nil {
			logger.Warn("Failed to delete session", zap.Error(err))
		}
	}
	h.clearCookie(w, h.cfg.CookieName, "/")
	http.Redirect(w, r, constants.HomePath, http.StatusFound)
}

func (h *Handler) clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
