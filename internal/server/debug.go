package server

import (
	"net/http"

	"github.com/brizzai/nicklpass/internal/auth/middleware"
	"github.com/brizzai/nicklpass/internal/logger"
	"github.com/brizzai/nicklpass/internal/utils"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// handleDebugTokens returns the raw Directory tokens response for one user.
func (s *Server) handleDebugTokens(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.FromContext(r.Context())
	email := chi.URLParam(r, "email")

	tokens, err := s.workspace.RawTokens(r.Context(), sess, email)
	if err != nil {
		logger.Warn("Debug tokens lookup failed", zap.String("email", email), zap.Error(err))
		utils.WriteError(w, "google_error", err.Error(), statusFor(err))
		return
	}
	utils.WriteJSON(w, tokens)
}

// handleDebugAudit returns the last interactive login per client id.
func (s *Server) handleDebugAudit(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.FromContext(r.Context())
	email := chi.URLParam(r, "email")

	logins, err := s.workspace.InteractiveLogins(r.Context(), sess, email)
	if err != nil {
		logger.Warn("Debug audit lookup failed", zap.String("email", email), zap.Error(err))
		utils.WriteError(w, "google_error", err.Error(), statusFor(err))
		return
	}
	utils.WriteJSON(w, logins)
}
