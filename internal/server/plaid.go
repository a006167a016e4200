package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/brizzai/nicklpass/internal/auth/middleware"
	"github.com/brizzai/nicklpass/internal/logger"
	"github.com/brizzai/nicklpass/internal/plaid"
	"github.com/brizzai/nicklpass/internal/utils"
	"github.com/brizzai/nicklpass/internal/web"
	"go.uber.org/zap"
)

// Bank is the bank aggregator used for spend visibility. *plaid.Client
// implements it.
type Bank interface {
	CreateLinkToken(ctx context.Context, clientUserID string) (*plaid.LinkToken, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*plaid.Item, error)
	RecentTransactions(ctx context.Context, accessToken string, now time.Time) (*plaid.Transactions, error)
	RemoveItem(ctx context.Context, accessToken string) error
	Status(linked bool) plaid.Status
}

type exchangeRequest struct {
	PublicToken string `json:"public_token"`
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.FromContext(r.Context())
	s.pages.Render(w, http.StatusOK, web.PageSpend, "Spend", web.SpendData{Linked: sess.PlaidLinked()})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.FromContext(r.Context())
	if !sess.PlaidLinked() {
		http.Redirect(w, r, "/spend", http.StatusFound)
		return
	}

	txns, err := s.bank.RecentTransactions(r.Context(), sess.PlaidAccessToken, s.now())
	if err != nil {
		logger.Error("Failed to fetch transactions",
			zap.String("email", sess.Email),
			zap.String("item_id", sess.PlaidItemID),
			zap.Error(err),
		)
		if plaid.IsItemLoginRequired(err) {
			s.pages.Render(w, http.StatusConflict, web.PageError, "Bank Login Required", web.ErrorData{
				Heading: "Bank Login Required",
				Message: "The bank connection has expired. Disconnect it and connect again.",
				Back:    "/spend",
			})
			return
		}
		s.pages.Error(w, r, plaidStatus(err), err)
		return
	}

	summary := s.classifier.Summarize(txns.Transactions)
	s.pages.Render(w, http.StatusOK, web.PageTransactions, "SaaS Spend", web.TransactionsData{
		Summary:      summary,
		Recent:       summary.Recent(recentTransactions),
		LookbackDays: int(s.config.Plaid.Lookback / (24 * time.Hour)),
	})
}

func (s *Server) handleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	token, err := s.bank.CreateLinkToken(r.Context(), s.config.Plaid.ClientUserID)
	if err != nil {
		logger.Error("Failed to create link token", zap.Error(err))
		utils.WriteError(w, "plaid_error", err.Error(), plaidStatus(err))
		return
	}
	utils.WriteJSON(w, map[string]string{"link_token": token.LinkToken})
}

func (s *Server) handleExchangeToken(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.FromContext(r.Context())

	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, "invalid_request", "request body must be JSON", http.StatusBadRequest)
		return
	}
	if req.PublicToken == "" {
		utils.WriteError(w, "invalid_request", "public_token is required", http.StatusBadRequest)
		return
	}

	item, err := s.bank.ExchangePublicToken(r.Context(), req.PublicToken)
	if err != nil {
		logger.Error("Failed to exchange public token", zap.String("email", sess.Email), zap.Error(err))
		utils.WriteError(w, "plaid_error", err.Error(), plaidStatus(err))
		return
	}

	sess.PlaidAccessToken = item.AccessToken
	sess.PlaidItemID = item.ItemID
	if err := s.store.Save(r.Context(), sess); err != nil {
		logger.Error("Failed to save session", zap.String("email", sess.Email), zap.Error(err))
		utils.WriteError(w, "server_error", "could not store the bank connection", http.StatusInternalServerError)
		return
	}

	logger.Info("Linked bank item", zap.String("email", sess.Email), zap.String("item_id", item.ItemID))
	utils.WriteJSON(w, map[string]bool{"success": true})
}

// handleDisconnect forgets the linked item. Removing it at Plaid is
// best-effort.
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.FromContext(r.Context())
	if sess.PlaidLinked() {
		if err := s.bank.RemoveItem(r.Context(), sess.PlaidAccessToken); err != nil {
			logger.Warn("Failed to remove bank item",
				zap.String("item_id", sess.PlaidItemID),
				zap.Error(err),
			)
		}
		sess.PlaidAccessToken = ""
		sess.PlaidItemID = ""
		if err := s.store.Save(r.Context(), sess); err != nil {
			logger.Error("Failed to save session", zap.String("email", sess.Email), zap.Error(err))
			s.pages.Error(w, r, http.StatusInternalServerError, err)
			return
		}
	}
	http.Redirect(w, r, "/spend", http.StatusFound)
}

func (s *Server) handlePlaidStatus(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.FromContext(r.Context())
	utils.WriteJSON(w, s.bank.Status(sess.PlaidLinked()))
}

// plaidStatus passes client errors reported by Plaid through and maps the
// rest to 502.
func plaidStatus(err error) int {
	if errors.Is(err, plaid.ErrMissingCredentials) {
		return http.StatusServiceUnavailable
	}
	var apiErr *plaid.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
