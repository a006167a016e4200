// Package plaid wraps the Plaid SDK for Link, token exchange and
// transactions.
package plaid

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/brizzai/nicklpass/internal/config"
	"github.com/brizzai/nicklpass/internal/logger"
	plaidgo "github.com/plaid/plaid-go/v20/plaid"
	"go.uber.org/zap"
)

const (
	dateLayout = "2006-01-02"

	defaultTimeout = 30 * time.Second
)

// Environment returns the SDK environment for cfg. A BaseURL in cfg
// overrides the env host and unknown envs fall back to production.
func Environment(cfg config.PlaidConfig) plaidgo.Environment {
	if cfg.BaseURL != "" {
		return plaidgo.Environment(strings.TrimRight(cfg.BaseURL, "/"))
	}
	switch cfg.Env {
	case config.PlaidSandbox:
		return plaidgo.Sandbox
	case config.PlaidDevelopment:
		return plaidgo.Development
	default:
		return plaidgo.Production
	}
}

// Client executes Plaid API calls
type Client struct {
	api     *plaidgo.PlaidApiService
	authErr error
	cfg     config.PlaidConfig
}

// NewClient creates a Client for cfg. Missing credentials do not fail
// construction; every call reports them instead.
func NewClient(cfg config.PlaidConfig, authMgr AuthManager) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if authMgr == nil {
		authMgr = NewHeaderAuthManager(cfg.ClientID, cfg.Secret)
	}

	sdkCfg := plaidgo.NewConfiguration()
	sdkCfg.UseEnvironment(Environment(cfg))
	sdkCfg.HTTPClient = &http.Client{Timeout: timeout}
	authErr := authMgr.ApplyAuth(sdkCfg)

	return &Client{
		api:     plaidgo.NewAPIClient(sdkCfg).PlaidApi,
		authErr: authErr,
		cfg:     cfg,
	}
}

// CreateLinkToken creates a Link token for the transactions product.
func (c *Client) CreateLinkToken(ctx context.Context, clientUserID string) (*LinkToken, error) {
	if c.authErr != nil {
		return nil, fmt.Errorf("create link token: %w", c.authErr)
	}
	if clientUserID == "" {
		clientUserID = c.cfg.ClientUserID
	}

	countries := make([]plaidgo.CountryCode, 0, len(c.cfg.CountryCodes))
	for _, code := range c.cfg.CountryCodes {
		countries = append(countries, plaidgo.CountryCode(code))
	}
	req := plaidgo.NewLinkTokenCreateRequest(c.cfg.ClientName, c.cfg.Language, countries, *plaidgo.NewLinkTokenCreateRequestUser(clientUserID))
	req.SetProducts([]plaidgo.Products{plaidgo.PRODUCTS_TRANSACTIONS})

	resp, httpResp, err := c.api.LinkTokenCreate(ctx).LinkTokenCreateRequest(*req).Execute()
	if err != nil {
		return nil, fmt.Errorf("create link token: %w", failure("link_token_create", httpResp, err))
	}
	return &LinkToken{
		LinkToken:  resp.GetLinkToken(),
		Expiration: resp.GetExpiration(),
		RequestID:  resp.GetRequestId(),
	}, nil
}

// ExchangePublicToken trades the Link public token for a long-lived access
// token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*Item, error) {
	if publicToken == "" {
		return nil, fmt.Errorf("exchange public token: public_token is required")
	}
	if c.authErr != nil {
		return nil, fmt.Errorf("exchange public token: %w", c.authErr)
	}

	req := plaidgo.NewItemPublicTokenExchangeRequest(publicToken)
	resp, httpResp, err := c.api.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*req).Execute()
	if err != nil {
		return nil, fmt.Errorf("exchange public token: %w", failure("item_public_token_exchange", httpResp, err))
	}
	return &Item{
		AccessToken: resp.GetAccessToken(),
		ItemID:      resp.GetItemId(),
		RequestID:   resp.GetRequestId(),
	}, nil
}

// GetTransactions returns up to count transactions dated between start and
// end inclusive.
func (c *Client) GetTransactions(ctx context.Context, accessToken string, start, end time.Time, count int) (*Transactions, error) {
	if accessToken == "" {
		return nil, ErrNotLinked
	}
	if c.authErr != nil {
		return nil, fmt.Errorf("get transactions: %w", c.authErr)
	}

	opts := plaidgo.TransactionsGetRequestOptions{}
	opts.SetCount(int32(count))
	req := plaidgo.NewTransactionsGetRequest(accessToken, start.Format(dateLayout), end.Format(dateLayout))
	req.SetOptions(opts)

	resp, httpResp, err := c.api.TransactionsGet(ctx).TransactionsGetRequest(*req).Execute()
	if err != nil {
		return nil, fmt.Errorf("get transactions: %w", failure("transactions_get", httpResp, err))
	}

	out := &Transactions{
		Transactions:      make([]Transaction, 0, len(resp.GetTransactions())),
		TotalTransactions: int(resp.GetTotalTransactions()),
		RequestID:         resp.GetRequestId(),
	}
	for _, txn := range resp.GetTransactions() {
		out.Transactions = append(out.Transactions, fromSDK(txn))
	}
	return out, nil
}

// RecentTransactions returns the transactions of the configured lookback
// window ending today.
func (c *Client) RecentTransactions(ctx context.Context, accessToken string, now time.Time) (*Transactions, error) {
	end := now.UTC()
	return c.GetTransactions(ctx, accessToken, end.Add(-c.cfg.Lookback), end, c.cfg.Count)
}

// RemoveItem invalidates the access token at Plaid.
func (c *Client) RemoveItem(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return ErrNotLinked
	}
	if c.authErr != nil {
		return fmt.Errorf("remove item: %w", c.authErr)
	}

	req := plaidgo.NewItemRemoveRequest(accessToken)
	if _, httpResp, err := c.api.ItemRemove(ctx).ItemRemoveRequest(*req).Execute(); err != nil {
		return fmt.Errorf("remove item: %w", failure("item_remove", httpResp, err))
	}
	return nil
}

func failure(operation string, httpResp *http.Response, err error) error {
	err = apiError(err, httpResp)
	logger.Warn("Plaid request failed", zap.String("operation", operation), zap.Error(err))
	return err
}

func fromSDK(txn plaidgo.Transaction) Transaction {
	return Transaction{
		TransactionID: txn.GetTransactionId(),
		AccountID:     txn.GetAccountId(),
		Amount:        txn.GetAmount(),
		Currency:      txn.GetIsoCurrencyCode(),
		Date:          txn.GetDate(),
		Name:          txn.GetName(),
		MerchantName:  txn.GetMerchantName(),
		Category:      txn.GetCategory(),
		Pending:       txn.GetPending(),
	}
}
