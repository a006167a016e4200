package plaid

// Status describes the client configuration without exposing secrets
type Status struct {
	ClientIDSet     bool   `json:"client_id_set"`
	SecretSet       bool   `json:"secret_set"`
	Environment     string `json:"environment"`
	SessionHasToken bool   `json:"session_has_token"`
}

// Status reports which credentials are configured. linked tells whether
// the caller's session holds an access token.
func (c *Client) Status(linked bool) Status {
	return Status{
		ClientIDSet:     c.cfg.ClientID != "",
		SecretSet:       c.cfg.Secret != "",
		Environment:     string(c.cfg.Env),
		SessionHasToken: linked,
	}
}
