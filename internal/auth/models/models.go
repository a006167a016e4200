package models

// UserInfo represents the signed-in Google account
type UserInfo struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
	// HostedDomain is the Workspace domain of the account, empty for consumer accounts
	HostedDomain string
}
