package constants

import "time"

const (
	// GoogleIssuer is the OIDC issuer of Google accounts
	GoogleIssuer = "https://accounts.google.com"

	// StateCookieName holds the signed OAuth state between /login and the callback
	StateCookieName = "nicklpass_oauth_state"

	// StateTTL bounds how long a sign-in may take
	StateTTL = 10 * time.Minute

	// StateIssuer is the issuer claim of state tokens
	StateIssuer = "nicklpass"
)

// Routes
const (
	HomePath     = "/"
	LoginPath    = "/login"
	CallbackPath = "/oauth/callback"
	LogoutPath   = "/logout"
	UsersPath    = "/users"
	NotAdminPath = "/not_admin"
)

// Admin SDK scopes
const (
	DirectoryUserReadonlyScope = "https://www.googleapis.com/auth/admin.directory.user.readonly"
	DirectoryUserSecurityScope = "https://www.googleapis.com/auth/admin.directory.user.security"
	ReportsAuditReadonlyScope  = "https://www.googleapis.com/auth/admin.reports.audit.readonly"
)

// DefaultScopes are requested when the config names none.
var DefaultScopes = []string{
	"openid",
	"email",
	"profile",
	DirectoryUserReadonlyScope,
	DirectoryUserSecurityScope,
	ReportsAuditReadonlyScope,
}
