package web

import (
	"github.com/brizzai/nicklpass/internal/spend"
	"github.com/brizzai/nicklpass/internal/workspace"
)

type HomeData struct {
	SignedIn bool
}

type NotAdminData struct {
	Email string
}

// UserRow is one line of the users page. Failed marks users whose grant
// lookup failed, so their app count is unknown rather than zero.
type UserRow struct {
	Email     string
	Recency   workspace.Recency
	AppCount  int
	Failed    bool
	Suspended bool
}

type UsersData struct {
	Rows   []UserRow
	Failed int
}

type UserApp struct {
	ClientID string
	Name     string
	// LastUsed is the humanized time of the last interactive authorization.
	LastUsed string
}

type UserData struct {
	Email      string
	Recency    workspace.Recency
	NeverSeen  bool
	Apps       []UserApp
	Failure    string
	AuditError string
}

type AppRow struct {
	ClientID  string
	Name      string
	UserCount int
}

type AppsData struct {
	Apps []AppRow
}

type AppUser struct {
	Email   string
	Recency workspace.Recency
}

type AppData struct {
	ClientID string
	Name     string
	AltNames []string
	Users    []AppUser
}

type SpendData struct {
	Linked bool
}

// TransactionsData is the model of the SaaS transactions page. Recent holds
// the newest transactions shown in the full list.
type TransactionsData struct {
	Summary      spend.Summary
	Recent       []spend.Classified
	LookbackDays int
}
