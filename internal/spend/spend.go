// Package spend picks SaaS charges out of bank transactions.
package spend

import (
	"slices"
	"sort"
	"strings"

	"github.com/brizzai/nicklpass/internal/plaid"
)

// UnknownMerchant names transactions that carry neither a merchant nor a
// description.
const UnknownMerchant = "Unknown"

// subscriptionCategory marks recurring charges in Plaid's category path.
const subscriptionCategory = "Subscription"

// Confidence of a SaaS match.
type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

// Badge is the colored marker shown next to the confidence.
func (c Confidence) Badge() string {
	if c == High {
		return "🟢"
	}
	return "🟡"
}

// DefaultVendors are lowercase fragments of known SaaS merchant names.
var DefaultVendors = []string{
	"slack", "notion", "figma", "zoom", "dropbox", "github", "gitlab",
	"atlassian", "jira", "confluence", "asana", "monday", "trello",
	"salesforce", "hubspot", "zendesk", "intercom", "freshdesk",
	"aws", "amazon web services", "google cloud", "gcp", "azure", "microsoft",
	"heroku", "vercel", "netlify", "cloudflare", "datadog", "new relic",
	"twilio", "sendgrid", "mailchimp", "stripe", "braintree",
	"quickbooks", "xero", "gusto", "rippling", "workday",
	"adobe", "canva", "miro", "loom", "calendly", "docusign",
	"openai", "anthropic", "cohere", "linear", "clickup",
	"1password", "lastpass", "okta", "auth0",
	"snowflake", "databricks", "tableau", "looker", "amplitude", "mixpanel",
	"airtable", "coda", "webflow", "squarespace", "shopify",
	"grammarly", "evernote", "todoist",
	"spotify", "netflix", "hulu", "disney", "hbo",
	"nytimes", "wsj", "bloomberg", "economist", "ft.com", "financial times",
	"reuters", "ap news", "washington post", "new yorker",
}

// Classified is a transaction annotated with the SaaS verdict.
type Classified struct {
	Merchant   string     `json:"merchant"`
	Amount     float64    `json:"amount"`
	Date       string     `json:"date"`
	Category   []string   `json:"category"`
	IsSaaS     bool       `json:"is_saas"`
	Confidence Confidence `json:"confidence"`
}

// Classifier matches merchants against a vendor list.
type Classifier struct {
	vendors []string
}

// NewClassifier lowercases vendors. An empty list selects DefaultVendors.
func NewClassifier(vendors []string) *Classifier {
	if len(vendors) == 0 {
		vendors = DefaultVendors
	}
	c := &Classifier{}
	for _, v := range vendors {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			c.vendors = append(c.vendors, v)
		}
	}
	return c
}

// Vendors returns a copy of the vendor fragments.
func (c *Classifier) Vendors() []string {
	return slices.Clone(c.vendors)
}

// IsSaaSVendor reports whether merchant contains a known vendor,
// ignoring case.
func (c *Classifier) IsSaaSVendor(merchant string) bool {
	if merchant == "" {
		return false
	}
	name := strings.ToLower(merchant)
	for _, v := range c.vendors {
		if strings.Contains(name, v) {
			return true
		}
	}
	return false
}

// Classify annotates one transaction.
func (c *Classifier) Classify(txn plaid.Transaction) Classified {
	merchant := txn.MerchantName
	if merchant == "" {
		merchant = txn.Name
	}
	if merchant == "" {
		merchant = UnknownMerchant
	}

	vendor := c.IsSaaSVendor(merchant)
	subscription := slices.Contains(txn.Category, subscriptionCategory)

	confidence := Low
	switch {
	case vendor:
		confidence = High
	case subscription:
		confidence = Medium
	}

	return Classified{
		Merchant:   merchant,
		Amount:     txn.Amount,
		Date:       txn.Date,
		Category:   txn.Category,
		IsSaaS:     vendor || subscription,
		Confidence: confidence,
	}
}

// Summary is the spend page model.
type Summary struct {
	// All is every classified transaction, newest first.
	All []Classified
	// SaaS holds the SaaS transactions, newest first.
	SaaS []Classified
	// TotalSaaSSpend sums the positive SaaS amounts; refunds are ignored.
	TotalSaaSSpend float64
	TotalCount     int
}

// Recent returns at most n of All.
func (s Summary) Recent(n int) []Classified {
	if n < 0 || n >= len(s.All) {
		return s.All
	}
	return s.All[:n]
}

// Summarize classifies txns and totals the SaaS spend.
func (c *Classifier) Summarize(txns []plaid.Transaction) Summary {
	s := Summary{
		All:        make([]Classified, 0, len(txns)),
		TotalCount: len(txns),
	}
	for _, txn := range txns {
		cl := c.Classify(txn)
		s.All = append(s.All, cl)
		if !cl.IsSaaS {
			continue
		}
		s.SaaS = append(s.SaaS, cl)
		if cl.Amount > 0 {
			s.TotalSaaSSpend += cl.Amount
		}
	}
	byDateDesc(s.All)
	byDateDesc(s.SaaS)
	return s
}

// Dates are ISO 8601 so string order is chronological.
func byDateDesc(cs []Classified) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Date > cs[j].Date })
}
