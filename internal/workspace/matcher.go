package workspace

import "strings"

// DefaultGoogleKeywords identify first-party Google applications by display name.
var DefaultGoogleKeywords = []string{
	"google", "gmail", "calendar", "drive",
	"docs", "sheets", "slides", "chrome",
	"workspace", "meet", "gcp",
}

// Matcher flags Google-native grants so they stay out of the graph.
type Matcher struct {
	keywords []string
}

// NewMatcher lower-cases and keeps the non-empty keywords. A nil or empty
// list falls back to DefaultGoogleKeywords.
func NewMatcher(keywords []string) *Matcher {
	if len(keywords) == 0 {
		keywords = DefaultGoogleKeywords
	}
	m := &Matcher{keywords: make([]string, 0, len(keywords))}
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			m.keywords = append(m.keywords, k)
		}
	}
	return m
}

// IsGoogleApp reports whether any keyword is a substring of the lower-cased
// name. An empty name never matches.
func (m *Matcher) IsGoogleApp(name string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, k := range m.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Keywords returns a copy of the active keyword list.
func (m *Matcher) Keywords() []string {
	return append([]string(nil), m.keywords...)
}
