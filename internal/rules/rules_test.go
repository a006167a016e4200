package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brizzai/nicklpass/internal/spend"
	"github.com/brizzai/nicklpass/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	set, err := Load("")
	require.NoError(t, err)

	r := set.Rules()
	assert.Equal(t, workspace.DefaultGoogleKeywords, r.GoogleApps)
	assert.Len(t, r.SaaSVendors, len(spend.DefaultVendors))
	assert.True(t, set.Matcher().IsGoogleApp("Google Chrome"))
	assert.True(t, set.Classifier().IsSaaSVendor("Slack"))
}

func TestLoad_File(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		googleApp  string
		isGoogle   bool
		merchant   string
		isSaaS     bool
		googleList []string
	}{
		{
			name: "both lists replaced",
			content: `
google_apps:
  - Internal SSO
saas_vendors:
  - acme cloud
`,
			googleApp:  "internal sso bridge",
			isGoogle:   true,
			merchant:   "Slack",
			isSaaS:     false,
			googleList: []string{"internal sso"},
		},
		{
			name: "only vendors replaced",
			content: `
saas_vendors: [acme cloud]
`,
			googleApp:  "Gmail",
			isGoogle:   true,
			merchant:   "ACME CLOUD INC",
			isSaaS:     true,
			googleList: workspace.DefaultGoogleKeywords,
		},
		{
			name:       "empty file",
			content:    "",
			googleApp:  "Notion",
			isGoogle:   false,
			merchant:   "Notion",
			isSaaS:     true,
			googleList: workspace.DefaultGoogleKeywords,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Load(writeFile(t, tt.content))
			require.NoError(t, err)

			assert.Equal(t, tt.isGoogle, set.Matcher().IsGoogleApp(tt.googleApp))
			assert.Equal(t, tt.isSaaS, set.Classifier().IsSaaSVendor(tt.merchant))
			assert.Equal(t, tt.googleList, set.Rules().GoogleApps)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "google_apps: {not: [a list"))
	assert.Error(t, err)
}
