package models

// Rules is the keyword file that tunes app and spend classification
type Rules struct {
	// GoogleApps are name fragments of Google-native OAuth clients hidden from the graph
	GoogleApps []string `yaml:"google_apps,omitempty"`
	// SaaSVendors are merchant name fragments counted as SaaS spend
	SaaSVendors []string `yaml:"saas_vendors,omitempty"`
}
