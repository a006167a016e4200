// Package rules loads the keyword lists used to hide Google-native apps and
// to spot SaaS vendors in bank transactions.
package rules

import (
	"fmt"
	"os"

	"github.com/brizzai/nicklpass/internal/config"
	"github.com/brizzai/nicklpass/internal/logger"
	"github.com/brizzai/nicklpass/internal/models"
	"github.com/brizzai/nicklpass/internal/spend"
	"github.com/brizzai/nicklpass/internal/workspace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Set holds the effective keyword lists
type Set struct {
	rules models.Rules
}

// Default returns the built-in lists.
func Default() *Set {
	return &Set{rules: models.Rules{
		GoogleApps:  workspace.DefaultGoogleKeywords,
		SaaSVendors: spend.DefaultVendors,
	}}
}

// Load reads the YAML rules file at path. Lists missing from the file keep
// their defaults; an empty path yields the defaults.
func Load(path string) (*Set, error) {
	set := Default()
	if path == "" {
		logger.Debug("No rules file provided, using built-in keyword lists")
		return set, nil
	}

	logger.Info("Loading rules from file", zap.String("file", path))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var file models.Rules
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	if len(file.GoogleApps) > 0 {
		set.rules.GoogleApps = file.GoogleApps
	}
	if len(file.SaaSVendors) > 0 {
		set.rules.SaaSVendors = file.SaaSVendors
	}
	return set, nil
}

// Matcher returns the Google-native app matcher.
func (s *Set) Matcher() *workspace.Matcher {
	return workspace.NewMatcher(s.rules.GoogleApps)
}

// Classifier returns the SaaS transaction classifier.
func (s *Set) Classifier() *spend.Classifier {
	return spend.NewClassifier(s.rules.SaaSVendors)
}

// Rules returns the effective lists, normalized the way the matchers use
// them.
func (s *Set) Rules() models.Rules {
	return models.Rules{
		GoogleApps:  s.Matcher().Keywords(),
		SaaSVendors: s.Classifier().Vendors(),
	}
}

func provideSet(cfg *config.Config) (*Set, error) {
	return Load(cfg.RulesFile)
}

// Module provides the rule set and the matchers built from it
var Module = fx.Module("rules",
	fx.Provide(
		provideSet,
		func(s *Set) *workspace.Matcher { return s.Matcher() },
		func(s *Set) *spend.Classifier { return s.Classifier() },
	),
)
