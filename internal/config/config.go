package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("nicklpass version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Google    GoogleConfig    `mapstructure:"google"`
	Session   SessionConfig   `mapstructure:"session"`
	Plaid     PlaidConfig     `mapstructure:"plaid"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	RulesFile string          `mapstructure:"rules_file"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// Title is shown in the page header.
	Title string `mapstructure:"title"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// GoogleConfig holds the OAuth client used to sign Workspace admins in.
type GoogleConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	Scopes       []string `mapstructure:"scopes"`
	// Endpoint overrides the Admin SDK base URL. Empty means Google's default.
	Endpoint string `mapstructure:"endpoint"`
	// RequestsPerSecond throttles Admin SDK calls across the whole process.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type SessionStoreType string

const (
	SessionStoreMemory SessionStoreType = "memory"
	SessionStoreSQLite SessionStoreType = "sqlite"
)

type SessionConfig struct {
	Secret     string           `mapstructure:"secret"`
	Store      SessionStoreType `mapstructure:"store"`
	SQLitePath string           `mapstructure:"sqlite_path"`
	TTL        time.Duration    `mapstructure:"ttl"`
	CookieName string           `mapstructure:"cookie_name"`
	Secure     bool             `mapstructure:"secure"`
}

type PlaidEnv string

const (
	PlaidSandbox     PlaidEnv = "sandbox"
	PlaidDevelopment PlaidEnv = "development"
	PlaidProduction  PlaidEnv = "production"
)

type PlaidConfig struct {
	ClientID     string        `mapstructure:"client_id"`
	Secret       string        `mapstructure:"secret"`
	Env          PlaidEnv      `mapstructure:"env"`
	BaseURL      string        `mapstructure:"base_url"` // overrides the env host
	ClientName   string        `mapstructure:"client_name"`
	ClientUserID string        `mapstructure:"client_user_id"`
	CountryCodes []string      `mapstructure:"country_codes"`
	Language     string        `mapstructure:"language"`
	Lookback     time.Duration `mapstructure:"lookback"`
	Count        int           `mapstructure:"count"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// UserErrorPolicy decides what the graph builder does when one user's grant
// lookup fails.
type UserErrorPolicy string

const (
	UserErrorSkip  UserErrorPolicy = "skip"
	UserErrorAbort UserErrorPolicy = "abort"
)

type WorkspaceConfig struct {
	Customer      string          `mapstructure:"customer"`
	OnUserError   UserErrorPolicy `mapstructure:"on_user_error"`
	UserTimeout   time.Duration   `mapstructure:"user_timeout"`
	Deadline      time.Duration   `mapstructure:"deadline"`
	CacheTTL      time.Duration   `mapstructure:"cache_ttl"`
	AuditLookback time.Duration   `mapstructure:"audit_lookback"`
}

// InitFlags initializes command line flags (without parsing)
func InitFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a config file")
	fs.Int("server.port", 8000, "HTTP listen port")
	fs.String("server.host", "", "HTTP listen host")
	fs.String("logging.level", "info", "Log level (debug|info|warn|error)")
	fs.String("rules-file", "", "Path to a YAML rules file overriding the keyword lists")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.title", "Nicklpass Access Visibility")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("google.requests_per_second", 5.0)
	v.SetDefault("google.burst", 10)

	v.SetDefault("session.store", string(SessionStoreMemory))
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.cookie_name", "nicklpass_session")

	v.SetDefault("plaid.env", string(PlaidSandbox))
	v.SetDefault("plaid.client_name", "Nicklpass")
	v.SetDefault("plaid.client_user_id", "nicklpass-user")
	v.SetDefault("plaid.country_codes", []string{"US"})
	v.SetDefault("plaid.language", "en")
	v.SetDefault("plaid.lookback", 90*24*time.Hour)
	v.SetDefault("plaid.count", 100)
	v.SetDefault("plaid.timeout", 30*time.Second)

	v.SetDefault("workspace.customer", "my_customer")
	v.SetDefault("workspace.on_user_error", string(UserErrorSkip))
	v.SetDefault("workspace.user_timeout", 15*time.Second)
	v.SetDefault("workspace.deadline", 2*time.Minute)
	v.SetDefault("workspace.cache_ttl", time.Duration(0))
	v.SetDefault("workspace.audit_lookback", 180*24*time.Hour)
}

// Load reads config.yaml, the environment and the bound flags into a Config.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NICKLPASS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, err
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/nicklpass")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	//Loading additionals config files
	if _, err := os.Stat("/config/config.yaml"); err == nil {
		v.SetConfigFile("/config/config.yaml")
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merge /config/config.yaml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if rulesFile := v.GetString("rules-file"); rulesFile != "" {
		cfg.RulesFile = rulesFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.Google.ClientID == "" {
		errs = append(errs, fmt.Errorf("google.client_id is required, set it in config.yaml or NICKLPASS_GOOGLE_CLIENT_ID"))
	}
	if c.Google.ClientSecret == "" {
		errs = append(errs, fmt.Errorf("google.client_secret is required, set it in config.yaml or NICKLPASS_GOOGLE_CLIENT_SECRET"))
	}
	if c.Google.RedirectURL == "" {
		errs = append(errs, fmt.Errorf("google.redirect_url is required, set it in config.yaml or NICKLPASS_GOOGLE_REDIRECT_URL"))
	}
	if c.Session.Secret == "" {
		errs = append(errs, fmt.Errorf("session.secret is required, set it in config.yaml or NICKLPASS_SESSION_SECRET"))
	}

	switch c.Session.Store {
	case SessionStoreMemory, SessionStoreSQLite:
	default:
		errs = append(errs, fmt.Errorf("unsupported session.store %q", c.Session.Store))
	}
	switch c.Plaid.Env {
	case PlaidSandbox, PlaidDevelopment, PlaidProduction:
	default:
		errs = append(errs, fmt.Errorf("unsupported plaid.env %q", c.Plaid.Env))
	}
	switch c.Workspace.OnUserError {
	case UserErrorSkip, UserErrorAbort:
	default:
		errs = append(errs, fmt.Errorf("unsupported workspace.on_user_error %q", c.Workspace.OnUserError))
	}
	return errors.Join(errs...)
}

// Addr returns the host:port the server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
