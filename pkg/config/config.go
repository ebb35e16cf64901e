// Package config loads bot settings from defaults, an optional TOML or YAML
// file, and environment variables, in that order.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/actuator"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/filter"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/llm"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/reddit"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/types"
)

// Ledger backends.
const (
	BackendFile      = "file"
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// DefaultTokenFile is where the OAuth handshake leaves the refresh token.
const DefaultTokenFile = "refresh_token.txt"

// Config is the full bot configuration.
type Config struct {
	Reddit   RedditConfig   `toml:"reddit" yaml:"reddit" json:"reddit"`
	Bot      BotConfig      `toml:"bot" yaml:"bot" json:"bot"`
	Gemini   GeminiConfig   `toml:"gemini" yaml:"gemini" json:"gemini"`
	Ledger   LedgerConfig   `toml:"ledger" yaml:"ledger" json:"ledger"`
	Actuator ActuatorConfig `toml:"actuator" yaml:"actuator" json:"actuator"`
	Health   HealthConfig   `toml:"health" yaml:"health" json:"health"`
	Logging  LoggingConfig  `toml:"logging" yaml:"logging" json:"logging"`
	Activity ActivityConfig `toml:"activity" yaml:"activity" json:"activity"`
}

type RedditConfig struct {
	ClientID     string `toml:"client_id" yaml:"client_id" json:"client_id"`
	ClientSecret string `toml:"client_secret" yaml:"client_secret" json:"-"`
	RefreshToken string `toml:"refresh_token" yaml:"refresh_token" json:"-"`
	TokenFile    string `toml:"token_file" yaml:"token_file" json:"token_file"`
	Username     string `toml:"username" yaml:"username" json:"username"` // resolved via the API when empty
	UserAgent    string `toml:"user_agent" yaml:"user_agent" json:"user_agent"`
	BaseURL      string `toml:"base_url" yaml:"base_url" json:"base_url"`
}

type BotConfig struct {
	Subreddit     string   `toml:"subreddit" yaml:"subreddit" json:"subreddit"`
	Kinds         []string `toml:"kinds" yaml:"kinds" json:"kinds"`
	BlockedUsers  []string `toml:"blocked_users" yaml:"blocked_users" json:"blocked_users"`
	BotSuffix     string   `toml:"bot_suffix" yaml:"bot_suffix" json:"bot_suffix"`
	FallbackWords []string `toml:"fallback_words" yaml:"fallback_words" json:"fallback_words"`
}

type GeminiConfig struct {
	APIKey  string        `toml:"api_key" yaml:"api_key" json:"-"`
	Model   string        `toml:"model" yaml:"model" json:"model"`
	Timeout time.Duration `toml:"timeout" yaml:"timeout" json:"timeout"`
}

type LedgerConfig struct {
	Backend             string `toml:"backend" yaml:"backend" json:"backend"`
	Path                string `toml:"path" yaml:"path" json:"path"` // directory for file, database file for sqlite
	DatabaseURL         string `toml:"database_url" yaml:"database_url" json:"-"`
	FirestoreProject    string `toml:"firestore_project" yaml:"firestore_project" json:"firestore_project"`
	FirestoreCollection string `toml:"firestore_collection" yaml:"firestore_collection" json:"firestore_collection"`
}

type ActuatorConfig struct {
	MaxAttempts int           `toml:"max_attempts" yaml:"max_attempts" json:"max_attempts"`
	Margin      time.Duration `toml:"margin" yaml:"margin" json:"margin"`
	DefaultWait time.Duration `toml:"default_wait" yaml:"default_wait" json:"default_wait"`
}

type HealthConfig struct {
	Addr string `toml:"addr" yaml:"addr" json:"addr"` // empty disables the server
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `toml:"format" yaml:"format" json:"format"` // text or json
}

type ActivityConfig struct {
	Dir string `toml:"dir" yaml:"dir" json:"dir"` // empty disables the journal
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Reddit: RedditConfig{
			TokenFile: DefaultTokenFile,
			UserAgent: reddit.DefaultUserAgent,
		},
		Bot: BotConfig{
			Kinds:         []string{string(types.KindSubmission), string(types.KindComment)},
			BlockedUsers:  append([]string(nil), filter.DefaultBlocked...),
			BotSuffix:     filter.DefaultBotSuffix,
			FallbackWords: []string{llm.DefaultFallback},
		},
		Gemini: GeminiConfig{
			Model:   llm.DefaultModel,
			Timeout: 15 * time.Second,
		},
		Ledger: LedgerConfig{
			Backend:             BackendFile,
			Path:                filepath.Join("data", "ledger"),
			FirestoreCollection: "processed_items",
		},
		Actuator: ActuatorConfig{
			MaxAttempts: actuator.DefaultConfig.MaxAttempts,
			Margin:      actuator.DefaultConfig.Margin,
			DefaultWait: actuator.DefaultConfig.DefaultWait,
		},
		Health:   HealthConfig{Addr: ":10000"},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Activity: ActivityConfig{Dir: filepath.Join("data", "activity")},
	}
}

// Load builds the configuration. An empty path or a missing file yields the
// defaults; environment overrides are applied either way, then the refresh
// token file is read if no token was configured.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.readTokenFile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode YAML: %w", err)
		}
	default:
		return fmt.Errorf("config %s: unsupported extension %q", path, ext)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables looked up with
// getenv. Unset or empty variables leave the field alone.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}

	set(&c.Reddit.ClientID, "REDDIT_CLIENT_ID")
	set(&c.Reddit.ClientSecret, "REDDIT_CLIENT_SECRET")
	set(&c.Reddit.RefreshToken, "REDDIT_REFRESH_TOKEN")
	set(&c.Reddit.TokenFile, "REDDIT_TOKEN_FILE")
	set(&c.Reddit.Username, "REDDIT_USERNAME")
	set(&c.Reddit.UserAgent, "REDDIT_USER_AGENT")
	set(&c.Bot.Subreddit, "SUBREDDIT_NAME")
	set(&c.Gemini.APIKey, "GOOGLE_API_KEY", "GEMINI_API_KEY")
	set(&c.Gemini.Model, "GOOGLE_MODEL")
	set(&c.Ledger.Backend, "LEDGER_BACKEND")
	set(&c.Ledger.Path, "LEDGER_PATH")
	set(&c.Ledger.DatabaseURL, "DATABASE_URL")
	set(&c.Ledger.FirestoreProject, "FIRESTORE_PROJECT", "GOOGLE_CLOUD_PROJECT")
	set(&c.Logging.Level, "LOG_LEVEL")
	set(&c.Activity.Dir, "ACTIVITY_DIR")

	if port := strings.TrimSpace(getenv("PORT")); port != "" {
		c.Health.Addr = ":" + port
	}
}

func (c *Config) readTokenFile() error {
	if c.Reddit.RefreshToken != "" || c.Reddit.TokenFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.Reddit.TokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read token file: %w", err)
	}
	c.Reddit.RefreshToken = strings.TrimSpace(string(data))
	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	missing := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", field))
		}
	}

	missing("reddit.client_id", c.Reddit.ClientID)
	missing("reddit.client_secret", c.Reddit.ClientSecret)
	missing("reddit.refresh_token", c.Reddit.RefreshToken)
	missing("bot.subreddit", c.Bot.Subreddit)
	missing("gemini.api_key", c.Gemini.APIKey)

	if _, err := c.StreamKinds(); err != nil {
		errs = append(errs, err)
	}

	switch c.Ledger.Backend {
	case BackendFile, BackendSQLite:
		missing("ledger.path", c.Ledger.Path)
	case BackendPostgres:
		missing("ledger.database_url", c.Ledger.DatabaseURL)
	case BackendFirestore:
		missing("ledger.firestore_project", c.Ledger.FirestoreProject)
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("ledger.backend %q is not one of file, sqlite, postgres, firestore, memory", c.Ledger.Backend))
	}

	if c.Actuator.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("actuator.max_attempts must be at least 1, got %d", c.Actuator.MaxAttempts))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not text or json", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// StreamKinds parses Bot.Kinds. An empty list means both kinds.
func (c *Config) StreamKinds() ([]types.Kind, error) {
	if len(c.Bot.Kinds) == 0 {
		return []types.Kind{types.KindSubmission, types.KindComment}, nil
	}
	out := make([]types.Kind, 0, len(c.Bot.Kinds))
	for _, k := range c.Bot.Kinds {
		kind := types.Kind(strings.ToLower(strings.TrimSpace(k)))
		if !kind.Valid() {
			return nil, fmt.Errorf("bot.kinds: unknown kind %q", k)
		}
		out = append(out, kind)
	}
	return out, nil
}

// LogLevel parses Logging.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if c.Logging.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return lvl, nil
}

// ActuatorConfig converts the actuator section.
func (c *Config) ActuatorConfig() actuator.Config {
	margin := c.Actuator.Margin
	if margin == 0 {
		margin = -1 // zero in the file means no margin, not the default
	}
	return actuator.Config{
		MaxAttempts: c.Actuator.MaxAttempts,
		Margin:      margin,
		DefaultWait: c.Actuator.DefaultWait,
	}
}

// Redacted renders the configuration as JSON with secrets left out.
func (c *Config) Redacted() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
