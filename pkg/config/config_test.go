package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/types"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"REDDIT_CLIENT_ID", "REDDIT_CLIENT_SECRET", "REDDIT_REFRESH_TOKEN", "REDDIT_TOKEN_FILE",
		"REDDIT_USERNAME", "REDDIT_USER_AGENT", "SUBREDDIT_NAME", "GOOGLE_API_KEY",
		"GEMINI_API_KEY", "GOOGLE_MODEL", "LEDGER_BACKEND", "LEDGER_PATH", "DATABASE_URL",
		"FIRESTORE_PROJECT", "GOOGLE_CLOUD_PROJECT", "LOG_LEVEL", "ACTIVITY_DIR", "PORT",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "OneWordMenace Bot 1.0", cfg.Reddit.UserAgent)
	assert.Equal(t, DefaultTokenFile, cfg.Reddit.TokenFile)
	assert.Equal(t, []string{"petrosianBot", "anarchychess-ai"}, cfg.Bot.BlockedUsers)
	assert.Equal(t, "bot", cfg.Bot.BotSuffix)
	assert.Equal(t, BackendFile, cfg.Ledger.Backend)
	assert.Equal(t, ":10000", cfg.Health.Addr)
	assert.Equal(t, 3, cfg.Actuator.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Actuator.Margin)
	assert.Empty(t, cfg.Reddit.RefreshToken)

	kinds, err := cfg.StreamKinds()
	require.NoError(t, err)
	assert.Equal(t, []types.Kind{types.KindSubmission, types.KindComment}, kinds)
}

func TestLoad_TOML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "bot.toml", `
[reddit]
client_id = "cid"
client_secret = "secret"
refresh_token = "rt"

[bot]
subreddit = "AnarchyChess"
kinds = ["comment"]
fallback_words = ["bruh", "skill"]

[gemini]
api_key = "key"
timeout = "3s"

[ledger]
backend = "sqlite"
path = "ledger.db"

[actuator]
max_attempts = 5
margin = "2s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "AnarchyChess", cfg.Bot.Subreddit)
	assert.Equal(t, []string{"bruh", "skill"}, cfg.Bot.FallbackWords)
	assert.Equal(t, 3*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, BackendSQLite, cfg.Ledger.Backend)
	assert.Equal(t, 5, cfg.ActuatorConfig().MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.ActuatorConfig().Margin)
	// Untouched sections keep their defaults.
	assert.Equal(t, 60*time.Second, cfg.Actuator.DefaultWait)

	kinds, err := cfg.StreamKinds()
	require.NoError(t, err)
	assert.Equal(t, []types.Kind{types.KindComment}, kinds)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "bot.yaml", `
reddit:
  client_id: from-file
bot:
  subreddit: chess
logging:
  level: debug
  format: json
`)
	t.Setenv("REDDIT_CLIENT_ID", "from-env")
	t.Setenv("GEMINI_API_KEY", "gem")
	t.Setenv("PORT", "8080")
	t.Setenv("LEDGER_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/bot")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Reddit.ClientID)
	assert.Equal(t, "chess", cfg.Bot.Subreddit)
	assert.Equal(t, "gem", cfg.Gemini.APIKey)
	assert.Equal(t, ":8080", cfg.Health.Addr)
	assert.Equal(t, BackendPostgres, cfg.Ledger.Backend)
	assert.Equal(t, "json", cfg.Logging.Format)

	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestLoad_TokenFile(t *testing.T) {
	clearEnv(t)
	token := writeFile(t, "refresh_token.txt", "  abc123\n")
	t.Setenv("REDDIT_TOKEN_FILE", token)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "abc123", cfg.Reddit.RefreshToken)

	// An explicit token wins over the file.
	t.Setenv("REDDIT_REFRESH_TOKEN", "explicit")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.Reddit.RefreshToken)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeFile(t, "bot.ini", "x=1"))
	assert.ErrorContains(t, err, "unsupported extension")

	_, err = Load(writeFile(t, "bot.toml", "[reddit\n"))
	assert.ErrorContains(t, err, "decode TOML")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Ledger, cfg.Ledger)
}

func TestValidate_ReportsEverything(t *testing.T) {
	cfg := Default()
	cfg.Ledger.Backend = "cassandra"
	cfg.Bot.Kinds = []string{"submission", "wiki"}
	cfg.Logging.Level = "loud"
	cfg.Actuator.MaxAttempts = 0

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"reddit.client_id", "reddit.client_secret", "reddit.refresh_token",
		"bot.subreddit", "gemini.api_key", `unknown kind "wiki"`,
		"cassandra", "logging.level", "actuator.max_attempts",
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestValidate_BackendFields(t *testing.T) {
	base := func() *Config {
		cfg := Default()
		cfg.Reddit.ClientID = "id"
		cfg.Reddit.ClientSecret = "s"
		cfg.Reddit.RefreshToken = "r"
		cfg.Bot.Subreddit = "x"
		cfg.Gemini.APIKey = "k"
		return cfg
	}
	require.NoError(t, base().Validate())

	cfg := base()
	cfg.Ledger.Backend = BackendPostgres
	assert.ErrorContains(t, cfg.Validate(), "ledger.database_url")

	cfg = base()
	cfg.Ledger.Backend = BackendFirestore
	assert.ErrorContains(t, cfg.Validate(), "ledger.firestore_project")

	cfg = base()
	cfg.Ledger.Backend = BackendMemory
	cfg.Ledger.Path = ""
	assert.NoError(t, cfg.Validate())
}

func TestRedacted_HidesSecrets(t *testing.T) {
	cfg := Default()
	cfg.Reddit.ClientSecret = "hunter2"
	cfg.Reddit.RefreshToken = "refresh-me"
	cfg.Gemini.APIKey = "gem-key"
	cfg.Ledger.DatabaseURL = "postgres://user:pw@host/db"

	out := cfg.Redacted()
	for _, secret := range []string{"hunter2", "refresh-me", "gem-key", "pw@host"} {
		assert.NotContains(t, out, secret)
	}
	assert.Contains(t, out, `"backend": "file"`)
}
