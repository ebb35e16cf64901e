package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/config"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/ledger"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--env-file", ""))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand()
	for _, path := range [][]string{{"run"}, {"whoami"}, {"ledger", "list"}, {"simulate"}} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := newRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	envFile := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, envFile)
	assert.Equal(t, ".env", envFile.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default()
	cfg.Logging = config.LoggingConfig{Level: "warn", Format: "json"}

	var buf bytes.Buffer
	logger, err := newLogger(cfg, false, &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	cfg.Logging = config.LoggingConfig{Level: "warn"}
	logger, err = newLogger(cfg, true, &buf)
	require.NoError(t, err)
	logger.Debug("verbose wins")
	assert.Contains(t, buf.String(), "verbose wins")

	cfg.Logging = config.LoggingConfig{Format: "xml"}
	_, err = newLogger(cfg, false, &buf)
	assert.ErrorContains(t, err, "logging.format")

	cfg.Logging = config.LoggingConfig{Level: "loud"}
	_, err = newLogger(cfg, false, &buf)
	assert.ErrorContains(t, err, "logging.level")
}

func TestRun_InvalidConfig(t *testing.T) {
	for _, k := range []string{"REDDIT_CLIENT_ID", "REDDIT_CLIENT_SECRET", "REDDIT_REFRESH_TOKEN", "SUBREDDIT_NAME", "GOOGLE_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(k, "")
	}
	t.Setenv("REDDIT_TOKEN_FILE", filepath.Join(t.TempDir(), "none.txt"))

	_, err := execute(t, "run")
	require.Error(t, err)
	assert.ErrorContains(t, err, "reddit.client_id")
	assert.ErrorContains(t, err, "bot.subreddit")
}

func TestWhoami_RequiresCredentials(t *testing.T) {
	t.Setenv("REDDIT_CLIENT_ID", "")
	t.Setenv("REDDIT_CLIENT_SECRET", "")
	t.Setenv("REDDIT_REFRESH_TOKEN", "")
	t.Setenv("REDDIT_TOKEN_FILE", filepath.Join(t.TempDir(), "none.txt"))

	_, err := execute(t, "whoami")
	assert.ErrorContains(t, err, "reddit.client_secret")
}

func TestSimulateOfflineThenListLedger(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SUBREDDIT_NAME", "")

	out, err := execute(t, "simulate", "--offline", "--rounds", "2", "--seed", "7", "--data", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Is castling legal?")
	assert.Contains(t, out, "u/OneWordMenace: illegal")
	assert.Contains(t, out, "=== Simulation Complete ===")
	assert.Contains(t, out, "Events by action:")
	assert.NotContains(t, out, "failed: 1")

	store, err := ledger.OpenFileStore(filepath.Join(dir, "ledger"))
	require.NoError(t, err)
	led, err := ledger.Open(context.Background(), store)
	require.NoError(t, err)
	// Three eligible submissions plus the crowd's eligible replies.
	assert.GreaterOrEqual(t, led.Len(), 3)
	require.NoError(t, led.Close())

	t.Setenv("LEDGER_BACKEND", "file")
	t.Setenv("LEDGER_PATH", filepath.Join(dir, "ledger"))
	out, err = execute(t, "ledger", "list", "--kind", "submission")
	require.NoError(t, err)
	assert.Contains(t, out, "3 item(s)")

	_, err = execute(t, "ledger", "list", "--kind", "wiki")
	assert.ErrorContains(t, err, "invalid kind")
}

func TestSimulate_ResumesWithoutDuplicates(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "simulate", "--offline", "--rounds", "1", "--seed", "1", "--data", dir)
	require.NoError(t, err)
	out, err := execute(t, "simulate", "--offline", "--rounds", "1", "--seed", "1", "--data", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "replies: 0")
}
