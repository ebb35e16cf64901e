package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/actuator"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/engine"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/filter"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/health"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/ledger"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/llm"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/reddit"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Watch the subreddit and reply until interrupted",
		Long: `Start the bot against the configured subreddit.

Only items created after startup are answered. The liveness endpoint is
served on health.addr (PORT) while the bot runs.

Example:
  onewordmenace run --config bot.toml
  SUBREDDIT_NAME=AnarchyChess onewordmenace run -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBot(ctx, opts)
		},
	}
}

func runBot(ctx context.Context, opts *rootOptions) error {
	cfg := opts.cfg
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	runID := uuid.NewString()
	if id, err := uuid.NewV7(); err == nil {
		runID = id.String()
	}
	logger := opts.logger.With("run_id", runID)

	client := newRedditClient(ctx, opts)
	self := cfg.Reddit.Username
	if self == "" {
		name, err := client.Me(ctx)
		if err != nil {
			return fmt.Errorf("resolve bot account: %w", err)
		}
		self = name
	}
	logger.Info("authenticated", "account", self, "subreddit", cfg.Bot.Subreddit)

	store, err := openStore(ctx, cfg.Ledger)
	if err != nil {
		return fmt.Errorf("open ledger store (%s): %w", cfg.Ledger.Backend, err)
	}
	led, err := ledger.Open(ctx, store)
	if err != nil {
		_ = store.Close()
		return err
	}
	defer func() {
		if err := led.Close(); err != nil {
			logger.Error("close ledger", "error", err)
		}
	}()
	logger.Info("ledger loaded", "backend", cfg.Ledger.Backend, "items", led.Len())

	m, err := llm.NewGeminiModel(ctx, llm.GeminiConfig{APIKey: cfg.Gemini.APIKey, Model: cfg.Gemini.Model})
	if err != nil {
		return err
	}
	gen := llm.NewWordGenerator(m, llm.WordConfig{
		Timeout:  cfg.Gemini.Timeout,
		Fallback: cfg.Bot.FallbackWords,
		Logger:   logger,
	})

	kinds, err := cfg.StreamKinds()
	if err != nil {
		return err
	}
	stream := client.NewStream(reddit.StreamConfig{
		Subreddit: cfg.Bot.Subreddit,
		Kinds:     kinds,
	})

	var events engine.EventLogger
	if cfg.Activity.Dir != "" {
		journal, err := engine.OpenJournal(cfg.Activity.Dir)
		if err != nil {
			return err
		}
		defer journal.Close()
		events = journal
	}

	if cfg.Health.Addr != "" {
		srv := health.New(cfg.Health.Addr, "onewordmenace", logger)
		go func() {
			if err := srv.Serve(ctx); err != nil {
				logger.Error("health server stopped", "error", err)
			}
		}()
	}

	eng, err := engine.New(engine.Config{
		Self:      self,
		Source:    stream,
		Platform:  client,
		Generator: gen,
		Ledger:    led,
		Filter:    filter.New(self, cfg.Bot.BlockedUsers, cfg.Bot.BotSuffix),
		Actuator:  actuator.New(cfg.ActuatorConfig(), actuator.WithLogger(logger)),
		Events:    events,
		Logger:    opts.logger,
		RunID:     runID,
	})
	if err != nil {
		return err
	}

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
