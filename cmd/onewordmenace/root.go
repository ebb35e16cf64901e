package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/config"
)

// rootOptions holds global flags and what PersistentPreRunE derives from
// them.
type rootOptions struct {
	ConfigPath string
	EnvFile    string
	Verbose    bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "onewordmenace",
		Short: "Reddit bot that answers everything with one word",
		Long: `OneWordMenace watches a subreddit and replies to new posts, and to
replies under its own comments, with a single generated word.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (.toml, .yaml)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before the config")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newWhoamiCommand(opts))
	cmd.AddCommand(newLedgerCommand(opts))
	cmd.AddCommand(newSimulateCommand(opts))
	return cmd
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	if o.EnvFile != "" {
		err := godotenv.Load(o.EnvFile)
		// The default .env is optional; an explicit one is not.
		if err != nil && (cmd.Flags().Changed("env-file") || !errors.Is(err, fs.ErrNotExist)) {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	o.cfg = cfg

	logger, err := newLogger(cfg, o.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	o.logger = logger
	slog.SetDefault(logger)
	return nil
}

func newLogger(cfg *config.Config, verbose bool, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	switch format := cfg.Logging.Format; format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, hopts)), nil
	default:
		return nil, fmt.Errorf("logging.format %q is not text or json", format)
	}
}
