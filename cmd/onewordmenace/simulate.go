package main

import (
	"context"
	"fmt"
	"io"
	"iter"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/actuator"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/engine"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/filter"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/forum"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/ledger"
	"github.com/Ojasvtyyyyy/Onewordmenace/pkg/llm"
)

const simSelf = "OneWordMenace"

type simulateOptions struct {
	DataPath string
	Rounds   int
	Offline  bool
	Seed     uint64
}

func newSimulateCommand(opts *rootOptions) *cobra.Command {
	so := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the bot against an in-memory subreddit",
		Long: `Seed a local subreddit, let the bot answer it, let a scripted crowd
reply to the bot, and repeat. The forum, ledger and activity journal are kept
under --data so later runs continue where earlier ones stopped.

Example:
  onewordmenace simulate --offline --rounds 3
  onewordmenace simulate --data ./data/sim-gemini`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd.Context(), opts, so, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&so.DataPath, "data", "./data/simulate", "data directory")
	cmd.Flags().IntVar(&so.Rounds, "rounds", 3, "engine passes; the crowd replies between passes")
	cmd.Flags().BoolVar(&so.Offline, "offline", false, "use a canned model instead of Gemini")
	cmd.Flags().Uint64Var(&so.Seed, "seed", uint64(time.Now().UnixNano()), "random seed for the crowd")
	return cmd
}

func runSimulation(ctx context.Context, opts *rootOptions, so *simulateOptions, out io.Writer) error {
	if so.Rounds < 1 {
		return fmt.Errorf("rounds must be at least 1, got %d", so.Rounds)
	}
	if err := os.MkdirAll(so.DataPath, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	cfg := opts.cfg
	logger := opts.logger

	sub := cfg.Bot.Subreddit
	if sub == "" {
		sub = "AnarchyChess"
	}
	f := forum.New(sub, simSelf, filepath.Join(so.DataPath, "forum"))
	if err := f.Load(); err != nil {
		return fmt.Errorf("load forum: %w", err)
	}
	if len(f.Submissions()) == 0 {
		seedForum(f)
	}

	store, err := ledger.OpenFileStore(filepath.Join(so.DataPath, "ledger"))
	if err != nil {
		return err
	}
	led, err := ledger.Open(ctx, store)
	if err != nil {
		_ = store.Close()
		return err
	}
	defer led.Close()

	var m model.LLM
	if so.Offline {
		m = newCannedModel()
	} else {
		m, err = llm.NewGeminiModel(ctx, llm.GeminiConfig{APIKey: cfg.Gemini.APIKey, Model: cfg.Gemini.Model})
		if err != nil {
			return err
		}
	}
	gen := llm.NewWordGenerator(m, llm.WordConfig{
		Timeout:  cfg.Gemini.Timeout,
		Fallback: cfg.Bot.FallbackWords,
		Logger:   logger,
	})

	activityDir := filepath.Join(so.DataPath, "activity")
	journal, err := engine.OpenJournal(activityDir)
	if err != nil {
		return err
	}
	defer journal.Close()

	eng, err := engine.New(engine.Config{
		Self:      simSelf,
		Source:    engine.SourceFunc(f.Replay),
		Platform:  f,
		Generator: gen,
		Ledger:    led,
		Filter:    filter.New(simSelf, cfg.Bot.BlockedUsers, cfg.Bot.BotSuffix),
		Actuator:  actuator.New(cfg.ActuatorConfig(), actuator.WithLogger(logger)),
		Events:    journal,
		Logger:    logger,
		// Replay everything; there is no live stream to cut off.
		Now: func() time.Time { return time.Time{} },
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "=== OneWordMenace Simulation ===")
	fmt.Fprintf(out, "Subreddit: r/%s\n", sub)
	fmt.Fprintf(out, "Model: %s\n", m.Name())
	fmt.Fprintf(out, "Rounds: %d\n\n", so.Rounds)

	rng := rand.New(rand.NewPCG(so.Seed, so.Seed^0x9e3779b97f4a7c15))
	start := time.Now()
	for round := 0; round < so.Rounds; round++ {
		if round > 0 {
			n, err := crowdReplies(ctx, f, rng)
			if err != nil {
				return err
			}
			logger.Info("crowd replied", "round", round, "comments", n)
		}
		if err := eng.Run(ctx); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	if err := f.Save(); err != nil {
		logger.Warn("failed to save forum", "error", err)
	}

	for _, id := range f.Submissions() {
		outline, err := f.Format(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, outline)
	}

	st := eng.Stats()
	fmt.Fprintln(out, "=== Simulation Complete ===")
	fmt.Fprintf(out, "Duration: %v\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "Processed: %d, replies: %d, skipped: %d, failed: %d\n",
		st.Processed, st.Replies, st.Skipped, st.Failed)
	fmt.Fprintf(out, "Ledger: %d item(s)\n", led.Len())

	if summary, err := analyzeActivity(ctx, activityDir); err == nil {
		printSummary(out, summary)
	} else {
		logger.Warn("activity analysis skipped", "error", err)
	}
	fmt.Fprintln(out, "\nState saved to:", so.DataPath)
	return nil
}

var crowd = []string{"chessFan42", "enPassantEnjoyer", "knightmare_fuel", "petrosianBot", "anarchychess-ai"}

var retorts = []string{
	"wdym",
	"google en passant",
	"holy hell",
	"new response just dropped",
	"actual zombie",
	"call the exorcist",
	"bishop goes on vacation, never comes back",
}

func seedForum(f *forum.Forum) {
	f.Submit("chessFan42", "Is castling legal?", "My opponent castled through check. Is that allowed?")
	f.Submit("enPassantEnjoyer", "Google en passant", "")
	f.Submit("knightmare_fuel", "I hung my queen in 4 moves", "Rate my opening.")
	f.Submit("petrosianBot", "Are you kidding me???", "")
}

// crowdReplies adds one comment under every leaf comment the bot wrote.
func crowdReplies(ctx context.Context, f *forum.Forum, rng *rand.Rand) (int, error) {
	n := 0
	for _, id := range f.Submissions() {
		thread, err := f.Thread(ctx, id)
		if err != nil {
			return n, err
		}
		for _, c := range thread.Comments() {
			if c.Author != simSelf || c.HasReplies() {
				continue
			}
			author := crowd[rng.IntN(len(crowd))]
			if _, err := f.Comment(c.Fullname(), author, retorts[rng.IntN(len(retorts))]); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// cannedModel answers every request with the next word from a fixed list.
type cannedModel struct {
	mu    sync.Mutex
	words []string
	next  int
}

func newCannedModel() *cannedModel {
	return &cannedModel{words: []string{"illegal", "skill", "cope", "brilliant", "blunder", "ratio", "forbidden"}}
}

func (m *cannedModel) Name() string {
	return "canned"
}

func (m *cannedModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	m.mu.Lock()
	word := m.words[m.next%len(m.words)]
	m.next++
	m.mu.Unlock()

	return func(yield func(*model.LLMResponse, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return
		}
		yield(&model.LLMResponse{Content: &genai.Content{
			Role:  "model",
			Parts: []*genai.Part{{Text: word}},
		}}, nil)
	}
}
