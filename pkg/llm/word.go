package llm

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// DefaultFallback is posted when the model cannot produce a usable word.
const DefaultFallback = "bruh"

// WordConfig configures a WordGenerator.
type WordConfig struct {
	Timeout  time.Duration // per request, default 15s
	Fallback []string      // sanitised at construction; default ["bruh"]
	Config   *genai.GenerateContentConfig
	Logger   *slog.Logger

	// Pick chooses an index in [0, n). Defaults to a uniform random choice.
	Pick func(n int) int
}

// WordGenerator produces one-word reactions. Generate never fails: any
// provider or validation problem resolves to a fallback word.
type WordGenerator struct {
	model    model.LLM
	timeout  time.Duration
	fallback []string
	config   *genai.GenerateContentConfig
	logger   *slog.Logger
	pick     func(n int) int
}

// NewWordGenerator wraps m.
func NewWordGenerator(m model.LLM, cfg WordConfig) *WordGenerator {
	g := &WordGenerator{
		model:   m,
		timeout: cfg.Timeout,
		config:  cfg.Config,
		logger:  cfg.Logger,
		pick:    cfg.Pick,
	}
	if g.timeout <= 0 {
		g.timeout = 15 * time.Second
	}
	if g.config == nil {
		g.config = GenerationConfig()
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.pick == nil {
		g.pick = rand.IntN
	}
	for _, w := range cfg.Fallback {
		if word, ok := Sanitize(w); ok {
			g.fallback = append(g.fallback, word)
		}
	}
	if len(g.fallback) == 0 {
		g.fallback = []string{DefaultFallback}
	}
	return g
}

// Fallback returns one of the configured fallback words.
func (g *WordGenerator) Fallback() string {
	if len(g.fallback) == 1 {
		return g.fallback[0]
	}
	i := g.pick(len(g.fallback))
	if i < 0 || i >= len(g.fallback) {
		i = 0
	}
	return g.fallback[i]
}

// Generate returns a single sanitised word reacting to text. contextText is
// optional surrounding text, such as the submission title for a comment.
func (g *WordGenerator) Generate(ctx context.Context, text, contextText string) string {
	if g.model == nil {
		return g.Fallback()
	}

	raw, err := g.complete(ctx, BuildPrompt(text, contextText))
	if err != nil {
		g.logger.Warn("word generation failed, using fallback", "error", err)
		return g.Fallback()
	}
	word, ok := Sanitize(raw)
	if !ok {
		g.logger.Warn("model output rejected, using fallback", "output", truncate(raw, 80))
		return g.Fallback()
	}
	return word
}

var errEmptyResponse = errors.New("empty model response")

func (g *WordGenerator) complete(ctx context.Context, prompt string) (out string, err error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = errors.New("model panicked")
		}
	}()

	req := &model.LLMRequest{
		Model:    g.model.Name(),
		Contents: genai.Text(prompt),
		Config:   g.config,
	}

	var b strings.Builder
	for resp, err := range g.model.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", err
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		for _, part := range resp.Content.Parts {
			if part != nil && !part.Thought && part.Text != "" {
				b.WriteString(part.Text)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", errEmptyResponse
	}
	return b.String(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
