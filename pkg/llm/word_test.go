package llm

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	ailibmodel "github.com/cpunion/ailib/adk/model"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

type mockModel struct {
	mu       sync.Mutex
	reply    string
	err      error
	block    bool
	panics   bool
	requests []*model.LLMRequest
}

func (m *mockModel) Name() string {
	return "mock"
}

func (m *mockModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	return func(yield func(*model.LLMResponse, error) bool) {
		if m.panics {
			panic("boom")
		}
		if m.block {
			<-ctx.Done()
			yield(nil, ctx.Err())
			return
		}
		if m.err != nil {
			yield(nil, m.err)
			return
		}
		yield(&model.LLMResponse{Content: &genai.Content{
			Role:  "model",
			Parts: []*genai.Part{{Text: m.reply}},
		}}, nil)
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerate_WithMockLLM(t *testing.T) {
	mock := ailibmodel.NewMockLLM(&model.LLMResponse{
		Content: &genai.Content{
			Role:  "model",
			Parts: []*genai.Part{{Text: "Illegal!\n"}},
		},
	})
	g := NewWordGenerator(mock, WordConfig{Logger: quietLogger()})

	if got := g.Generate(context.Background(), "Is castling legal?", ""); got != "illegal" {
		t.Fatalf("Generate=%q, want illegal", got)
	}
}

func TestGenerate_SendsPromptAndConfig(t *testing.T) {
	m := &mockModel{reply: "Yes"}
	g := NewWordGenerator(m, WordConfig{Logger: quietLogger()})

	if got := g.Generate(context.Background(), "Google en passant", "Is castling legal?"); got != "yes" {
		t.Fatalf("Generate=%q, want yes", got)
	}
	if len(m.requests) != 1 {
		t.Fatalf("requests=%d, want 1", len(m.requests))
	}
	req := m.requests[0]
	if req.Config == nil || len(req.Config.SafetySettings) != 4 {
		t.Fatalf("expected generation config with 4 safety settings, got %+v", req.Config)
	}
	if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 1 {
		t.Fatalf("unexpected contents: %+v", req.Contents)
	}
	prompt := req.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, "Context: Is castling legal? - Google en passant") {
		t.Fatalf("prompt missing context line:\n%s", prompt)
	}
}

func TestGenerate_FallbackGuarantee(t *testing.T) {
	tests := []struct {
		name  string
		model *mockModel
	}{
		{"provider error", &mockModel{err: errors.New("503 unavailable")}},
		{"empty output", &mockModel{reply: "   "}},
		{"over-length output", &mockModel{reply: strings.Repeat("x", 40)}},
		{"punctuation only", &mockModel{reply: "?!"}},
		{"panic", &mockModel{panics: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWordGenerator(tt.model, WordConfig{
				Fallback: []string{"Meh!"},
				Logger:   quietLogger(),
			})
			got := g.Generate(context.Background(), "anything", "")
			if got != "meh" {
				t.Fatalf("Generate=%q, want sanitised fallback meh", got)
			}
		})
	}
}

func TestGenerate_Timeout(t *testing.T) {
	g := NewWordGenerator(&mockModel{block: true}, WordConfig{
		Timeout: 20 * time.Millisecond,
		Logger:  quietLogger(),
	})

	start := time.Now()
	got := g.Generate(context.Background(), "slow", "")
	if got != DefaultFallback {
		t.Fatalf("Generate=%q, want %q", got, DefaultFallback)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("Generate did not honour timeout")
	}
}

func TestFallback_InvalidEntriesDropped(t *testing.T) {
	g := NewWordGenerator(nil, WordConfig{
		Fallback: []string{"", "!!!", strings.Repeat("z", 30)},
		Logger:   quietLogger(),
	})
	if got := g.Generate(context.Background(), "x", ""); got != DefaultFallback {
		t.Fatalf("Generate=%q, want %q", got, DefaultFallback)
	}
}

func TestFallback_Pick(t *testing.T) {
	g := NewWordGenerator(&mockModel{err: errors.New("down")}, WordConfig{
		Fallback: []string{"bruh", "oof", "yikes"},
		Logger:   quietLogger(),
		Pick:     func(n int) int { return n - 1 },
	})
	if got := g.Generate(context.Background(), "x", ""); got != "yikes" {
		t.Fatalf("Generate=%q, want yikes", got)
	}
}
