package llm

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

func TestBuildPrompt_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	g.Assert(t, "prompt_submission", []byte(BuildPrompt("Is castling legal?", "")))
	g.Assert(t, "prompt_comment", []byte(BuildPrompt("Google\n  en passant ", " Is castling legal?")))
}
