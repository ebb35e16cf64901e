// Package llm turns a post or comment into a one-word reaction using a
// generative model.
package llm

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"
)

// DefaultModel is used when neither the config nor GOOGLE_MODEL names one.
const DefaultModel = "gemini-2.0-flash"

// GeminiConfig holds configuration for the Gemini model.
type GeminiConfig struct {
	APIKey string // If empty, uses GOOGLE_API_KEY, then GEMINI_API_KEY
	Model  string
}

// NewGeminiModel creates an ADK model backed by the Gemini API.
func NewGeminiModel(ctx context.Context, cfg GeminiConfig) (model.LLM, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY not set")
	}

	name := cfg.Model
	if name == "" {
		name = os.Getenv("GOOGLE_MODEL")
	}
	if name == "" {
		name = DefaultModel
	}

	m, err := gemini.NewModel(ctx, name, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini model (%s): %w", name, err)
	}
	return m, nil
}

// GenerationConfig returns the sampling and safety settings used for every
// word request.
func GenerationConfig() *genai.GenerateContentConfig {
	block := genai.HarmBlockThresholdBlockMediumAndAbove
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.9),
		TopP:            genai.Ptr[float32](1),
		TopK:            genai.Ptr[float32](1),
		MaxOutputTokens: 16,
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: block},
			{Category: genai.HarmCategoryHateSpeech, Threshold: block},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: block},
			{Category: genai.HarmCategoryDangerousContent, Threshold: block},
		},
	}
}
