package ai

import (
	"context"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/gemini"
)

// JSONGenerator is the narrow surface of a hosted model that returns JSON text.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// GeminiExtractor adapts a JSONGenerator to the Extractor interface.
type GeminiExtractor struct {
	client JSONGenerator
}

// NewGeminiExtractor wraps a Gemini client.
func NewGeminiExtractor(apiKey, model string) *GeminiExtractor {
	return &GeminiExtractor{client: gemini.NewGeminiService(apiKey, model)}
}

// NewGeneratorExtractor wraps any JSONGenerator.
func NewGeneratorExtractor(client JSONGenerator) *GeminiExtractor {
	return &GeminiExtractor{client: client}
}

// ExtractInsights implements Extractor.
func (g *GeminiExtractor) ExtractInsights(ctx context.Context, transcript string) (*Extraction, error) {
	raw, err := g.client.GenerateJSON(ctx, BuildPrompt(transcript))
	if err != nil {
		return nil, err
	}
	extraction, err := ParseExtraction(raw)
	if err != nil {
		return nil, err
	}
	extraction.Provider = string(ProviderGemini)
	return extraction, nil
}
