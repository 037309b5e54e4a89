package ai

import (
	"context"
)

// RawInsight is one candidate insight as returned by the model, before any
// normalization.
type RawInsight struct {
	Type             string   `json:"type"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Confidence       float64  `json:"confidence"`
	Evidence         []string `json:"evidence,omitempty"`
	Speaker          string   `json:"speaker,omitempty"`
	Timestamp        string   `json:"timestamp,omitempty"`
	SuggestedActions []string `json:"suggested_actions,omitempty"`
}

// Extraction is the structured output of one extraction call.
type Extraction struct {
	Summary  string       `json:"summary"`
	Context  string       `json:"context"`
	Insights []RawInsight `json:"insights"`
	Provider string       `json:"-"`
}

// Extractor is the interface for LLM-backed insight extraction.
// Implement this interface to add new AI providers.
type Extractor interface {
	ExtractInsights(ctx context.Context, transcript string) (*Extraction, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
