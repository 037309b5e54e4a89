package ai

import (
	"fmt"
	"log/slog"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "gemini", "ollama" or "auto"

	GeminiAPIKey string
	GeminiModel  string

	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "llama3", "mistral"

	// Optional runtime getters; when set they override the static Ollama values
	GetOllamaBaseURL func() string
	GetOllamaModel   func() string
}

func (cfg Config) ollama() *OllamaService {
	if cfg.GetOllamaBaseURL != nil && cfg.GetOllamaModel != nil {
		return NewOllamaServiceWithGetters(cfg.GetOllamaBaseURL, cfg.GetOllamaModel)
	}
	return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel)
}

// NewExtractor creates an Extractor based on the config.
// Switch AI provider by changing config.Provider.
func NewExtractor(cfg Config, logger *slog.Logger) (Extractor, error) {
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiExtractor(cfg.GeminiAPIKey, cfg.GeminiModel), nil

	case ProviderOllama:
		return cfg.ollama(), nil

	case ProviderAuto, "":
		ollama := cfg.ollama()
		if cfg.GeminiAPIKey == "" {
			return ollama, nil
		}
		return NewFallbackService(NewGeminiExtractor(cfg.GeminiAPIKey, cfg.GeminiModel), ollama, logger), nil

	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
