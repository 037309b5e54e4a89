package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OllamaService implements Extractor using an Ollama local LLM.
type OllamaService struct {
	getBaseURL func() string
	getModel   func() string
	httpClient *http.Client
}

// NewOllamaService creates a new Ollama service
func NewOllamaService(baseURL, model string) *OllamaService {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	return NewOllamaServiceWithGetters(
		func() string { return baseURL },
		func() string { return model },
	)
}

// NewOllamaServiceWithGetters reads the base URL and model on every call so
// runtime settings changes apply to the next extraction.
func NewOllamaServiceWithGetters(getBaseURL, getModel func() string) *OllamaService {
	return &OllamaService{
		getBaseURL: getBaseURL,
		getModel:   getModel,
		httpClient: &http.Client{},
	}
}

type ollamaGenerateRequest struct {
	Model   string             `json:"model"`
	Prompt  string             `json:"prompt"`
	Stream  bool               `json:"stream"`
	Format  string             `json:"format"`
	Options map[string]float64 `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

const maxOllamaResponse = 4 << 20

// ExtractInsights implements Extractor. The model is asked for JSON output
// and the reply goes through the same parser as every other provider.
func (o *OllamaService) ExtractInsights(ctx context.Context, transcript string) (*Extraction, error) {
	endpoint := strings.TrimRight(o.getBaseURL(), "/") + "/api/generate"
	reqBody, err := json.Marshal(ollamaGenerateRequest{
		Model:   o.getModel(),
		Prompt:  BuildPrompt(transcript),
		Format:  "json",
		Options: map[string]float64{"temperature": 0.2},
	})
	if err != nil {
		return nil, fmt.Errorf("encode ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxOllamaResponse))
	if err != nil {
		return nil, fmt.Errorf("read ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: string(ProviderOllama), StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var generated ollamaGenerateResponse
	if err := json.Unmarshal(raw, &generated); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	extraction, err := ParseExtraction(generated.Response)
	if err != nil {
		return nil, err
	}
	extraction.Provider = string(ProviderOllama)
	return extraction, nil
}
