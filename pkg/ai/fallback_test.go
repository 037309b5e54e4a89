package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	out   *Extraction
	err   error
	calls int
}

func (s *stubExtractor) ExtractInsights(context.Context, string) (*Extraction, error) {
	s.calls++
	return s.out, s.err
}

func TestFallbackUsesSecondaryOnQuotaError(t *testing.T) {
	primary := &stubExtractor{err: &StatusError{Provider: "gemini", StatusCode: 429, Body: "quota"}}
	secondary := &stubExtractor{out: &Extraction{Summary: "local"}}
	f := NewFallbackService(primary, secondary, nil)

	out, err := f.ExtractInsights(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "local", out.Summary)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallbackDoesNotMaskMalformedOutput(t *testing.T) {
	primary := &stubExtractor{err: fmt.Errorf("%w: junk", ErrMalformedOutput)}
	secondary := &stubExtractor{out: &Extraction{}}
	f := NewFallbackService(primary, secondary, nil)

	_, err := f.ExtractInsights(context.Background(), "text")
	assert.True(t, errors.Is(err, ErrMalformedOutput))
	assert.Equal(t, 0, secondary.calls)
}

func TestFallbackKeepsPrimaryErrorChain(t *testing.T) {
	primary := &stubExtractor{err: context.DeadlineExceeded}
	secondary := &stubExtractor{err: errors.New("connection refused")}
	f := NewFallbackService(primary, secondary, nil)

	_, err := f.ExtractInsights(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestIsTransientClassification(t *testing.T) {
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.True(t, IsTransient(&StatusError{StatusCode: 502}))
	assert.True(t, IsTransient(errors.New("dial tcp 127.0.0.1:11434: connection refused")))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(&StatusError{StatusCode: 401}))
	assert.False(t, IsTransient(nil))
}

func TestNewExtractorSelectsProvider(t *testing.T) {
	ex, err := NewExtractor(Config{Provider: ProviderOllama}, nil)
	require.NoError(t, err)
	assert.IsType(t, &OllamaService{}, ex)

	_, err = NewExtractor(Config{Provider: ProviderGemini}, nil)
	assert.Error(t, err)

	ex, err = NewExtractor(Config{Provider: ProviderAuto, GeminiAPIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FallbackService{}, ex)

	_, err = NewExtractor(Config{Provider: "openai"}, nil)
	assert.Error(t, err)
}
