package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// FallbackService routes extraction to the hosted provider first and falls
// back to the local one when the hosted call fails.
type FallbackService struct {
	primary   Extractor
	secondary Extractor
	logger    *slog.Logger
}

// NewFallbackService creates a new fallback service with both providers.
// Either may be nil.
func NewFallbackService(primary, secondary Extractor, logger *slog.Logger) *FallbackService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackService{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With("component", "ai"),
	}
}

// ExtractInsights tries the primary provider, then the secondary. Malformed
// output from the primary is not masked by a fallback call.
func (f *FallbackService) ExtractInsights(ctx context.Context, transcript string) (*Extraction, error) {
	var primaryErr error
	if f.primary != nil {
		result, err := f.primary.ExtractInsights(ctx, transcript)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, ErrMalformedOutput) {
			return nil, err
		}
		primaryErr = err
		if isQuotaError(err) {
			f.logger.Warn("primary provider quota exhausted, falling back", "error", err)
		} else {
			f.logger.Warn("primary provider failed, falling back", "error", err)
		}
	}

	if f.secondary != nil {
		result, err := f.secondary.ExtractInsights(ctx, transcript)
		if err == nil {
			return result, nil
		}
		if primaryErr != nil {
			return nil, fmt.Errorf("all providers failed: %w; secondary: %v", primaryErr, err)
		}
		return nil, err
	}

	if primaryErr != nil {
		return nil, primaryErr
	}
	return nil, fmt.Errorf("no AI provider available for extraction")
}
