package usecase

import (
	"context"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/chroma"
)

// SearchIndex is the semantic index over insights.
type SearchIndex interface {
	Search(ctx context.Context, ownerUserID, query string, limit int) ([]chroma.SearchHit, error)
}

// SearchResult is one semantic search match.
type SearchResult struct {
	Insight  *domain.Insight `json:"insight"`
	Distance float64         `json:"distance"`
}

// InsightUsecase defines insight queries
type InsightUsecase interface {
	// ListForTranscript returns the active insights of a transcript owned by ownerUserID
	ListForTranscript(ctx context.Context, ownerUserID, transcriptID string) ([]*domain.Insight, error)

	// Search runs a semantic query over the owner's insights
	Search(ctx context.Context, ownerUserID, query string, limit int) ([]SearchResult, error)

	// SetSearchIndex sets the semantic index; search is unavailable without one
	SetSearchIndex(index SearchIndex)
}
