package usecase

import (
	"context"
	"strings"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/repository"
	trepo "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/repository"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/apperr"
)

const insightComponent = "insights"

type insightUsecase struct {
	insights    repository.InsightRepository
	transcripts trepo.TranscriptRepository
	index       SearchIndex
}

// NewInsightUsecase creates a new instance of insightUsecase
func NewInsightUsecase(insights repository.InsightRepository, transcripts trepo.TranscriptRepository) InsightUsecase {
	return &insightUsecase{insights: insights, transcripts: transcripts}
}

func (u *insightUsecase) SetSearchIndex(index SearchIndex) {
	u.index = index
}

func (u *insightUsecase) ListForTranscript(ctx context.Context, ownerUserID, transcriptID string) ([]*domain.Insight, error) {
	t, err := u.transcripts.FindByID(ctx, transcriptID)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransient, insightComponent, "list", "load transcript", err)
	}
	if t == nil {
		return nil, apperr.Wrap(apperr.ErrNotFound, insightComponent, "list", "transcript not found", nil)
	}
	if t.OwnerUserID != ownerUserID {
		return nil, apperr.Wrap(apperr.ErrPermission, insightComponent, "list", "transcript belongs to another user", nil)
	}
	return u.insights.FindByTranscript(ctx, transcriptID, false)
}

func (u *insightUsecase) Search(ctx context.Context, ownerUserID, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation(insightComponent, "query is required")
	}
	if u.index == nil {
		return nil, apperr.Wrap(apperr.ErrConfiguration, insightComponent, "search", "semantic search is not configured", nil)
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	hits, err := u.index.Search(ctx, ownerUserID, query, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransient, insightComponent, "search", "query index", err)
	}
	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.InsightID)
	}
	found, err := u.insights.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransient, insightComponent, "search", "load insights", err)
	}
	byID := make(map[string]*domain.Insight, len(found))
	for _, ins := range found {
		byID[ins.ID] = ins
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		ins, ok := byID[hit.InsightID]
		// the index may lag behind archive and ownership changes
		if !ok || ins.Archived || ins.OwnerUserID != ownerUserID {
			continue
		}
		results = append(results, SearchResult{Insight: ins, Distance: hit.Distance})
	}
	return results, nil
}
