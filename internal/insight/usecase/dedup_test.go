package usecase

import (
	"testing"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/fuzzy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(id, title, description string, confidence float64) *domain.Insight {
	return &domain.Insight{ID: id, Title: title, Description: description, Confidence: confidence}
}

func TestDeduplicateKeepsHigherConfidence(t *testing.T) {
	a := candidate("a", "CSV export fails", "Big exports stall often", 0.6)
	b := candidate("b", "CSV exports fail", "Big exports stall often", 0.9)
	require.InDelta(t, 0.95, fuzzy.Similarity(a.Title+" "+a.Description, b.Title+" "+b.Description), 1e-9)

	kept, discarded := Deduplicate([]*domain.Insight{a, b}, DefaultDedupThreshold)
	require.Len(t, kept, 1)
	assert.Equal(t, 1, discarded)
	assert.Equal(t, "b", kept[0].ID)
	assert.Equal(t, "CSV exports fail", kept[0].Title)
}

func TestDeduplicateTieKeepsEarlier(t *testing.T) {
	a := candidate("a", "CSV export fails", "Big exports stall often", 0.8)
	b := candidate("b", "CSV exports fail", "Big exports stall often", 0.8)

	kept, discarded := Deduplicate([]*domain.Insight{a, b}, DefaultDedupThreshold)
	require.Len(t, kept, 1)
	assert.Equal(t, 1, discarded)
	assert.Equal(t, "a", kept[0].ID)
}

func TestDeduplicateKeepsDistinctAndOrder(t *testing.T) {
	in := []*domain.Insight{
		candidate("a", "CSV export fails", "Big exports stall often", 0.5),
		candidate("b", "Dark mode wanted", "Users ask for a dark theme", 0.7),
		candidate("c", "csv export fails!", "Big exports stall often.", 0.9),
		candidate("d", "SSO login loops", "Users bounce between IdP and app", 0.6),
	}
	kept, discarded := Deduplicate(in, DefaultDedupThreshold)
	assert.Equal(t, 1, discarded)
	ids := []string{}
	for _, k := range kept {
		ids = append(ids, k.ID)
	}
	assert.Equal(t, []string{"c", "b", "d"}, ids)
}

func TestDeduplicateEmpty(t *testing.T) {
	kept, discarded := Deduplicate(nil, DefaultDedupThreshold)
	assert.Empty(t, kept)
	assert.Zero(t, discarded)
}
