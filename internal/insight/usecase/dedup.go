package usecase

import (
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/fuzzy"
)

// DefaultDedupThreshold is the similarity above which two candidates are the
// same insight.
const DefaultDedupThreshold = 0.92

// Deduplicate collapses near-identical insights. Of two candidates whose
// normalized title+description similarity exceeds threshold, the one with
// the higher confidence survives; ties keep the earlier one. The survivor
// takes the slot of the first occurrence. It returns the survivors and the
// number discarded.
func Deduplicate(insights []*domain.Insight, threshold float64) ([]*domain.Insight, int) {
	kept := make([]*domain.Insight, 0, len(insights))
	keys := make([]string, 0, len(insights))
	discarded := 0

	for _, candidate := range insights {
		key := fuzzy.Normalize(candidate.Title + " " + candidate.Description)
		match := -1
		for i, existing := range keys {
			if fuzzy.Similarity(key, existing) > threshold {
				match = i
				break
			}
		}
		if match == -1 {
			kept = append(kept, candidate)
			keys = append(keys, key)
			continue
		}
		discarded++
		if candidate.Confidence > kept[match].Confidence {
			kept[match] = candidate
			keys[match] = key
		}
	}
	return kept, discarded
}
