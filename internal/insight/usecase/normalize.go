package usecase

import (
	"math"
	"strings"
	"time"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/ai"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/config"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/fuzzy"

	"github.com/google/uuid"
)

// NormalizeConfidence maps percentages onto [0,1] and clamps the result.
func NormalizeConfidence(c float64) float64 {
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return 0
	}
	if c > 1 && c <= 100 {
		c = c / 100
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// BuildInsight converts a raw candidate into an insight. It returns nil when
// the candidate carries no usable text.
func BuildInsight(raw ai.RawInsight, transcriptID, ownerUserID string, areas config.AreaKeywords, now time.Time) *domain.Insight {
	title := collapseSpace(raw.Title)
	description := collapseSpace(raw.Description)
	if title == "" && description == "" {
		return nil
	}
	if title == "" {
		title = description
	}

	typ := domain.ParseType(raw.Type)
	confidence := NormalizeConfidence(raw.Confidence)
	insight := &domain.Insight{
		ID:               uuid.New().String(),
		TranscriptID:     transcriptID,
		OwnerUserID:      ownerUserID,
		Type:             typ,
		Title:            truncate(title, domain.MaxTitleRunes),
		Description:      truncate(description, domain.MaxDescriptionRunes),
		Confidence:       confidence,
		Severity:         domain.DeriveSeverity(typ, confidence),
		Evidence:         cleanList(raw.Evidence),
		SuggestedActions: cleanList(raw.SuggestedActions),
		Status:           domain.StatusNew,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if s := strings.TrimSpace(raw.Speaker); s != "" {
		insight.Speaker = &s
	}
	if ts := strings.TrimSpace(raw.Timestamp); ts != "" {
		insight.Timestamp = &ts
	}
	if area := TagArea(areas, insight.Title+" "+insight.Description); area != "" {
		insight.Area = &area
	}
	return insight
}

// TagArea returns the product area whose keywords match text most often.
// Ties go to the alphabetically first area; no match returns "".
func TagArea(areas config.AreaKeywords, text string) string {
	if len(areas) == 0 || strings.TrimSpace(text) == "" {
		return ""
	}
	best, bestHits := "", 0
	for _, area := range areas.Areas() {
		hits := 0
		for _, keyword := range areas[area] {
			if fuzzy.ContainsKeyword(text, keyword) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = area, hits
		}
	}
	return best
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
