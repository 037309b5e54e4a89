package usecase

import (
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/domain"
	idomain "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/domain"
)

// MapFields renders ins through mapping. Empty optional values are omitted.
func MapFields(ins *idomain.Insight, transcriptTitle string, mapping domain.FieldMapping) map[string]any {
	out := make(map[string]any, len(mapping))
	for _, field := range mapping.Fields() {
		if v := fieldValue(ins, transcriptTitle, field); v != nil {
			out[mapping[field]] = v
		}
	}
	return out
}

func fieldValue(ins *idomain.Insight, transcriptTitle string, field domain.InsightField) any {
	switch field {
	case domain.FieldTitle:
		return ins.Title
	case domain.FieldDescription:
		return ins.Description
	case domain.FieldType:
		return string(ins.Type)
	case domain.FieldSeverity:
		severity := ins.Severity
		if severity == "" {
			severity = idomain.DeriveSeverity(ins.Type, ins.Confidence)
		}
		return string(severity)
	case domain.FieldConfidence:
		return ins.Confidence
	case domain.FieldEvidence:
		if len(ins.Evidence) == 0 {
			return nil
		}
		return []string(ins.Evidence)
	case domain.FieldSuggestedActions:
		if len(ins.SuggestedActions) == 0 {
			return nil
		}
		return []string(ins.SuggestedActions)
	case domain.FieldArea:
		return optional(ins.Area)
	case domain.FieldSpeaker:
		return optional(ins.Speaker)
	case domain.FieldTimestamp:
		return optional(ins.Timestamp)
	case domain.FieldTranscriptTitle:
		if transcriptTitle == "" {
			return nil
		}
		return transcriptTitle
	case domain.FieldTranscriptID:
		return ins.TranscriptID
	case domain.FieldInsightID:
		return ins.ID
	}
	return nil
}

func optional(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
