package domain

import (
	"fmt"
	"sort"
	"strings"
)

// InsightField is a source field an export can map.
type InsightField string

const (
	FieldTitle            InsightField = "title"
	FieldDescription      InsightField = "description"
	FieldType             InsightField = "type"
	FieldSeverity         InsightField = "severity"
	FieldConfidence       InsightField = "confidence"
	FieldEvidence         InsightField = "evidence"
	FieldArea             InsightField = "area"
	FieldSpeaker          InsightField = "speaker"
	FieldTimestamp        InsightField = "timestamp"
	FieldSuggestedActions InsightField = "suggested_actions"
	FieldTranscriptTitle  InsightField = "transcript_title"
	FieldTranscriptID     InsightField = "transcript_id"
	FieldInsightID        InsightField = "insight_id"
)

var insightFields = map[InsightField]struct{}{
	FieldTitle: {}, FieldDescription: {}, FieldType: {}, FieldSeverity: {}, FieldConfidence: {},
	FieldEvidence: {}, FieldArea: {}, FieldSpeaker: {}, FieldTimestamp: {}, FieldSuggestedActions: {},
	FieldTranscriptTitle: {}, FieldTranscriptID: {}, FieldInsightID: {},
}

// Valid reports whether f belongs to the closed field set.
func (f InsightField) Valid() bool {
	_, ok := insightFields[f]
	return ok
}

// FieldMapping maps insight fields to destination field names.
type FieldMapping map[InsightField]string

// Validate rejects unknown source fields and empty destination names.
func (m FieldMapping) Validate() error {
	for field, dest := range m {
		if !field.Valid() {
			return fmt.Errorf("unknown insight field %q in field_mapping", field)
		}
		if strings.TrimSpace(dest) == "" {
			return fmt.Errorf("field_mapping for %q has an empty destination", field)
		}
	}
	return nil
}

// DefaultFieldMapping is used when a config maps nothing.
func DefaultFieldMapping(p Provider) FieldMapping {
	switch p {
	case ProviderAirtable:
		return FieldMapping{
			FieldTitle:       "Title",
			FieldDescription: "Description",
			FieldType:        "Type",
			FieldSeverity:    "Severity",
			FieldConfidence:  "Confidence",
		}
	case ProviderLinear:
		return FieldMapping{
			FieldTitle:       "title",
			FieldDescription: "description",
			FieldEvidence:    "Evidence",
			FieldSeverity:    "Severity",
		}
	default:
		return FieldMapping{
			FieldTitle:       "title",
			FieldDescription: "description",
			FieldType:        "type",
			FieldSeverity:    "severity",
			FieldConfidence:  "confidence",
			FieldEvidence:    "evidence",
			FieldInsightID:   "insight_id",
		}
	}
}

// WithDefaults returns a copy in which title and description are always
// mapped, and an empty mapping becomes the provider default.
func (m FieldMapping) WithDefaults(p Provider) FieldMapping {
	defaults := DefaultFieldMapping(p)
	if len(m) == 0 {
		return defaults
	}
	out := make(FieldMapping, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	for _, required := range []InsightField{FieldTitle, FieldDescription} {
		if _, ok := out[required]; !ok {
			out[required] = defaults[required]
		}
	}
	return out
}

// Fields returns the mapped source fields in a stable order.
func (m FieldMapping) Fields() []InsightField {
	fields := make([]InsightField, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}
