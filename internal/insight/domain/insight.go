package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Type is the closed insight taxonomy.
type Type string

const (
	TypePain           Type = "pain"
	TypeBlocker        Type = "blocker"
	TypeConfusion      Type = "confusion"
	TypeQuestion       Type = "question"
	TypeFeatureRequest Type = "feature_request"
	TypeIdea           Type = "idea"
	TypeGain           Type = "gain"
	TypeOutcome        Type = "outcome"
	TypeOpportunity    Type = "opportunity"
	TypeObjection      Type = "objection"
	TypeBuyingSignal   Type = "buying_signal"
	TypeFeedback       Type = "feedback"
	TypeOther          Type = "other"
)

// AllTypes lists the taxonomy in display order.
var AllTypes = []Type{
	TypePain, TypeBlocker, TypeConfusion, TypeQuestion, TypeFeatureRequest, TypeIdea,
	TypeGain, TypeOutcome, TypeOpportunity, TypeObjection, TypeBuyingSignal, TypeFeedback, TypeOther,
}

var typeAliases = map[string]Type{
	"risk":            TypeBlocker,
	"pain_point":      TypePain,
	"problem":         TypePain,
	"feature":         TypeFeatureRequest,
	"request":         TypeFeatureRequest,
	"suggestion":      TypeIdea,
	"win":             TypeGain,
	"concern":         TypeObjection,
	"purchase_signal": TypeBuyingSignal,
	"buying_intent":   TypeBuyingSignal,
	"confusing":       TypeConfusion,
}

// Valid reports whether t is part of the taxonomy.
func (t Type) Valid() bool {
	for _, known := range AllTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseType maps a raw provider label onto the taxonomy. Unknown labels
// become feedback.
func ParseType(raw string) Type {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if t := Type(key); t.Valid() {
		return t
	}
	if t, ok := typeAliases[key]; ok {
		return t
	}
	return TypeFeedback
}

// Status tracks export progress of an insight.
type Status string

const (
	StatusNew          Status = "new"
	StatusExported     Status = "exported"
	StatusExportFailed Status = "export_failed"
)

const (
	MaxTitleRunes       = 70
	MaxDescriptionRunes = 200
)

// Insight is one typed observation extracted from a transcript.
type Insight struct {
	ID                 string                                 `json:"id" gorm:"primaryKey;size:36"`
	TranscriptID       string                                 `json:"transcript_id" gorm:"size:36;not null;index"`
	OwnerUserID        string                                 `json:"owner_user_id" gorm:"size:128;not null;index"`
	Type               Type                                   `json:"type" gorm:"size:32;not null;index"`
	Title              string                                 `json:"title" gorm:"size:70;not null"`
	Description        string                                 `json:"description" gorm:"size:200"`
	Confidence         float64                                `json:"confidence" gorm:"not null"`
	Severity           Severity                               `json:"severity" gorm:"-"`
	Evidence           datatypes.JSONSlice[string]            `json:"evidence"`
	Timestamp          *string                                `json:"timestamp,omitempty" gorm:"size:32"`
	Speaker            *string                                `json:"speaker,omitempty" gorm:"size:128"`
	Area               *string                                `json:"area,omitempty" gorm:"size:64;index"`
	SuggestedActions   datatypes.JSONSlice[string]            `json:"suggested_actions"`
	Exported           bool                                   `json:"exported" gorm:"not null;default:false"`
	Status             Status                                 `json:"status" gorm:"size:32;not null;default:new"`
	ExportDestinations datatypes.JSONType[ExportDestinations] `json:"export_destinations"`
	Archived           bool                                   `json:"archived" gorm:"not null;default:false;index"`
	CreatedAt          time.Time                              `json:"created_at"`
	UpdatedAt          time.Time                              `json:"updated_at"`
}

func (Insight) TableName() string { return "insights" }

// AfterFind recomputes severity; it is never read from storage.
func (i *Insight) AfterFind(tx *gorm.DB) error {
	i.Severity = DeriveSeverity(i.Type, i.Confidence)
	return nil
}

// Destinations returns the export attempts keyed by provider.
func (i *Insight) Destinations() ExportDestinations {
	d := i.ExportDestinations.Data()
	if d == nil {
		return ExportDestinations{}
	}
	return d
}

// ConfidenceBucket groups a confidence score for reporting.
func ConfidenceBucket(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return "high"
	case confidence >= 0.5:
		return "medium"
	default:
		return "low"
	}
}
