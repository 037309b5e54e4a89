package domain

// Severity is the derived urgency of an insight.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// DeriveSeverity computes severity from type and confidence. Blockers are
// high above 0.7 and otherwise medium; every other type follows the
// confidence bands 0.8 and 0.5.
func DeriveSeverity(t Type, confidence float64) Severity {
	if t == TypeBlocker {
		if confidence > 0.7 {
			return SeverityHigh
		}
		return SeverityMedium
	}
	switch {
	case confidence >= 0.8:
		return SeverityHigh
	case confidence >= 0.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
