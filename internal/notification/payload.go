package notification

import (
	"math"
	"time"

	idomain "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/domain"
	iusecase "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/usecase"
)

// Webhook events.
const (
	EventAnalysisCompleted = "analysis.completed"
	EventAnalysisFailed    = "analysis.failed"
)

// Payload is the body posted to analysis webhooks.
type Payload struct {
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	CallID    string         `json:"callId"`
	Source    string         `json:"source"`
	Result    *PayloadResult `json:"result,omitempty"`
	Error     *PayloadError  `json:"error,omitempty"`
}

// PayloadResult carries the output of a completed analysis.
type PayloadResult struct {
	Context  string           `json:"context,omitempty"`
	Summary  string           `json:"summary"`
	Insights []PayloadInsight `json:"insights"`
	Metadata PayloadMetadata  `json:"metadata"`
}

// PayloadInsight is one insight as sent to webhook receivers.
type PayloadInsight struct {
	ID                string   `json:"id"`
	Type              string   `json:"type"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Evidence          []string `json:"evidence,omitempty"`
	Confidence        float64  `json:"confidence"`
	ConfidencePercent int      `json:"confidencePercent"`
	Severity          string   `json:"severity"`
	Area              *string  `json:"area,omitempty"`
	SuggestedActions  []string `json:"suggestedActions,omitempty"`
	Timestamp         *string  `json:"timestamp,omitempty"`
	Speaker           *string  `json:"speaker,omitempty"`
}

// PayloadMetadata summarizes the insight counts by confidence bucket.
type PayloadMetadata struct {
	ProcessingTimeMs      *int64 `json:"processingTimeMs,omitempty"`
	InsightCount          int    `json:"insightCount"`
	HighConfidenceCount   int    `json:"highConfidenceCount"`
	MediumConfidenceCount int    `json:"mediumConfidenceCount"`
	LowConfidenceCount    int    `json:"lowConfidenceCount"`
}

// PayloadError describes why an analysis failed.
type PayloadError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// BuildPayload renders a finished analysis. source is the transcript origin.
func BuildPayload(outcome iusecase.AnalysisOutcome, source string, now time.Time) Payload {
	p := Payload{
		Timestamp: now.UTC().Format(time.RFC3339),
		CallID:    outcome.TranscriptID,
		Source:    source,
	}
	if outcome.Status != iusecase.AnalysisCompleted || outcome.Result == nil {
		p.Event = EventAnalysisFailed
		msg := "analysis failed"
		if outcome.Err != nil {
			msg = outcome.Err.Error()
		}
		code := outcome.ErrorCode
		if code == "" {
			code = "internal_error"
		}
		p.Error = &PayloadError{Message: msg, Code: code}
		return p
	}

	res := outcome.Result
	p.Event = EventAnalysisCompleted
	result := &PayloadResult{
		Context:  res.Context,
		Summary:  res.Summary,
		Insights: make([]PayloadInsight, 0, len(res.Insights)),
	}
	for _, ins := range res.Insights {
		result.Insights = append(result.Insights, payloadInsight(ins))
		switch idomain.ConfidenceBucket(ins.Confidence) {
		case "high":
			result.Metadata.HighConfidenceCount++
		case "medium":
			result.Metadata.MediumConfidenceCount++
		default:
			result.Metadata.LowConfidenceCount++
		}
	}
	result.Metadata.InsightCount = len(res.Insights)
	if res.ProcessingTime > 0 {
		ms := res.ProcessingTime.Milliseconds()
		result.Metadata.ProcessingTimeMs = &ms
	}
	p.Result = result
	return p
}

func payloadInsight(ins *idomain.Insight) PayloadInsight {
	severity := ins.Severity
	if severity == "" {
		severity = idomain.DeriveSeverity(ins.Type, ins.Confidence)
	}
	return PayloadInsight{
		ID:                ins.ID,
		Type:              string(ins.Type),
		Title:             ins.Title,
		Description:       ins.Description,
		Evidence:          ins.Evidence,
		Confidence:        ins.Confidence,
		ConfidencePercent: int(math.Round(ins.Confidence * 100)),
		Severity:          string(severity),
		Area:              ins.Area,
		SuggestedActions:  ins.SuggestedActions,
		Timestamp:         ins.Timestamp,
		Speaker:           ins.Speaker,
	}
}
