package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Activity types written to the transcript timeline.
const (
	ActivityIngestionCompleted  = "ingestion_completed"
	ActivityWorkflowStarted     = "workflow_started"
	ActivityWorkflowStartFailed = "workflow_start_failed"
	ActivityAnalysisCompleted   = "analysis_completed"
	ActivityAnalysisFailed      = "analysis_failed"
	ActivityReanalysisRequested = "reanalysis_requested"
	ActivityTranscriptArchived  = "transcript_archived"
	ActivityExportCompleted     = "export_completed"
	ActivityAutoExportCompleted = "auto_export_completed"
	ActivityWebhookDelivered    = "webhook_delivered"
	ActivityWebhookFailed       = "webhook_failed"
	ActivityNotificationSent    = "notification_sent"
)

// Activity is an append-only timeline entry. The auto-increment ID gives the
// insertion sequence used to break created_at ties.
type Activity struct {
	ID           uint64            `json:"id" gorm:"primaryKey;autoIncrement"`
	TranscriptID string            `json:"transcript_id" gorm:"size:36;not null;index"`
	ActivityType string            `json:"activity_type" gorm:"size:64;not null"`
	Message      string            `json:"message"`
	Metadata     datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at" gorm:"index"`
}

func (Activity) TableName() string { return "transcript_activities" }

// NewActivity builds an activity for transcriptID.
func NewActivity(transcriptID, activityType, message string, metadata map[string]interface{}) *Activity {
	a := &Activity{
		TranscriptID: transcriptID,
		ActivityType: activityType,
		Message:      message,
	}
	if len(metadata) > 0 {
		a.Metadata = datatypes.JSONMap(metadata)
	}
	return a
}
