package usecase

import (
	"context"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/domain"
)

// AnalysisLauncher starts the analysis workflow for a transcript.
type AnalysisLauncher interface {
	Launch(transcriptID string) error
}

// IndexRemover drops archived insights from the vector index.
type IndexRemover interface {
	DeleteInsights(ctx context.Context, insightIDs []string) error
}

// IngestRequest is the input of the ingestion entry point.
type IngestRequest struct {
	Title             string
	Content           string
	Origin            string
	OwnerUserID       string
	ChannelID         string
	Language          string
	DurationSeconds   *int
	ParticipantCount  *int
	ExternalMeetingID string
	CallbackURL       string
	Metadata          map[string]interface{}
}

// IngestResult reports where the content landed.
type IngestResult struct {
	TranscriptID    string `json:"transcriptId"`
	WorkflowStarted bool   `json:"workflowStarted"`
	Duplicate       bool   `json:"duplicate"`
}

// IngestionUsecase is the single entry point for new transcript content.
type IngestionUsecase interface {
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)
}

// TranscriptUsecase defines transcript queries and owner actions.
type TranscriptUsecase interface {
	// GetTranscript returns a transcript owned by ownerUserID
	GetTranscript(ctx context.Context, ownerUserID, id string) (*domain.Transcript, error)

	// ListTranscripts lists an owner's transcripts with an optional status filter
	ListTranscripts(ctx context.Context, ownerUserID string, status string, limit, offset int) ([]*domain.Transcript, int64, error)

	// ListActivities returns the timeline of a transcript
	ListActivities(ctx context.Context, ownerUserID, id string) ([]*domain.Activity, error)

	// Reanalyze archives prior insights and restarts analysis
	Reanalyze(ctx context.Context, ownerUserID, id string) (*IngestResult, error)

	// Archive archives a transcript and its insights
	Archive(ctx context.Context, ownerUserID, id string) error

	// SetIndexRemover sets the vector index cleanup hook
	SetIndexRemover(remover IndexRemover)
}
