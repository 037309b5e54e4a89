package cloudimport

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tdomain "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/domain"
	tusecase "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/usecase"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/apperr"
)

const importComponent = "cloudimport"

// Importer turns one recording into an ingested transcript.
type Importer struct {
	source      RecordingSource
	ingestion   tusecase.IngestionUsecase
	ownerUserID string
	channelID   string
	logger      *slog.Logger
}

// NewImporter creates an importer that ingests on behalf of ownerUserID.
func NewImporter(source RecordingSource, ingestion tusecase.IngestionUsecase, ownerUserID, channelID string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		source:      source,
		ingestion:   ingestion,
		ownerUserID: ownerUserID,
		channelID:   channelID,
		logger:      logger.With("component", importComponent),
	}
}

// Import downloads and ingests rec. Redelivered recordings come back as
// duplicates from ingestion.
func (im *Importer) Import(ctx context.Context, rec Recording) (*tusecase.IngestResult, error) {
	if strings.TrimSpace(rec.TranscriptURL) == "" {
		return nil, apperr.Validation(importComponent, "recording has no transcript file")
	}
	text, err := im.source.DownloadTranscript(ctx, rec.TranscriptURL)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransient, importComponent, "download", rec.MeetingID, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation(importComponent, fmt.Sprintf("transcript of %s is empty", rec.MeetingID))
	}

	req := tusecase.IngestRequest{
		Title:             rec.Topic,
		Content:           text,
		Origin:            string(tdomain.OriginCloudImport),
		OwnerUserID:       im.ownerUserID,
		ChannelID:         im.channelID,
		ExternalMeetingID: rec.MeetingID,
		Metadata: map[string]interface{}{
			"meeting_id": rec.MeetingID,
			"start_time": rec.StartTime.UTC().Format(time.RFC3339),
		},
	}
	if rec.Duration > 0 {
		seconds := int(rec.Duration.Seconds())
		req.DurationSeconds = &seconds
	}
	result, err := im.ingestion.Ingest(ctx, req)
	if err != nil {
		return nil, err
	}
	im.logger.Info("recording imported",
		"meeting_id", rec.MeetingID,
		"transcript_id", result.TranscriptID,
		"duplicate", result.Duplicate)
	return result, nil
}
