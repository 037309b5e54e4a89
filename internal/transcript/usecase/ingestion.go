package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/repository"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/apperr"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/fingerprint"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/webhook"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const ingestionComponent = "ingestion"

type ingestionUsecase struct {
	repo     repository.TranscriptRepository
	launcher AnalysisLauncher
	logger   *slog.Logger
	now      func() time.Time
}

// NewIngestionUsecase creates the ingestion gateway.
func NewIngestionUsecase(repo repository.TranscriptRepository, launcher AnalysisLauncher, logger *slog.Logger) IngestionUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ingestionUsecase{
		repo:     repo,
		launcher: launcher,
		logger:   logger.With("component", ingestionComponent),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (u *ingestionUsecase) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperr.Validation(ingestionComponent, "content is required")
	}
	owner := strings.TrimSpace(req.OwnerUserID)
	if owner == "" {
		return nil, apperr.Validation(ingestionComponent, "owner user id is required")
	}
	origin, ok := domain.ParseOrigin(req.Origin)
	if !ok {
		return nil, apperr.Validation(ingestionComponent, fmt.Sprintf("unknown origin %q", req.Origin))
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = domain.DefaultTitle
	}
	title = domain.TruncateRunes(title, domain.MaxTitleRunes)
	callbackURL := strings.TrimSpace(req.CallbackURL)
	if callbackURL != "" {
		if err := webhook.ValidateURL(callbackURL); err != nil {
			return nil, apperr.Validation(ingestionComponent, "callback url: "+err.Error())
		}
	}

	hash := fingerprint.Compute(content)
	logger := u.logger.With("owner_user_id", owner, "content_hash", hash, "origin", origin)

	existing, err := u.repo.FindActiveByHash(ctx, owner, hash)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrIngestion, ingestionComponent, "lookup", "dedup lookup failed", err)
	}
	if existing != nil {
		logger.Info("duplicate content, reusing transcript", "transcript_id", existing.ID, "status", existing.Status)
		return u.answerDuplicate(ctx, existing, true), nil
	}

	now := u.now()
	transcript := &domain.Transcript{
		ID:               uuid.New().String(),
		Title:            title,
		Origin:           origin,
		Status:           domain.StatusUploaded,
		OwnerUserID:      owner,
		ChannelID:        strings.TrimSpace(req.ChannelID),
		RawText:          content,
		ContentHash:      hash,
		Language:         strings.TrimSpace(req.Language),
		DurationSeconds:  req.DurationSeconds,
		ParticipantCount: req.ParticipantCount,
		CallbackURL:      callbackURL,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if ext := strings.TrimSpace(req.ExternalMeetingID); ext != "" {
		transcript.ExternalMeetingID = &ext
	}
	if len(req.Metadata) > 0 {
		transcript.Metadata = datatypes.JSONMap(req.Metadata)
	}
	activity := domain.NewActivity(transcript.ID, domain.ActivityIngestionCompleted, "Transcript ingested", map[string]interface{}{
		"origin":         string(origin),
		"content_hash":   hash,
		"content_length": len([]rune(content)),
	})
	activity.CreatedAt = now

	if err := u.repo.Create(ctx, transcript, activity); err != nil {
		// A concurrent ingest of the same content wins the unique index; answer with its row.
		winner, lookupErr := u.repo.FindActiveByHash(ctx, owner, hash)
		if lookupErr == nil && winner != nil {
			logger.Info("lost ingest race to concurrent duplicate", "transcript_id", winner.ID)
			return u.answerDuplicate(ctx, winner, false), nil
		}
		logger.Error("failed to persist transcript", "error", err)
		return nil, apperr.Wrap(apperr.ErrIngestion, ingestionComponent, "persist", "failed to store transcript", err)
	}

	logger.Info("transcript ingested", "transcript_id", transcript.ID, "title", transcript.Title)
	return &IngestResult{
		TranscriptID:    transcript.ID,
		WorkflowStarted: u.launch(ctx, transcript.ID),
	}, nil
}

// answerDuplicate reports an existing transcript. An uploaded transcript whose
// analysis never started is relaunched when relaunch is set.
func (u *ingestionUsecase) answerDuplicate(ctx context.Context, existing *domain.Transcript, relaunch bool) *IngestResult {
	result := &IngestResult{TranscriptID: existing.ID, Duplicate: true}
	if relaunch && existing.Status == domain.StatusUploaded {
		result.WorkflowStarted = u.launch(ctx, existing.ID)
	}
	return result
}

func (u *ingestionUsecase) launch(ctx context.Context, transcriptID string) bool {
	if u.launcher == nil {
		u.recordLaunch(ctx, transcriptID, fmt.Errorf("no analysis launcher configured"))
		return false
	}
	err := u.launcher.Launch(transcriptID)
	u.recordLaunch(ctx, transcriptID, err)
	return err == nil
}

func (u *ingestionUsecase) recordLaunch(ctx context.Context, transcriptID string, launchErr error) {
	activity := domain.NewActivity(transcriptID, domain.ActivityWorkflowStarted, "Analysis workflow started", nil)
	if launchErr != nil {
		u.logger.Error("failed to start analysis workflow", "transcript_id", transcriptID, "error", launchErr)
		activity = domain.NewActivity(transcriptID, domain.ActivityWorkflowStartFailed, "Analysis workflow could not be started",
			map[string]interface{}{"error": launchErr.Error()})
	}
	if err := u.repo.AddActivity(context.WithoutCancel(ctx), activity); err != nil {
		u.logger.Warn("failed to record workflow activity", "transcript_id", transcriptID, "error", err)
	}
}
