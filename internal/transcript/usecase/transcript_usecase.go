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

	"gorm.io/gorm"
)

const transcriptComponent = "transcripts"

// transcriptUsecase implements TranscriptUsecase
type transcriptUsecase struct {
	db       *gorm.DB
	repo     repository.TranscriptRepository
	machine  *StatusMachine
	archiver InsightArchiver
	launcher AnalysisLauncher
	index    IndexRemover
	logger   *slog.Logger
}

// NewTranscriptUsecase creates a new instance of transcriptUsecase
func NewTranscriptUsecase(db *gorm.DB, repo repository.TranscriptRepository, machine *StatusMachine, archiver InsightArchiver, launcher AnalysisLauncher, logger *slog.Logger) TranscriptUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &transcriptUsecase{
		db:       db,
		repo:     repo,
		machine:  machine,
		archiver: archiver,
		launcher: launcher,
		logger:   logger.With("component", transcriptComponent),
	}
}

func (u *transcriptUsecase) SetIndexRemover(remover IndexRemover) {
	u.index = remover
}

func (u *transcriptUsecase) GetTranscript(ctx context.Context, ownerUserID, id string) (*domain.Transcript, error) {
	t, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransient, transcriptComponent, "get", "load transcript", err)
	}
	if t == nil {
		return nil, apperr.Wrap(apperr.ErrNotFound, transcriptComponent, "get", "transcript not found", nil)
	}
	if t.OwnerUserID != ownerUserID {
		return nil, apperr.Wrap(apperr.ErrPermission, transcriptComponent, "get", "transcript belongs to another user", nil)
	}
	return t, nil
}

func (u *transcriptUsecase) ListTranscripts(ctx context.Context, ownerUserID string, status string, limit, offset int) ([]*domain.Transcript, int64, error) {
	var statusFilter *domain.Status
	if status = strings.TrimSpace(status); status != "" {
		s := domain.Status(status)
		if !s.Valid() {
			return nil, 0, apperr.Validation(transcriptComponent, fmt.Sprintf("unknown status %q", status))
		}
		statusFilter = &s
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return u.repo.FindByOwner(ctx, ownerUserID, statusFilter, false, limit, offset)
}

func (u *transcriptUsecase) ListActivities(ctx context.Context, ownerUserID, id string) ([]*domain.Activity, error) {
	if _, err := u.GetTranscript(ctx, ownerUserID, id); err != nil {
		return nil, err
	}
	return u.repo.ListActivities(ctx, id)
}

func (u *transcriptUsecase) Reanalyze(ctx context.Context, ownerUserID, id string) (*IngestResult, error) {
	t, err := u.GetTranscript(ctx, ownerUserID, id)
	if err != nil {
		return nil, err
	}
	if _, err := u.machine.FailIfStale(ctx, t); err != nil {
		return nil, err
	}
	_, archived, err := u.machine.ResetForReanalysis(ctx, id)
	if err != nil {
		return nil, err
	}
	u.dropFromIndex(ctx, archived)

	result := &IngestResult{TranscriptID: id}
	activity := domain.NewActivity(id, domain.ActivityWorkflowStarted, "Analysis workflow started", map[string]interface{}{"reanalysis": true})
	if err := u.launcher.Launch(id); err != nil {
		u.logger.Error("failed to relaunch analysis", "transcript_id", id, "error", err)
		activity = domain.NewActivity(id, domain.ActivityWorkflowStartFailed, "Analysis workflow could not be started",
			map[string]interface{}{"error": err.Error(), "reanalysis": true})
	} else {
		result.WorkflowStarted = true
	}
	if err := u.repo.AddActivity(ctx, activity); err != nil {
		u.logger.Warn("failed to record workflow activity", "transcript_id", id, "error", err)
	}
	return result, nil
}

func (u *transcriptUsecase) Archive(ctx context.Context, ownerUserID, id string) error {
	t, err := u.GetTranscript(ctx, ownerUserID, id)
	if err != nil {
		return err
	}
	if t.Archived {
		return nil
	}
	if t, err = u.machine.FailIfStale(ctx, t); err != nil {
		return err
	}
	if t.Status.InFlight() {
		return apperr.Wrap(apperr.ErrConflict, transcriptComponent, "archive", "analysis in progress", nil)
	}

	var archived []string
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := u.repo.WithTx(tx)
		rows, err := repo.MarkArchived(ctx, id, time.Now().UTC())
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		if u.archiver != nil {
			if archived, err = u.archiver.ArchiveForTranscript(ctx, tx, id); err != nil {
				return err
			}
		}
		return repo.AddActivity(ctx, domain.NewActivity(id, domain.ActivityTranscriptArchived, "Transcript archived",
			map[string]interface{}{"archived_insights": len(archived)}))
	})
	if err != nil {
		return apperr.Wrap(apperr.ErrTransient, transcriptComponent, "archive", "archive transcript", err)
	}
	u.dropFromIndex(ctx, archived)
	u.logger.Info("transcript archived", "transcript_id", id, "archived_insights", len(archived))
	return nil
}

func (u *transcriptUsecase) dropFromIndex(ctx context.Context, insightIDs []string) {
	if u.index == nil || len(insightIDs) == 0 {
		return
	}
	if err := u.index.DeleteInsights(ctx, insightIDs); err != nil {
		u.logger.Warn("failed to remove insights from index", "count", len(insightIDs), "error", err)
	}
}
