package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/repository"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/apperr"

	"gorm.io/gorm"
)

const statusComponent = "status_machine"

// StaleAnalysisCode is the error code recorded when an abandoned analysis is failed.
const StaleAnalysisCode = "stale_analysis"

// InsightArchiver archives the active insights of a transcript inside tx and
// returns their ids.
type InsightArchiver interface {
	ArchiveForTranscript(ctx context.Context, tx *gorm.DB, transcriptID string) ([]string, error)
}

// StatusMachine owns every status change of a transcript. Each change is a
// compare-and-set on the current status and writes its activity in the same
// transaction.
type StatusMachine struct {
	db       *gorm.DB
	repo     repository.TranscriptRepository
	archiver InsightArchiver
	logger   *slog.Logger
	now      func() time.Time

	staleAfter time.Duration
}

// NewStatusMachine creates a StatusMachine.
func NewStatusMachine(db *gorm.DB, repo repository.TranscriptRepository, logger *slog.Logger) *StatusMachine {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusMachine{
		db:     db,
		repo:   repo,
		logger: logger.With("component", statusComponent),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetInsightArchiver wires the insight store used by ResetForReanalysis.
func (m *StatusMachine) SetInsightArchiver(archiver InsightArchiver) {
	m.archiver = archiver
}

// SetStaleAfter sets how long an analyzing or compiling transcript may go
// without an update before its analysis counts as abandoned. Zero disables
// recovery.
func (m *StatusMachine) SetStaleAfter(d time.Duration) {
	m.staleAfter = d
}

// Stale reports whether t is in flight and has not been updated for staleAfter.
func (m *StatusMachine) Stale(t *domain.Transcript) bool {
	return m.staleAfter > 0 && t != nil && t.Status.InFlight() && m.now().Sub(t.UpdatedAt) >= m.staleAfter
}

// FailIfStale moves an abandoned in-flight transcript to failed with an
// analysis_failed activity and returns the current row. Other transcripts are
// returned unchanged.
func (m *StatusMachine) FailIfStale(ctx context.Context, t *domain.Transcript) (*domain.Transcript, error) {
	if !m.Stale(t) {
		return t, nil
	}
	var failed *domain.Transcript
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meta := map[string]interface{}{"error_code": StaleAnalysisCode}
		updated, err := m.TransitionTx(ctx, tx, t.ID, domain.StatusFailed, nil, meta)
		if err != nil {
			return err
		}
		failed = updated
		return m.repo.WithTx(tx).AddActivity(ctx, domain.NewActivity(t.ID, domain.ActivityAnalysisFailed,
			fmt.Sprintf("Analysis abandoned: no progress in %s state for %s", t.Status, m.staleAfter), meta))
	})
	if errors.Is(err, apperr.ErrConflict) || errors.Is(err, apperr.ErrInvalidTransition) {
		// the row moved on since it was read
		current, findErr := m.repo.FindByID(ctx, t.ID)
		if findErr != nil || current == nil {
			return t, findErr
		}
		return current, nil
	}
	if err != nil {
		return nil, err
	}
	m.logger.Warn("abandoned analysis marked failed", "transcript_id", t.ID, "from", t.Status, "last_update", t.UpdatedAt)
	return failed, nil
}

// FailStale fails every abandoned in-flight transcript and returns how many
// were moved. It runs before analyses are launched at startup.
func (m *StatusMachine) FailStale(ctx context.Context) (int, error) {
	if m.staleAfter <= 0 {
		return 0, nil
	}
	stale, err := m.repo.FindInFlightBefore(ctx, m.now().Add(-m.staleAfter))
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrTransient, statusComponent, "recover", "list stale transcripts", err)
	}
	moved := 0
	for _, t := range stale {
		current, err := m.FailIfStale(ctx, t)
		if err != nil {
			return moved, err
		}
		if current != nil && current.Status == domain.StatusFailed {
			moved++
		}
	}
	return moved, nil
}

// Transition moves transcript id to status to in its own transaction.
func (m *StatusMachine) Transition(ctx context.Context, id string, to domain.Status) (*domain.Transcript, error) {
	var out *domain.Transcript
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := m.TransitionTx(ctx, tx, id, to, nil, nil)
		out = t
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TransitionTx performs the transition inside tx. extra carries additional
// column updates applied atomically with the status change, and metadata is
// attached to the status activity.
func (m *StatusMachine) TransitionTx(ctx context.Context, tx *gorm.DB, id string, to domain.Status, extra map[string]interface{}, metadata map[string]interface{}) (*domain.Transcript, error) {
	repo := m.repo.WithTx(tx)
	t, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransient, statusComponent, "load", "load transcript", err)
	}
	if t == nil {
		return nil, apperr.Wrap(apperr.ErrNotFound, statusComponent, "load", fmt.Sprintf("transcript %s not found", id), nil)
	}

	from := t.Status
	if !domain.CanTransition(from, to) {
		return nil, apperr.Wrap(apperr.ErrInvalidTransition, statusComponent, "transition",
			fmt.Sprintf("%s -> %s is not allowed", from, to), nil)
	}

	now := m.now()
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": now,
	}
	if to == domain.StatusCompleted {
		updates["processed_at"] = now
	}
	for k, v := range extra {
		updates[k] = v
	}

	rows, err := repo.UpdateIfStatus(ctx, id, from, updates)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransient, statusComponent, "transition", "update status", err)
	}
	if rows == 0 {
		return nil, apperr.Wrap(apperr.ErrConflict, statusComponent, "transition",
			fmt.Sprintf("transcript %s left %s before the update", id, from), nil)
	}

	meta := map[string]interface{}{"from": string(from), "to": string(to)}
	for k, v := range metadata {
		meta[k] = v
	}
	activity := domain.NewActivity(id, domain.StatusChangedActivity(to), fmt.Sprintf("Status changed from %s to %s", from, to), meta)
	if err := repo.AddActivity(ctx, activity); err != nil {
		return nil, apperr.Wrap(apperr.ErrTransient, statusComponent, "transition", "record activity", err)
	}

	m.logger.Debug("transcript status changed", "transcript_id", id, "from", from, "to", to)
	return repo.FindByID(ctx, id)
}

// ResetForReanalysis is the only backward move: it archives prior insights,
// clears analysis output and returns the transcript to uploaded.
func (m *StatusMachine) ResetForReanalysis(ctx context.Context, id string) (*domain.Transcript, []string, error) {
	var (
		out      *domain.Transcript
		archived []string
	)
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := m.repo.WithTx(tx)
		t, err := repo.FindByID(ctx, id)
		if err != nil {
			return apperr.Wrap(apperr.ErrTransient, statusComponent, "reset", "load transcript", err)
		}
		if t == nil {
			return apperr.Wrap(apperr.ErrNotFound, statusComponent, "reset", fmt.Sprintf("transcript %s not found", id), nil)
		}
		if t.Archived {
			return apperr.Wrap(apperr.ErrValidation, statusComponent, "reset", "archived transcripts cannot be re-analyzed", nil)
		}
		if t.Status.InFlight() {
			return apperr.Wrap(apperr.ErrConflict, statusComponent, "reset",
				fmt.Sprintf("analysis in progress (%s)", t.Status), nil)
		}

		if m.archiver != nil {
			ids, err := m.archiver.ArchiveForTranscript(ctx, tx, id)
			if err != nil {
				return apperr.Wrap(apperr.ErrTransient, statusComponent, "reset", "archive insights", err)
			}
			archived = ids
		}

		if err := repo.AddActivity(ctx, domain.NewActivity(id, domain.ActivityReanalysisRequested,
			"Re-analysis requested", map[string]interface{}{"archived_insights": len(archived)})); err != nil {
			return apperr.Wrap(apperr.ErrTransient, statusComponent, "reset", "record activity", err)
		}

		now := m.now()
		rows, err := repo.UpdateIfStatus(ctx, id, t.Status, map[string]interface{}{
			"status":       domain.StatusUploaded,
			"processed_at": nil,
			"summary":      "",
			"context_type": "",
			"updated_at":   now,
		})
		if err != nil {
			return apperr.Wrap(apperr.ErrTransient, statusComponent, "reset", "update status", err)
		}
		if rows == 0 {
			return apperr.Wrap(apperr.ErrConflict, statusComponent, "reset",
				fmt.Sprintf("transcript %s left %s before the update", id, t.Status), nil)
		}

		if err := repo.AddActivity(ctx, domain.NewActivity(id, domain.StatusChangedActivity(domain.StatusUploaded),
			fmt.Sprintf("Status changed from %s to %s", t.Status, domain.StatusUploaded),
			map[string]interface{}{"from": string(t.Status), "to": string(domain.StatusUploaded)})); err != nil {
			return apperr.Wrap(apperr.ErrTransient, statusComponent, "reset", "record activity", err)
		}

		out, err = repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	m.logger.Info("transcript reset for re-analysis", "transcript_id", id, "archived_insights", len(archived))
	return out, archived, nil
}
