package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DedupIndexName is the partial unique index that enforces one active
// transcript per (owner, content hash).
const DedupIndexName = "idx_transcripts_dedup"

// gormTranscriptRepository implements TranscriptRepository using GORM
type gormTranscriptRepository struct {
	db *gorm.DB
}

// NewGormTranscriptRepository creates a new GORM-based TranscriptRepository
func NewGormTranscriptRepository(db *gorm.DB) TranscriptRepository {
	return &gormTranscriptRepository{db: db}
}

// AutoMigrate creates the transcript tables and the dedup index.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.Transcript{}, &domain.Activity{}); err != nil {
		return fmt.Errorf("migrate transcripts: %w", err)
	}
	if db.Migrator().HasIndex(&domain.Transcript{}, DedupIndexName) {
		return nil
	}
	if err := db.Exec(dedupIndexSQL(db.Dialector.Name())).Error; err != nil {
		return fmt.Errorf("create %s: %w", DedupIndexName, err)
	}
	return nil
}

func dedupIndexSQL(dialect string) string {
	switch dialect {
	case "mysql":
		// MySQL has no partial indexes; archived rows map to NULL, which a unique index ignores.
		return "CREATE UNIQUE INDEX " + DedupIndexName +
			" ON transcripts (owner_user_id, content_hash, ((IF(archived, NULL, 1))))"
	default:
		return "CREATE UNIQUE INDEX IF NOT EXISTS " + DedupIndexName +
			" ON transcripts (owner_user_id, content_hash) WHERE archived = false"
	}
}

func (r *gormTranscriptRepository) WithTx(tx *gorm.DB) TranscriptRepository {
	return &gormTranscriptRepository{db: tx}
}

func (r *gormTranscriptRepository) FindByID(ctx context.Context, id string) (*domain.Transcript, error) {
	var transcript domain.Transcript
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&transcript).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transcript, nil
}

func (r *gormTranscriptRepository) FindActiveByHash(ctx context.Context, ownerUserID, contentHash string) (*domain.Transcript, error) {
	var transcript domain.Transcript
	err := r.db.WithContext(ctx).
		Where("owner_user_id = ? AND content_hash = ? AND archived = ?", ownerUserID, contentHash, false).
		First(&transcript).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transcript, nil
}

func (r *gormTranscriptRepository) FindByExternalMeetingID(ctx context.Context, ownerUserID, externalID string) (*domain.Transcript, error) {
	var transcript domain.Transcript
	err := r.db.WithContext(ctx).
		Where("owner_user_id = ? AND external_meeting_id = ? AND archived = ?", ownerUserID, externalID, false).
		Order("created_at DESC").
		First(&transcript).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transcript, nil
}

func (r *gormTranscriptRepository) Create(ctx context.Context, transcript *domain.Transcript, activity *domain.Activity) error {
	if transcript.ID == "" {
		transcript.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transcript).Error; err != nil {
			return err
		}
		if activity == nil {
			return nil
		}
		activity.TranscriptID = transcript.ID
		return tx.Create(activity).Error
	})
}

func (r *gormTranscriptRepository) UpdateIfStatus(ctx context.Context, id string, from domain.Status, updates map[string]interface{}) (int64, error) {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	result := r.db.WithContext(ctx).Model(&domain.Transcript{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *gormTranscriptRepository) MarkArchived(ctx context.Context, id string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Transcript{}).
		Where("id = ? AND archived = ?", id, false).
		Updates(map[string]interface{}{
			"archived":    true,
			"archived_at": at,
			"updated_at":  at,
		})
	return result.RowsAffected, result.Error
}

func (r *gormTranscriptRepository) FindByOwner(ctx context.Context, ownerUserID string, status *domain.Status, includeArchived bool, limit, offset int) ([]*domain.Transcript, int64, error) {
	var transcripts []*domain.Transcript
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Transcript{}).Where("owner_user_id = ?", ownerUserID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if !includeArchived {
		query = query.Where("archived = ?", false)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	err := query.Omit("raw_text").Order("created_at DESC, id").
		Limit(limit).Offset(offset).Find(&transcripts).Error
	return transcripts, total, err
}

func (r *gormTranscriptRepository) FindInFlightBefore(ctx context.Context, cutoff time.Time) ([]*domain.Transcript, error) {
	var transcripts []*domain.Transcript
	err := r.db.WithContext(ctx).Omit("raw_text").
		Where("status IN ? AND updated_at < ? AND archived = ?",
			[]domain.Status{domain.StatusAnalyzing, domain.StatusCompiling}, cutoff, false).
		Order("updated_at ASC, id").
		Find(&transcripts).Error
	return transcripts, err
}

func (r *gormTranscriptRepository) AddActivity(ctx context.Context, activity *domain.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *gormTranscriptRepository) ListActivities(ctx context.Context, transcriptID string) ([]*domain.Activity, error) {
	var activities []*domain.Activity
	err := r.db.WithContext(ctx).
		Where("transcript_id = ?", transcriptID).
		Order("created_at ASC, id ASC").
		Find(&activities).Error
	return activities, err
}
