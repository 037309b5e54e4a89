package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const createBatchSize = 100

// gormInsightRepository implements InsightRepository using GORM
type gormInsightRepository struct {
	db *gorm.DB
}

// NewGormInsightRepository creates a new GORM-based InsightRepository
func NewGormInsightRepository(db *gorm.DB) InsightRepository {
	return &gormInsightRepository{db: db}
}

// AutoMigrate creates the insights table.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.Insight{}); err != nil {
		return fmt.Errorf("migrate insights: %w", err)
	}
	return nil
}

func (r *gormInsightRepository) WithTx(tx *gorm.DB) InsightRepository {
	return &gormInsightRepository{db: tx}
}

func (r *gormInsightRepository) CreateBatch(ctx context.Context, insights []*domain.Insight) error {
	if len(insights) == 0 {
		return nil
	}
	for _, ins := range insights {
		if ins.ID == "" {
			ins.ID = uuid.New().String()
		}
		if ins.Status == "" {
			ins.Status = domain.StatusNew
		}
	}
	return r.db.WithContext(ctx).CreateInBatches(insights, createBatchSize).Error
}

func (r *gormInsightRepository) FindByID(ctx context.Context, id string) (*domain.Insight, error) {
	var insight domain.Insight
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&insight).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &insight, nil
}

func (r *gormInsightRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Insight, error) {
	var insights []*domain.Insight
	if len(ids) == 0 {
		return insights, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&insights).Error
	return insights, err
}

func (r *gormInsightRepository) FindByTranscript(ctx context.Context, transcriptID string, includeArchived bool) ([]*domain.Insight, error) {
	var insights []*domain.Insight
	query := r.db.WithContext(ctx).Where("transcript_id = ?", transcriptID)
	if !includeArchived {
		query = query.Where("archived = ?", false)
	}
	err := query.Order("confidence DESC, created_at ASC, id").Find(&insights).Error
	return insights, err
}

func (r *gormInsightRepository) ArchiveForTranscript(ctx context.Context, tx *gorm.DB, transcriptID string) ([]string, error) {
	if tx == nil {
		tx = r.db
	}
	var ids []string
	if err := tx.WithContext(ctx).Model(&domain.Insight{}).
		Where("transcript_id = ? AND archived = ?", transcriptID, false).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return ids, nil
	}
	err := tx.WithContext(ctx).Model(&domain.Insight{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"archived": true, "updated_at": time.Now().UTC()}).Error
	return ids, err
}

// lockForUpdate reads the insight with a row lock. SQLite runs on a single
// connection, so its transactions are already serialized.
func lockForUpdate(tx *gorm.DB, id string, out *domain.Insight) error {
	query := tx
	if tx.Dialector.Name() != "sqlite" {
		query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return query.Where("id = ?", id).First(out).Error
}

func (r *gormInsightRepository) ClaimExport(ctx context.Context, id, provider, configID string, now time.Time, staleAfter time.Duration) (*domain.Insight, bool, error) {
	var out domain.Insight
	claimed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx, id, &out); err != nil {
			return err
		}
		destinations := out.Destinations()
		if destinations.Succeeded(provider) || destinations.InFlight(provider, now, staleAfter) {
			return nil
		}

		destinations[provider] = domain.ExportAttempt{Outcome: domain.OutcomePending, ConfigID: configID, AttemptedAt: now}
		out.ExportDestinations = datatypes.NewJSONType(destinations)
		if err := tx.Model(&domain.Insight{}).Where("id = ?", id).Updates(map[string]interface{}{
			"export_destinations": out.ExportDestinations,
			"updated_at":          time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
		claimed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &out, claimed, nil
}

func (r *gormInsightRepository) RecordExportAttempt(ctx context.Context, id, provider string, attempt domain.ExportAttempt) (*domain.Insight, error) {
	var out domain.Insight
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx, id, &out); err != nil {
			return err
		}

		destinations := out.Destinations()
		if destinations.Succeeded(provider) && attempt.Outcome != domain.OutcomeSuccess {
			return nil
		}
		destinations[provider] = attempt

		updates := map[string]interface{}{
			"export_destinations": datatypes.NewJSONType(destinations),
			"updated_at":          time.Now().UTC(),
		}
		if attempt.Outcome == domain.OutcomeSuccess {
			updates["exported"] = true
			updates["status"] = domain.StatusExported
		} else if !out.Exported {
			updates["status"] = domain.StatusExportFailed
		}
		if err := tx.Model(&domain.Insight{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
