package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormExportConfigRepository implements ExportConfigRepository using GORM
type gormExportConfigRepository struct {
	db *gorm.DB
}

// NewGormExportConfigRepository creates a new GORM-based ExportConfigRepository
func NewGormExportConfigRepository(db *gorm.DB) ExportConfigRepository {
	return &gormExportConfigRepository{db: db}
}

// AutoMigrate creates the export_configs table.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.ExportConfig{}); err != nil {
		return fmt.Errorf("migrate export configs: %w", err)
	}
	return nil
}

func (r *gormExportConfigRepository) Create(ctx context.Context, cfg *domain.ExportConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(cfg).Error
}

func (r *gormExportConfigRepository) Update(ctx context.Context, cfg *domain.ExportConfig) error {
	return r.db.WithContext(ctx).Save(cfg).Error
}

func (r *gormExportConfigRepository) Delete(ctx context.Context, ownerUserID, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		Delete(&domain.ExportConfig{}).Error
}

func (r *gormExportConfigRepository) FindByID(ctx context.Context, id string) (*domain.ExportConfig, error) {
	var cfg domain.ExportConfig
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func (r *gormExportConfigRepository) FindByOwner(ctx context.Context, ownerUserID string) ([]*domain.ExportConfig, error) {
	var configs []*domain.ExportConfig
	err := r.db.WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC").
		Find(&configs).Error
	return configs, err
}

func (r *gormExportConfigRepository) FindAutoExport(ctx context.Context, ownerUserID string) ([]*domain.ExportConfig, error) {
	var configs []*domain.ExportConfig
	err := r.db.WithContext(ctx).
		Where("owner_user_id = ? AND enabled = ? AND auto_export = ?", ownerUserID, true, true).
		Order("created_at ASC").
		Find(&configs).Error
	return configs, err
}
