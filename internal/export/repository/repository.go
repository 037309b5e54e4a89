package repository

import (
	"context"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/domain"
)

// ExportConfigRepository defines the interface for export config data access
type ExportConfigRepository interface {
	// Create inserts a config, assigning an ID when empty
	Create(ctx context.Context, cfg *domain.ExportConfig) error

	// Update saves every column of cfg
	Update(ctx context.Context, cfg *domain.ExportConfig) error

	// Delete removes a config owned by ownerUserID
	Delete(ctx context.Context, ownerUserID, id string) error

	// FindByID finds a config by ID; nil when absent
	FindByID(ctx context.Context, id string) (*domain.ExportConfig, error)

	// FindByOwner lists an owner's configs, newest first
	FindByOwner(ctx context.Context, ownerUserID string) ([]*domain.ExportConfig, error)

	// FindAutoExport lists the enabled auto-export configs of an owner
	FindAutoExport(ctx context.Context, ownerUserID string) ([]*domain.ExportConfig, error)
}
