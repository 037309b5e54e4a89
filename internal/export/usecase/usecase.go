package usecase

import (
	"context"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/domain"
)

// Item outcomes reported per insight.
const (
	ItemExported = "exported"
	ItemFailed   = "failed"
	ItemSkipped  = "skipped"
)

// Skip reasons.
const (
	SkipNotFound        = "not_found"
	SkipArchived        = "archived"
	SkipLowConfidence   = "below_min_confidence"
	SkipTypeFiltered    = "type_filtered"
	SkipAlreadyExported = "already_exported"
	SkipInProgress      = "export_in_progress"
)

// ItemResult reports what happened to one requested insight.
type ItemResult struct {
	InsightID  string `json:"insightId"`
	Outcome    string `json:"outcome"`
	SkipReason string `json:"skipReason,omitempty"`
	RemoteID   string `json:"remoteId,omitempty"`
	RemoteURL  string `json:"remoteUrl,omitempty"`
	ErrorKind  string `json:"errorKind,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ExportResult summarizes one export batch.
type ExportResult struct {
	ConfigID      string       `json:"configId"`
	Provider      string       `json:"provider"`
	ExportedCount int          `json:"exportedCount"`
	FailedCount   int          `json:"failedCount"`
	SkippedCount  int          `json:"skippedCount"`
	RemoteIDs     []string     `json:"remoteIds"`
	Items         []ItemResult `json:"items"`
}

// ConfigInput creates or replaces an export config. A nil Credentials on
// update keeps the stored ones.
type ConfigInput struct {
	Name          string              `json:"name"`
	Provider      string              `json:"provider"`
	Enabled       *bool               `json:"enabled"`
	AutoExport    bool                `json:"autoExport"`
	Credentials   *domain.Credentials `json:"credentials"`
	Target        domain.Target       `json:"target"`
	FieldMapping  map[string]string   `json:"fieldMapping"`
	MinConfidence float64             `json:"minConfidence"`
	TypeFilter    []string            `json:"typeFilter"`
}

// ExportUsecase defines the business logic interface for exports
type ExportUsecase interface {
	// ExportInsights pushes insights through one of the caller's configs
	ExportInsights(ctx context.Context, ownerUserID, configID string, insightIDs []string) (*ExportResult, error)

	// AutoExport pushes freshly analyzed insights through every auto-export config of the owner
	AutoExport(ctx context.Context, ownerUserID string, insightIDs []string) ([]*ExportResult, error)

	ListConfigs(ctx context.Context, ownerUserID string) ([]*domain.ExportConfig, error)
	CreateConfig(ctx context.Context, ownerUserID string, input ConfigInput) (*domain.ExportConfig, error)
	UpdateConfig(ctx context.Context, ownerUserID, id string, input ConfigInput) (*domain.ExportConfig, error)
	DeleteConfig(ctx context.Context, ownerUserID, id string) error
}
