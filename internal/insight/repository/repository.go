package repository

import (
	"context"
	"time"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/domain"

	"gorm.io/gorm"
)

// InsightRepository defines the interface for insight data access
type InsightRepository interface {
	// WithTx returns a repository bound to tx
	WithTx(tx *gorm.DB) InsightRepository

	// CreateBatch inserts insights in one statement batch
	CreateBatch(ctx context.Context, insights []*domain.Insight) error

	// FindByID finds an insight by ID; nil when absent
	FindByID(ctx context.Context, id string) (*domain.Insight, error)

	// FindByIDs loads insights in no particular order
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Insight, error)

	// FindByTranscript lists the insights of a transcript
	FindByTranscript(ctx context.Context, transcriptID string, includeArchived bool) ([]*domain.Insight, error)

	// ArchiveForTranscript archives the active insights of a transcript inside tx
	ArchiveForTranscript(ctx context.Context, tx *gorm.DB, transcriptID string) ([]string, error)

	// ClaimExport marks provider as pending under a row lock. It reports false,
	// without writing, when provider already succeeded or holds a fresh claim.
	ClaimExport(ctx context.Context, id, provider, configID string, now time.Time, staleAfter time.Duration) (*domain.Insight, bool, error)

	// RecordExportAttempt re-reads the insight and stores the attempt for
	// provider. A recorded success is never replaced by a failure.
	RecordExportAttempt(ctx context.Context, id, provider string, attempt domain.ExportAttempt) (*domain.Insight, error)
}
