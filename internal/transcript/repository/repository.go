package repository

import (
	"context"
	"time"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/domain"

	"gorm.io/gorm"
)

// TranscriptRepository defines the interface for transcript data access
type TranscriptRepository interface {
	// WithTx returns a repository bound to tx
	WithTx(tx *gorm.DB) TranscriptRepository

	// FindByID finds a transcript by its ID; nil when absent
	FindByID(ctx context.Context, id string) (*domain.Transcript, error)

	// FindActiveByHash finds the non-archived transcript for (owner, hash)
	FindActiveByHash(ctx context.Context, ownerUserID, contentHash string) (*domain.Transcript, error)

	// FindByExternalMeetingID finds the newest non-archived transcript imported for a meeting
	FindByExternalMeetingID(ctx context.Context, ownerUserID, externalID string) (*domain.Transcript, error)

	// Create inserts a transcript together with its first activity
	Create(ctx context.Context, transcript *domain.Transcript, activity *domain.Activity) error

	// UpdateIfStatus applies updates only while the row still has status from.
	// Returns the number of rows changed.
	UpdateIfStatus(ctx context.Context, id string, from domain.Status, updates map[string]interface{}) (int64, error)

	// MarkArchived archives a non-archived transcript
	MarkArchived(ctx context.Context, id string, at time.Time) (int64, error)

	// FindByOwner lists transcripts for an owner, newest first
	FindByOwner(ctx context.Context, ownerUserID string, status *domain.Status, includeArchived bool, limit, offset int) ([]*domain.Transcript, int64, error)

	// FindInFlightBefore lists analyzing or compiling transcripts last updated before cutoff
	FindInFlightBefore(ctx context.Context, cutoff time.Time) ([]*domain.Transcript, error)

	// AddActivity appends a timeline entry
	AddActivity(ctx context.Context, activity *domain.Activity) error

	// ListActivities returns the timeline ordered by created_at then insertion sequence
	ListActivities(ctx context.Context, transcriptID string) ([]*domain.Activity, error)
}
