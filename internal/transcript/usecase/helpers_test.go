package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/repository"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

type fakeLauncher struct {
	mu       sync.Mutex
	launched []string
	err      error
}

func (f *fakeLauncher) Launch(transcriptID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.launched = append(f.launched, transcriptID)
	return nil
}

func (f *fakeLauncher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.launched)
}

type fakeArchiver struct {
	ids   []string
	calls int
}

func (f *fakeArchiver) ArchiveForTranscript(_ context.Context, _ *gorm.DB, _ string) ([]string, error) {
	f.calls++
	return f.ids, nil
}

type fakeIndex struct {
	deleted []string
}

func (f *fakeIndex) DeleteInsights(_ context.Context, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

func activityTypes(t *testing.T, repo repository.TranscriptRepository, id string) []string {
	t.Helper()
	activities, err := repo.ListActivities(context.Background(), id)
	require.NoError(t, err)
	out := make([]string, 0, len(activities))
	for _, a := range activities {
		out = append(out, a.ActivityType)
	}
	return out
}

func statusActivities(t *testing.T, repo repository.TranscriptRepository, id string) []string {
	t.Helper()
	var out []string
	for _, kind := range activityTypes(t, repo, id) {
		for _, s := range []domain.Status{domain.StatusUploaded, domain.StatusAnalyzing, domain.StatusCompiling, domain.StatusCompleted, domain.StatusFailed} {
			if kind == domain.StatusChangedActivity(s) {
				out = append(out, string(s))
			}
		}
	}
	return out
}
