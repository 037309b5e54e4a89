//go:build integration

package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/repository"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("meetyai"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := database.Open("postgres", dsn, nil)
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func TestConcurrentIngestCreatesOneTranscriptOnPostgres(t *testing.T) {
	db := setupPostgres(t)
	repo := repository.NewGormTranscriptRepository(db)
	launcher := &fakeLauncher{}
	ingest := NewIngestionUsecase(repo, launcher, nil)

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[string]int{}
		created int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ingest.Ingest(context.Background(), IngestRequest{
				Title:       "Pricing review",
				Content:     "Ann: the enterprise tier is too expensive",
				OwnerUserID: "u1",
			})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			ids[res.TranscriptID]++
			if !res.Duplicate {
				created++
			}
		}()
	}
	wg.Wait()

	require.Len(t, ids, 1)
	assert.Equal(t, 1, created)
	for id := range ids {
		launcher.mu.Lock()
		for _, launched := range launcher.launched {
			assert.Equal(t, id, launched)
		}
		launcher.mu.Unlock()
	}

	var count int64
	require.NoError(t, db.Model(&domain.Transcript{}).Where("owner_user_id = ?", "u1").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestArchivedTranscriptFreesContentOnPostgres(t *testing.T) {
	db := setupPostgres(t)
	repo := repository.NewGormTranscriptRepository(db)
	ingest := NewIngestionUsecase(repo, &fakeLauncher{}, nil)
	ctx := context.Background()
	req := IngestRequest{Content: "Bob: onboarding took two weeks", OwnerUserID: "u1"}

	first, err := ingest.Ingest(ctx, req)
	require.NoError(t, err)
	rows, err := repo.MarkArchived(ctx, first.TranscriptID, time.Now().UTC())
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	second, err := ingest.Ingest(ctx, req)
	require.NoError(t, err)
	assert.False(t, second.Duplicate)
	assert.NotEqual(t, first.TranscriptID, second.TranscriptID)
}
