package repository

import (
	"context"
	"testing"
	"time"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func seedInsights(t *testing.T, repo InsightRepository, transcriptID string, confidences ...float64) []*domain.Insight {
	t.Helper()
	var out []*domain.Insight
	for _, c := range confidences {
		out = append(out, &domain.Insight{
			TranscriptID: transcriptID,
			OwnerUserID:  "u1",
			Type:         domain.TypeBlocker,
			Title:        "SSO login loops",
			Description:  "Users bounce between the IdP and the app",
			Confidence:   c,
			Evidence:     []string{"it just keeps redirecting"},
		})
	}
	require.NoError(t, repo.CreateBatch(context.Background(), out))
	return out
}

func TestCreateBatchAndSeverityOnLoad(t *testing.T) {
	repo := NewGormInsightRepository(setupTestDB(t))
	ctx := context.Background()
	seeded := seedInsights(t, repo, "t1", 0.75, 0.4)

	loaded, err := repo.FindByTranscript(ctx, "t1", false)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, 0.75, loaded[0].Confidence)
	assert.Equal(t, domain.SeverityHigh, loaded[0].Severity)
	assert.Equal(t, domain.SeverityMedium, loaded[1].Severity)
	assert.Equal(t, domain.StatusNew, loaded[0].Status)
	assert.Equal(t, []string{"it just keeps redirecting"}, []string(loaded[0].Evidence))

	one, err := repo.FindByID(ctx, seeded[1].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityMedium, one.Severity)
}

func TestArchiveForTranscript(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormInsightRepository(db)
	ctx := context.Background()
	seeded := seedInsights(t, repo, "t1", 0.9, 0.8)
	seedInsights(t, repo, "t2", 0.5)

	ids, err := repo.ArchiveForTranscript(ctx, db, "t1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{seeded[0].ID, seeded[1].ID}, ids)

	active, err := repo.FindByTranscript(ctx, "t1", false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := repo.FindByTranscript(ctx, "t1", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	ids, err = repo.ArchiveForTranscript(ctx, db, "t1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRecordExportAttempt(t *testing.T) {
	repo := NewGormInsightRepository(setupTestDB(t))
	ctx := context.Background()
	ins := seedInsights(t, repo, "t1", 0.9)[0]

	failed, err := repo.RecordExportAttempt(ctx, ins.ID, "linear", domain.ExportAttempt{
		Outcome: domain.OutcomeFailed, ErrorKind: "auth", AttemptedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExportFailed, failed.Status)
	assert.False(t, failed.Exported)

	ok, err := repo.RecordExportAttempt(ctx, ins.ID, "linear", domain.ExportAttempt{
		Outcome: domain.OutcomeSuccess, RemoteID: "LIN-42", AttemptedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.True(t, ok.Exported)
	assert.Equal(t, domain.StatusExported, ok.Status)
	assert.Len(t, ok.Destinations(), 1, "a new attempt replaces the previous record")
	assert.Equal(t, "LIN-42", ok.Destinations()["linear"].RemoteID)

	// a later failure on another provider keeps the exported status
	after, err := repo.RecordExportAttempt(ctx, ins.ID, "airtable", domain.ExportAttempt{Outcome: domain.OutcomeFailed})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExported, after.Status)
	assert.Len(t, after.Destinations(), 2)
}

func TestRecordExportAttemptKeepsSuccess(t *testing.T) {
	repo := NewGormInsightRepository(setupTestDB(t))
	ctx := context.Background()
	ins := seedInsights(t, repo, "t1", 0.9)[0]

	_, err := repo.RecordExportAttempt(ctx, ins.ID, "linear", domain.ExportAttempt{
		Outcome: domain.OutcomeSuccess, RemoteID: "LIN-7", AttemptedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	late, err := repo.RecordExportAttempt(ctx, ins.ID, "linear", domain.ExportAttempt{
		Outcome: domain.OutcomeFailed, ErrorKind: "transient", AttemptedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, late.Destinations()["linear"].Outcome)
	assert.Equal(t, "LIN-7", late.Destinations()["linear"].RemoteID)
	assert.Equal(t, domain.StatusExported, late.Status)
}

func TestClaimExport(t *testing.T) {
	repo := NewGormInsightRepository(setupTestDB(t))
	ctx := context.Background()
	ins := seedInsights(t, repo, "t1", 0.9)[0]
	now := time.Now().UTC()

	claimed, ok, err := repo.ClaimExport(ctx, ins.ID, "linear", "cfg-1", now, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.OutcomePending, claimed.Destinations()["linear"].Outcome)

	// a fresh claim blocks a second caller
	_, ok, err = repo.ClaimExport(ctx, ins.ID, "linear", "cfg-1", now.Add(time.Second), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// other providers are independent
	_, ok, err = repo.ClaimExport(ctx, ins.ID, "airtable", "cfg-2", now, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// an abandoned claim can be taken over
	_, ok, err = repo.ClaimExport(ctx, ins.ID, "linear", "cfg-1", now.Add(2*time.Minute), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.RecordExportAttempt(ctx, ins.ID, "linear", domain.ExportAttempt{Outcome: domain.OutcomeSuccess, RemoteID: "LIN-1", AttemptedAt: now})
	require.NoError(t, err)
	_, ok, err = repo.ClaimExport(ctx, ins.ID, "linear", "cfg-1", now.Add(time.Hour), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "an exported insight is never claimed again")
}

func TestFindByIDs(t *testing.T) {
	repo := NewGormInsightRepository(setupTestDB(t))
	seeded := seedInsights(t, repo, "t1", 0.9, 0.8, 0.7)

	found, err := repo.FindByIDs(context.Background(), []string{seeded[0].ID, seeded[2].ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	none, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
