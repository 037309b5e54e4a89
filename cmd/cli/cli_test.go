package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	authUsecase "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/auth/usecase"
	idomain "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/domain"
	insightRepo "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/repository"
	tdomain "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/domain"
	transcriptRepo "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/repository"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/config"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCLIEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meetyai.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", path)
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("LOG_LEVEL", "error")
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestMigrateCommand(t *testing.T) {
	setupCLIEnv(t)
	out, err := runCLI(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Migrated 4 schemas on sqlite")
}

func TestTokenCommandIssuesValidToken(t *testing.T) {
	setupCLIEnv(t)
	out, err := runCLI(t, "token", "--user", "U42", "--ttl", "1h")
	require.NoError(t, err)

	auth := authUsecase.NewAuthUsecase(nil, &config.Config{JWTSecret: "cli-secret", JWTAccessExpiry: time.Hour})
	userID, err := auth.ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "U42", userID)

	_, err = runCLI(t, "token")
	assert.Error(t, err)
}

func TestTranscriptShowRendersInsightsAndTimeline(t *testing.T) {
	path := setupCLIEnv(t)
	_, err := runCLI(t, "migrate")
	require.NoError(t, err)

	db, err := database.Open("sqlite", path, nil)
	require.NoError(t, err)
	ctx := context.Background()
	transcript := &tdomain.Transcript{
		Title:       "Renewal call",
		Origin:      tdomain.OriginChatPaste,
		Status:      tdomain.StatusCompleted,
		OwnerUserID: "U1",
		RawText:     "Bob: the export is slow",
		ContentHash: "abc",
		Summary:     "Customer is unhappy with export speed",
	}
	require.NoError(t, transcriptRepo.NewGormTranscriptRepository(db).Create(ctx, transcript,
		tdomain.NewActivity("", tdomain.ActivityAnalysisCompleted, "Analysis completed", map[string]interface{}{"insights": 1})))
	require.NoError(t, insightRepo.NewGormInsightRepository(db).CreateBatch(ctx, []*idomain.Insight{{
		TranscriptID: transcript.ID,
		OwnerUserID:  "U1",
		Type:         idomain.TypePain,
		Title:        "Exports are slow",
		Confidence:   0.9,
	}}))
	require.NoError(t, database.Close(db))

	out, err := runCLI(t, "transcript", "show", transcript.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Renewal call")
	assert.Contains(t, out, "Customer is unhappy with export speed")
	assert.Contains(t, out, "Exports are slow")
	assert.Contains(t, out, "90%")
	assert.Contains(t, out, "analysis_completed")
	assert.Contains(t, out, "insights=1")

	list, err := runCLI(t, "transcripts", "list", "--user", "U1")
	require.NoError(t, err)
	assert.Contains(t, list, "1 of 1 transcripts")

	_, err = runCLI(t, "transcript", "show", "missing")
	assert.EqualError(t, err, "transcript not found")
}

func TestImportOnceRequiresEnabledImport(t *testing.T) {
	setupCLIEnv(t)
	_, err := runCLI(t, "import-once")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cloud import is disabled")
}

func TestRenderTableAlignsColumns(t *testing.T) {
	out := renderTable([]string{"Name", "Count"}, [][]string{{"a", "1"}, {"bb"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "bb")
	assert.Empty(t, renderTable(nil, nil, nil))
}
