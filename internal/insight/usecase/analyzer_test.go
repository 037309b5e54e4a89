package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/repository"
	tdomain "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/domain"
	trepo "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/repository"
	tusecase "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/usecase"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/ai"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type scriptedExtractor struct {
	mu        sync.Mutex
	responses []func() (*ai.Extraction, error)
	calls     int
}

func (s *scriptedExtractor) ExtractInsights(ctx context.Context, text string) (*ai.Extraction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx]()
}

type analyzerFixture struct {
	db          *gorm.DB
	transcripts trepo.TranscriptRepository
	insights    repository.InsightRepository
	analyzer    *Analyzer
	extractor   *scriptedExtractor
	sleeps      []time.Duration
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, trepo.AutoMigrate(db))
	require.NoError(t, repository.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func newAnalyzerFixture(t *testing.T, responses ...func() (*ai.Extraction, error)) *analyzerFixture {
	db := setupTestDB(t)
	f := &analyzerFixture{
		db:          db,
		transcripts: trepo.NewGormTranscriptRepository(db),
		insights:    repository.NewGormInsightRepository(db),
		extractor:   &scriptedExtractor{responses: responses},
	}
	machine := tusecase.NewStatusMachine(db, f.transcripts, nil)
	machine.SetInsightArchiver(f.insights)
	f.analyzer = NewAnalyzer(db, f.transcripts, f.insights, machine, f.extractor,
		WithSleeper(func(_ context.Context, d time.Duration) error {
			f.sleeps = append(f.sleeps, d)
			return nil
		}),
		WithExtractionBackoff(time.Second),
	)
	return f
}

func (f *analyzerFixture) seed(t *testing.T, status tdomain.Status) *tdomain.Transcript {
	t.Helper()
	tr := &tdomain.Transcript{
		Title:       "Renewal call",
		Origin:      tdomain.OriginChatUpload,
		Status:      status,
		OwnerUserID: "u1",
		RawText:     "Dana: the CSV export keeps failing",
		ContentHash: fmt.Sprintf("hash-%d", time.Now().UnixNano()),
	}
	require.NoError(t, f.transcripts.Create(context.Background(), tr, nil))
	return tr
}

func (f *analyzerFixture) activityTypes(t *testing.T, id string) []string {
	t.Helper()
	activities, err := f.transcripts.ListActivities(context.Background(), id)
	require.NoError(t, err)
	var out []string
	for _, a := range activities {
		out = append(out, a.ActivityType)
	}
	return out
}

func goodExtraction() (*ai.Extraction, error) {
	return &ai.Extraction{
		Summary:  "Customer reports failing exports.",
		Context:  "customer_call",
		Provider: "stub",
		Insights: []ai.RawInsight{
			{Type: "pain", Title: "CSV export fails", Description: "Big exports stall often", Confidence: 0.6},
			{Type: "pain", Title: "CSV exports fail", Description: "Big exports stall often", Confidence: 0.9},
			{Type: "risk", Title: "Renewal at risk", Description: "Customer may churn over exports", Confidence: 0.75},
			{Type: "idea"},
		},
	}, nil
}

func transientErr() (*ai.Extraction, error) {
	return nil, &ai.StatusError{Provider: "stub", StatusCode: 503, Body: "overloaded"}
}

func TestAnalyzeCompletes(t *testing.T) {
	f := newAnalyzerFixture(t, goodExtraction)
	tr := f.seed(t, tdomain.StatusUploaded)

	outcome := f.analyzer.Analyze(context.Background(), tr.ID)
	require.Equal(t, AnalysisCompleted, outcome.Status, "err: %v", outcome.Err)
	require.NotNil(t, outcome.Result)
	assert.Len(t, outcome.Result.Insights, 2)
	assert.Equal(t, 1, outcome.Result.Discarded)
	assert.Equal(t, tdomain.StatusCompleted, outcome.Transcript.Status)

	stored, err := f.insights.FindByTranscript(context.Background(), tr.ID, false)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 0.9, stored[0].Confidence)
	assert.Equal(t, "CSV exports fail", stored[0].Title)
	assert.Equal(t, domain.TypeBlocker, stored[1].Type)
	assert.Equal(t, domain.SeverityHigh, stored[1].Severity)

	got, err := f.transcripts.FindByID(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Customer reports failing exports.", got.Summary)
	assert.Equal(t, "customer_call", got.ContextType)
	assert.NotNil(t, got.ProcessedAt)

	assert.Equal(t, []string{
		tdomain.StatusChangedActivity(tdomain.StatusAnalyzing),
		tdomain.StatusChangedActivity(tdomain.StatusCompiling),
		tdomain.StatusChangedActivity(tdomain.StatusCompleted),
		tdomain.ActivityAnalysisCompleted,
	}, f.activityTypes(t, tr.ID))
}

func TestAnalyzeRetriesTransientFailures(t *testing.T) {
	f := newAnalyzerFixture(t, transientErr, transientErr, goodExtraction)
	tr := f.seed(t, tdomain.StatusUploaded)

	outcome := f.analyzer.Analyze(context.Background(), tr.ID)
	require.Equal(t, AnalysisCompleted, outcome.Status)
	assert.Equal(t, 3, outcome.Result.Attempts)
	assert.Equal(t, 3, f.extractor.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, f.sleeps)
}

func TestAnalyzeFailsAfterExhaustingAttempts(t *testing.T) {
	f := newAnalyzerFixture(t, transientErr)
	tr := f.seed(t, tdomain.StatusUploaded)

	outcome := f.analyzer.Analyze(context.Background(), tr.ID)
	assert.Equal(t, AnalysisFailed, outcome.Status)
	assert.Equal(t, "transient_failure", outcome.ErrorCode)
	assert.Equal(t, 3, f.extractor.calls)

	got, err := f.transcripts.FindByID(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tdomain.StatusFailed, got.Status)

	types := f.activityTypes(t, tr.ID)
	assert.Equal(t, []string{
		tdomain.StatusChangedActivity(tdomain.StatusAnalyzing),
		tdomain.StatusChangedActivity(tdomain.StatusFailed),
		tdomain.ActivityAnalysisFailed,
	}, types)

	activities, err := f.transcripts.ListActivities(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "transient_failure", activities[2].Metadata["error_code"])
}

func TestAnalyzeDoesNotRetryMalformedOutput(t *testing.T) {
	f := newAnalyzerFixture(t, func() (*ai.Extraction, error) {
		return ai.ParseExtraction("no json here")
	})
	tr := f.seed(t, tdomain.StatusUploaded)

	outcome := f.analyzer.Analyze(context.Background(), tr.ID)
	assert.Equal(t, AnalysisFailed, outcome.Status)
	assert.Equal(t, "extraction_failure", outcome.ErrorCode)
	assert.Equal(t, 1, f.extractor.calls)
	assert.Empty(t, f.sleeps)
}

func TestAnalyzeSkipsTranscriptOwnedByAnotherRun(t *testing.T) {
	f := newAnalyzerFixture(t, goodExtraction)
	tr := f.seed(t, tdomain.StatusAnalyzing)

	outcome := f.analyzer.Analyze(context.Background(), tr.ID)
	assert.Equal(t, AnalysisSkipped, outcome.Status)
	assert.Zero(t, f.extractor.calls)
	assert.Empty(t, f.activityTypes(t, tr.ID))
}

func TestAnalyzeRecoversFromPanics(t *testing.T) {
	f := newAnalyzerFixture(t, func() (*ai.Extraction, error) { panic("provider exploded") })
	tr := f.seed(t, tdomain.StatusUploaded)

	outcome := f.analyzer.Analyze(context.Background(), tr.ID)
	assert.Equal(t, AnalysisFailed, outcome.Status)

	got, err := f.transcripts.FindByID(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tdomain.StatusFailed, got.Status)
}

func TestReanalysisArchivesPreviousInsights(t *testing.T) {
	f := newAnalyzerFixture(t, goodExtraction)
	tr := f.seed(t, tdomain.StatusUploaded)
	require.Equal(t, AnalysisCompleted, f.analyzer.Analyze(context.Background(), tr.ID).Status)

	machine := tusecase.NewStatusMachine(f.db, f.transcripts, nil)
	machine.SetInsightArchiver(f.insights)
	_, archived, err := machine.ResetForReanalysis(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Len(t, archived, 2)

	require.Equal(t, AnalysisCompleted, f.analyzer.Analyze(context.Background(), tr.ID).Status)
	active, err := f.insights.FindByTranscript(context.Background(), tr.ID, false)
	require.NoError(t, err)
	assert.Len(t, active, 2)
	all, err := f.insights.FindByTranscript(context.Background(), tr.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
