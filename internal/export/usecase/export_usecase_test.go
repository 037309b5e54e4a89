package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/provider"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/repository"
	idomain "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/domain"
	irepo "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/repository"
	tdomain "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/domain"
	trepo "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/repository"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/apperr"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/crypto"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEncryptionKey = "test-encryption-key"

type fakeProvider struct {
	mu      sync.Mutex
	name    domain.Provider
	records []provider.Record
	failFor map[string]error
	entered chan string
	hold    chan struct{}
}

func (p *fakeProvider) Name() domain.Provider { return p.name }

func (p *fakeProvider) CreateRecord(ctx context.Context, rec provider.Record) (*provider.Result, error) {
	if p.entered != nil {
		p.entered <- rec.InsightID
	}
	if p.hold != nil {
		<-p.hold
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err, ok := p.failFor[rec.InsightID]; ok {
		return nil, err
	}
	p.records = append(p.records, rec)
	return &provider.Result{RemoteID: "rec-" + rec.InsightID, RemoteURL: "https://example.com/" + rec.InsightID}, nil
}

type exportFixture struct {
	usecase     ExportUsecase
	configs     repository.ExportConfigRepository
	insights    irepo.InsightRepository
	transcripts trepo.TranscriptRepository
	provider    *fakeProvider
	gotCreds    domain.Credentials
	transcript  *tdomain.Transcript
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, trepo.AutoMigrate(db))
	require.NoError(t, irepo.AutoMigrate(db))
	require.NoError(t, repository.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	f := &exportFixture{
		configs:     repository.NewGormExportConfigRepository(db),
		insights:    irepo.NewGormInsightRepository(db),
		transcripts: trepo.NewGormTranscriptRepository(db),
		provider:    &fakeProvider{name: domain.ProviderAirtable, failFor: map[string]error{}},
	}
	factory := func(cfg *domain.ExportConfig, creds domain.Credentials) (provider.Provider, error) {
		f.gotCreds = creds
		return f.provider, nil
	}
	f.usecase = NewExportUsecase(f.configs, f.insights, f.transcripts, testEncryptionKey, factory, nil)

	f.transcript = &tdomain.Transcript{
		Title:       "Onboarding interview",
		Origin:      tdomain.OriginChatPaste,
		Status:      tdomain.StatusCompleted,
		OwnerUserID: "u1",
		RawText:     "Ann: SSO keeps looping",
		ContentHash: "hash-export",
	}
	require.NoError(t, f.transcripts.Create(context.Background(), f.transcript, nil))
	return f
}

func (f *exportFixture) seedInsight(t *testing.T, typ idomain.Type, confidence float64) *idomain.Insight {
	t.Helper()
	ins := &idomain.Insight{
		TranscriptID: f.transcript.ID,
		OwnerUserID:  "u1",
		Type:         typ,
		Title:        "SSO login loops",
		Description:  "Users bounce between the IdP and the app",
		Confidence:   confidence,
		Evidence:     []string{"it keeps redirecting"},
	}
	require.NoError(t, f.insights.CreateBatch(context.Background(), []*idomain.Insight{ins}))
	return ins
}

func (f *exportFixture) createConfig(t *testing.T, input ConfigInput) *domain.ExportConfig {
	t.Helper()
	cfg, err := f.usecase.CreateConfig(context.Background(), "u1", input)
	require.NoError(t, err)
	return cfg
}

func airtableInput() ConfigInput {
	return ConfigInput{
		Name:          "Research base",
		Provider:      "airtable",
		Credentials:   &domain.Credentials{APIKey: "pat_123"},
		Target:        domain.Target{Airtable: &domain.AirtableTarget{BaseID: "appXYZ", Table: "Insights"}},
		FieldMapping:  map[string]string{"severity": "Priority", "transcript_title": "Call"},
		MinConfidence: 0.7,
	}
}

func TestCreateConfigSealsCredentials(t *testing.T) {
	f := newExportFixture(t)
	cfg := f.createConfig(t, airtableInput())

	assert.True(t, cfg.Enabled)
	assert.NotContains(t, cfg.EncryptedCredentials, "pat_123")
	plain, err := crypto.Decrypt(cfg.EncryptedCredentials, testEncryptionKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"api_key":"pat_123"}`, plain)

	encoded, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "encrypted")
	assert.NotContains(t, string(encoded), cfg.EncryptedCredentials)
}

func TestCreateConfigValidation(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	noKey := airtableInput()
	noKey.Credentials = nil
	_, err := f.usecase.CreateConfig(ctx, "u1", noKey)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	badField := airtableInput()
	badField.FieldMapping = map[string]string{"mood": "Mood"}
	_, err = f.usecase.CreateConfig(ctx, "u1", badField)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	wrongTarget := airtableInput()
	wrongTarget.Target = domain.Target{Linear: &domain.LinearTarget{TeamID: "t"}}
	_, err = f.usecase.CreateConfig(ctx, "u1", wrongTarget)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestExportInsightsIsIdempotent(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	cfg := f.createConfig(t, airtableInput())
	ins := f.seedInsight(t, idomain.TypeBlocker, 0.9)

	first, err := f.usecase.ExportInsights(ctx, "u1", cfg.ID, []string{ins.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, first.ExportedCount)
	assert.Equal(t, []string{"rec-" + ins.ID}, first.RemoteIDs)
	assert.Equal(t, "pat_123", f.gotCreds.APIKey)

	require.Len(t, f.provider.records, 1)
	fields := f.provider.records[0].Fields
	assert.Equal(t, "SSO login loops", fields["Title"])
	assert.Equal(t, "high", fields["Priority"])
	assert.Equal(t, "Onboarding interview", fields["Call"])

	stored, err := f.insights.FindByID(ctx, ins.ID)
	require.NoError(t, err)
	assert.True(t, stored.Exported)
	assert.Equal(t, idomain.StatusExported, stored.Status)
	assert.Equal(t, "rec-"+ins.ID, stored.Destinations()["airtable"].RemoteID)

	second, err := f.usecase.ExportInsights(ctx, "u1", cfg.ID, []string{ins.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, second.ExportedCount)
	assert.Equal(t, 1, second.SkippedCount)
	assert.Equal(t, SkipAlreadyExported, second.Items[0].SkipReason)
	assert.Len(t, f.provider.records, 1)

	activities, err := f.transcripts.ListActivities(ctx, f.transcript.ID)
	require.NoError(t, err)
	var exports int
	for _, a := range activities {
		if a.ActivityType == tdomain.ActivityExportCompleted {
			exports++
			assert.Equal(t, cfg.ID, a.Metadata["config_id"])
		}
	}
	assert.Equal(t, 1, exports)
}

func TestConcurrentExportsCreateOneRemoteRecord(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	cfg := f.createConfig(t, airtableInput())
	ins := f.seedInsight(t, idomain.TypeBlocker, 0.9)
	f.provider.entered = make(chan string, 2)
	f.provider.hold = make(chan struct{})

	results := make(chan *ExportResult, 2)
	for i := 0; i < 2; i++ {
		go func() {
			res, err := f.usecase.ExportInsights(ctx, "u1", cfg.ID, []string{ins.ID})
			assert.NoError(t, err)
			results <- res
		}()
	}

	<-f.provider.entered
	// the second caller finds the claim and returns while the first is still exporting
	loser := <-results
	require.NotNil(t, loser)
	assert.Equal(t, 0, loser.ExportedCount)
	assert.Equal(t, SkipInProgress, loser.Items[0].SkipReason)

	close(f.provider.hold)
	winner := <-results
	require.NotNil(t, winner)
	assert.Equal(t, 1, winner.ExportedCount)
	assert.Len(t, f.provider.records, 1)

	stored, err := f.insights.FindByID(ctx, ins.ID)
	require.NoError(t, err)
	assert.Equal(t, idomain.OutcomeSuccess, stored.Destinations()["airtable"].Outcome)
	assert.Equal(t, "rec-"+ins.ID, stored.Destinations()["airtable"].RemoteID)

	again, err := f.usecase.ExportInsights(ctx, "u1", cfg.ID, []string{ins.ID})
	require.NoError(t, err)
	assert.Equal(t, SkipAlreadyExported, again.Items[0].SkipReason)
	assert.Len(t, f.provider.records, 1)
}

func TestExportSkipsByConfidenceTypeAndArchive(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	input := airtableInput()
	input.TypeFilter = []string{"blocker", "pain"}
	cfg := f.createConfig(t, input)

	low := f.seedInsight(t, idomain.TypeBlocker, 0.65)
	filtered := f.seedInsight(t, idomain.TypeIdea, 0.95)
	ok := f.seedInsight(t, idomain.TypePain, 0.7)
	archived := &idomain.Insight{
		TranscriptID: f.transcript.ID,
		OwnerUserID:  "u1",
		Type:         idomain.TypeBlocker,
		Title:        "Old finding",
		Confidence:   0.9,
		Archived:     true,
	}
	require.NoError(t, f.insights.CreateBatch(ctx, []*idomain.Insight{archived}))

	res, err := f.usecase.ExportInsights(ctx, "u1", cfg.ID, []string{low.ID, filtered.ID, ok.ID, "missing", ok.ID, archived.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExportedCount)
	assert.Equal(t, 4, res.SkippedCount)

	reasons := map[string]string{}
	for _, item := range res.Items {
		reasons[item.InsightID] = item.SkipReason
	}
	assert.Equal(t, SkipLowConfidence, reasons[low.ID])
	assert.Equal(t, SkipTypeFiltered, reasons[filtered.ID])
	assert.Equal(t, SkipNotFound, reasons["missing"])
	assert.Equal(t, SkipArchived, reasons[archived.ID])
	assert.Equal(t, "", reasons[ok.ID])

	stored, err := f.insights.FindByID(ctx, low.ID)
	require.NoError(t, err)
	assert.False(t, stored.Exported)
	assert.Equal(t, idomain.StatusNew, stored.Status)
}

func TestExportRecordsClassifiedFailureAndContinues(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	cfg := f.createConfig(t, airtableInput())
	bad := f.seedInsight(t, idomain.TypeBlocker, 0.9)
	good := f.seedInsight(t, idomain.TypePain, 0.8)
	f.provider.failFor[bad.ID] = &provider.Error{Provider: domain.ProviderAirtable, Kind: provider.KindFieldShape, StatusCode: 422, Detail: "UNKNOWN_FIELD_NAME"}

	res, err := f.usecase.ExportInsights(ctx, "u1", cfg.ID, []string{bad.ID, good.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FailedCount)
	assert.Equal(t, 1, res.ExportedCount)
	assert.Equal(t, string(provider.KindFieldShape), res.Items[0].ErrorKind)

	stored, err := f.insights.FindByID(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, idomain.StatusExportFailed, stored.Status)
	attempt := stored.Destinations()["airtable"]
	assert.Equal(t, idomain.OutcomeFailed, attempt.Outcome)
	assert.Equal(t, "field_shape", attempt.ErrorKind)
	assert.Contains(t, attempt.Message, "field mapping")
}

func TestExportRequiresOwnedEnabledConfig(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	cfg := f.createConfig(t, airtableInput())
	ins := f.seedInsight(t, idomain.TypeBlocker, 0.9)

	_, err := f.usecase.ExportInsights(ctx, "u2", cfg.ID, []string{ins.ID})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.usecase.ExportInsights(ctx, "u1", "missing", []string{ins.ID})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	disabled := false
	input := airtableInput()
	input.Enabled = &disabled
	input.Credentials = nil
	_, err = f.usecase.UpdateConfig(ctx, "u1", cfg.ID, input)
	require.NoError(t, err)
	_, err = f.usecase.ExportInsights(ctx, "u1", cfg.ID, []string{ins.ID})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAutoExportUsesAutoConfigsOnly(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	auto := airtableInput()
	auto.AutoExport = true
	autoCfg := f.createConfig(t, auto)
	f.createConfig(t, airtableInput())
	ins := f.seedInsight(t, idomain.TypeBlocker, 0.9)

	results, err := f.usecase.AutoExport(ctx, "u1", []string{ins.ID})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, autoCfg.ID, results[0].ConfigID)
	assert.Equal(t, 1, results[0].ExportedCount)

	activities, err := f.transcripts.ListActivities(ctx, f.transcript.ID)
	require.NoError(t, err)
	require.NotEmpty(t, activities)
	assert.Equal(t, tdomain.ActivityAutoExportCompleted, activities[len(activities)-1].ActivityType)
}

func TestConfigOwnership(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	cfg := f.createConfig(t, airtableInput())

	err := f.usecase.DeleteConfig(ctx, "u2", cfg.ID)
	assert.ErrorIs(t, err, apperr.ErrPermission)
	err = f.usecase.DeleteConfig(ctx, "u1", "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, f.usecase.DeleteConfig(ctx, "u1", cfg.ID))

	configs, err := f.usecase.ListConfigs(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, configs)
	assert.False(t, errors.Is(err, apperr.ErrNotFound))
}
