package repository

import (
	"context"
	"testing"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
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

func airtableConfig(owner string, auto bool) *domain.ExportConfig {
	return &domain.ExportConfig{
		OwnerUserID:          owner,
		Name:                 "Research base",
		Provider:             domain.ProviderAirtable,
		Enabled:              true,
		AutoExport:           auto,
		EncryptedCredentials: "sealed",
		Target: datatypes.NewJSONType(domain.Target{
			Airtable: &domain.AirtableTarget{BaseID: "appXYZ", Table: "Insights"},
		}),
		FieldMapping:  datatypes.NewJSONType(domain.FieldMapping{domain.FieldTitle: "Name"}),
		MinConfidence: 0.7,
		TypeFilter:    []string{"blocker", "pain"},
	}
}

func TestCreateAndFindRoundTripsJSONColumns(t *testing.T) {
	repo := NewGormExportConfigRepository(setupTestDB(t))
	ctx := context.Background()

	cfg := airtableConfig("u1", false)
	require.NoError(t, repo.Create(ctx, cfg))
	require.NotEmpty(t, cfg.ID)

	loaded, err := repo.FindByID(ctx, cfg.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	target := loaded.Target.Data()
	require.NotNil(t, target.Airtable)
	assert.Equal(t, "appXYZ", target.Airtable.BaseID)
	assert.Nil(t, target.Linear)
	assert.Equal(t, "Name", loaded.FieldMapping.Data()[domain.FieldTitle])
	assert.Equal(t, []string{"blocker", "pain"}, []string(loaded.TypeFilter))
	assert.Equal(t, "sealed", loaded.EncryptedCredentials)

	missing, err := repo.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindAutoExportOnlyReturnsEnabledAutoConfigs(t *testing.T) {
	repo := NewGormExportConfigRepository(setupTestDB(t))
	ctx := context.Background()

	auto := airtableConfig("u1", true)
	manual := airtableConfig("u1", false)
	disabled := airtableConfig("u1", true)
	other := airtableConfig("u2", true)
	for _, cfg := range []*domain.ExportConfig{auto, manual, disabled, other} {
		require.NoError(t, repo.Create(ctx, cfg))
	}
	disabled.Enabled = false
	require.NoError(t, repo.Update(ctx, disabled))

	configs, err := repo.FindAutoExport(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, auto.ID, configs[0].ID)

	all, err := repo.FindByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteIsScopedToOwner(t *testing.T) {
	repo := NewGormExportConfigRepository(setupTestDB(t))
	ctx := context.Background()
	cfg := airtableConfig("u1", false)
	require.NoError(t, repo.Create(ctx, cfg))

	require.NoError(t, repo.Delete(ctx, "u2", cfg.ID))
	still, err := repo.FindByID(ctx, cfg.ID)
	require.NoError(t, err)
	assert.NotNil(t, still)

	require.NoError(t, repo.Delete(ctx, "u1", cfg.ID))
	gone, err := repo.FindByID(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
