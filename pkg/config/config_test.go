package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WEBHOOK_RETRY_ATTEMPTS", "")
	t.Setenv("DB_DRIVER", "")
	cfg := Load()

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 3, cfg.WebhookRetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.WebhookBaseDelay)
	assert.Equal(t, 3, cfg.ExtractionMaxAttempts)
	assert.False(t, cfg.CloudImportEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("WEBHOOK_RETRY_ATTEMPTS", "5")
	t.Setenv("WEBHOOK_TIMEOUT", "3s")
	t.Setenv("CLOUD_IMPORT_ENABLED", "true")
	t.Setenv("EXTRACTION_MAX_ATTEMPTS", "not-a-number")
	cfg := Load()

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 5, cfg.WebhookRetryAttempts)
	assert.Equal(t, 3*time.Second, cfg.WebhookTimeout)
	assert.True(t, cfg.CloudImportEnabled)
	assert.Equal(t, 3, cfg.ExtractionMaxAttempts)
}

func TestLoadAreaKeywordsDefault(t *testing.T) {
	areas, err := LoadAreaKeywords("")
	require.NoError(t, err)
	assert.Contains(t, areas, "pricing")
	assert.Equal(t, areas.Areas()[0], "billing")
}

func TestLoadAreaKeywordsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "areas.toml")
	body := "[areas]\nPricing = [\"price\", \" \", \"cost\"]\nsearch = [\"find\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	areas, err := LoadAreaKeywords(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"price", "cost"}, areas["pricing"])
	assert.Equal(t, []string{"pricing", "search"}, areas.Areas())
}

func TestParseAreaKeywordsRejectsEmpty(t *testing.T) {
	_, err := ParseAreaKeywords([]byte("title = \"x\"\n"))
	assert.Error(t, err)
}
