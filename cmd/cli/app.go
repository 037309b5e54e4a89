package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	api "github.com/eugene-nechvoloda/MeetyAI-sub000/cmd/api"
	authRepo "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/auth/repository"
	authUsecase "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/auth/usecase"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/cloudimport"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/provider"
	exportRepo "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/repository"
	exportUsecase "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/usecase"
	insightRepo "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/repository"
	insightUsecase "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/usecase"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/notification"
	transcriptRepo "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/repository"
	transcriptUsecase "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/usecase"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/ai"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/chroma"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/config"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/database"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/fcm"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/webhook"

	"gorm.io/gorm"
)

// migrations lists the schema owners in dependency order.
var migrations = []struct {
	name    string
	migrate func(*gorm.DB) error
}{
	{"transcripts", transcriptRepo.AutoMigrate},
	{"insights", insightRepo.AutoMigrate},
	{"export_configs", exportRepo.AutoMigrate},
	{"device_tokens", authRepo.AutoMigrate},
}

func migrate(db *gorm.DB, logger *slog.Logger) error {
	for _, m := range migrations {
		if err := m.migrate(db); err != nil {
			return fmt.Errorf("migrate %s: %w", m.name, err)
		}
		logger.Debug("schema migrated", "table", m.name)
	}
	return nil
}

// analysisDeadline bounds one analysis run: every extraction attempt timing
// out, plus a minute for backoff and the final commit.
func analysisDeadline(cfg *config.Config) time.Duration {
	attempts := cfg.ExtractionMaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	timeout := cfg.ExtractionTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return timeout*time.Duration(attempts) + time.Minute
}

// application is the fully wired backend shared by every command.
type application struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB

	transcripts   transcriptRepo.TranscriptRepository
	insights      insightRepo.InsightRepository
	exportConfigs exportRepo.ExportConfigRepository

	machine  *transcriptUsecase.StatusMachine
	launcher *transcriptUsecase.Launcher
	analyzer *insightUsecase.Analyzer
	notifier *notification.Service
	settings *api.RuntimeSettings
	usecases api.Usecases
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := database.NewConnection(cfg)
	if err != nil {
		return nil, err
	}
	if err := migrate(db, logger); err != nil {
		_ = database.Close(db)
		return nil, err
	}

	app := &application{
		cfg:           cfg,
		logger:        logger,
		db:            db,
		transcripts:   transcriptRepo.NewGormTranscriptRepository(db),
		insights:      insightRepo.NewGormInsightRepository(db),
		exportConfigs: exportRepo.NewGormExportConfigRepository(db),
		settings:      api.NewRuntimeSettings(cfg.OllamaBaseURL, cfg.OllamaModel),
	}
	if err := app.wire(ctx); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return app, nil
}

func (a *application) wire(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	extractor, err := ai.NewExtractor(ai.Config{
		Provider:         ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:     cfg.GeminiApiKey,
		GeminiModel:      cfg.GeminiModel,
		OllamaBaseURL:    cfg.OllamaBaseURL,
		OllamaModel:      cfg.OllamaModel,
		GetOllamaBaseURL: a.settings.OllamaBaseURL,
		GetOllamaModel:   a.settings.OllamaModel,
	}, logger)
	if err != nil {
		return fmt.Errorf("init extractor: %w", err)
	}
	areas, err := config.LoadAreaKeywords(cfg.AreaKeywordsFile)
	if err != nil {
		return fmt.Errorf("load area keywords: %w", err)
	}

	machine := transcriptUsecase.NewStatusMachine(a.db, a.transcripts, logger)
	machine.SetInsightArchiver(a.insights)
	machine.SetStaleAfter(analysisDeadline(cfg))
	a.machine = machine
	a.launcher = transcriptUsecase.NewLauncher(ctx, logger)
	a.analyzer = insightUsecase.NewAnalyzer(a.db, a.transcripts, a.insights, machine, extractor,
		insightUsecase.WithExtractionTimeout(cfg.ExtractionTimeout),
		insightUsecase.WithExtractionAttempts(cfg.ExtractionMaxAttempts),
		insightUsecase.WithAreaKeywords(areas),
		insightUsecase.WithLogger(logger),
	)

	dispatcher := webhook.NewDispatcher(
		webhook.WithBaseDelay(cfg.WebhookBaseDelay),
		webhook.WithLogger(logger),
	)
	exports := exportUsecase.NewExportUsecase(a.exportConfigs, a.insights, a.transcripts, cfg.EncryptionKey,
		exportUsecase.DefaultProviderFactory(provider.Options{
			HTTPClient:      &http.Client{Timeout: cfg.ExportHTTPTimeout},
			Dispatcher:      dispatcher,
			WebhookAttempts: cfg.WebhookRetryAttempts,
		}), logger)
	auth := authUsecase.NewAuthUsecase(authRepo.NewDeviceTokenRepository(a.db), cfg)
	transcripts := transcriptUsecase.NewTranscriptUsecase(a.db, a.transcripts, machine, a.insights, a.launcher, logger)
	insights := insightUsecase.NewInsightUsecase(a.insights, a.transcripts)

	opts := []notification.Option{
		notification.WithWebhook(dispatcher, webhook.Config{
			RetryAttempts: cfg.WebhookRetryAttempts,
			Timeout:       cfg.WebhookTimeout,
		}, cfg.WebhookDefaultURL),
		notification.WithAutoExport(exports),
		notification.WithLogger(logger),
	}
	if cfg.FirebaseCredentials != "" {
		pusher, err := fcm.NewClient(ctx, cfg.FirebaseCredentials, logger)
		if err != nil {
			logger.Warn("push notifications disabled", "error", err)
		} else {
			opts = append(opts, notification.WithPush(pusher, auth))
		}
	}
	if cfg.ChromaAPIKey != "" {
		index, err := chroma.NewChromaClient(cfg, logger)
		if err != nil {
			logger.Warn("semantic search disabled", "error", err)
		} else {
			opts = append(opts, notification.WithIndex(index))
			insights.SetSearchIndex(index)
			transcripts.SetIndexRemover(index)
		}
	}
	a.notifier = notification.NewService(a.transcripts, opts...)

	a.launcher.SetRunner(func(ctx context.Context, transcriptID string) {
		outcome := a.analyzer.Analyze(ctx, transcriptID)
		a.notifier.Dispatch(ctx, outcome)
	})

	a.usecases = api.Usecases{
		Auth:        auth,
		Ingestion:   transcriptUsecase.NewIngestionUsecase(a.transcripts, a.launcher, logger),
		Transcripts: transcripts,
		Insights:    insights,
		Exports:     exports,
	}
	return nil
}

// importer builds the cloud recording importer, or nil when it is not configured.
func (a *application) importer(ctx context.Context) (*cloudimport.Importer, *cloudimport.Client, error) {
	cfg := a.cfg
	if !cfg.CloudImportEnabled {
		return nil, nil, nil
	}
	if cfg.CloudImportOwnerUserID == "" {
		return nil, nil, errors.New("CLOUD_IMPORT_OWNER_USER_ID is required when cloud import is enabled")
	}
	client, err := cloudimport.NewClient(ctx, cloudimport.ClientConfig{
		BaseURL:      cfg.CloudImportBaseURL,
		TokenURL:     cfg.CloudImportTokenURL,
		ClientID:     cfg.CloudImportClientID,
		ClientSecret: cfg.CloudImportClientSecret,
	})
	if err != nil {
		return nil, nil, err
	}
	im := cloudimport.NewImporter(client, a.usecases.Ingestion, cfg.CloudImportOwnerUserID, cfg.CloudImportChannelID, a.logger)
	return im, client, nil
}

// close waits for in-flight analyses until ctx is done, then releases the store.
func (a *application) close(ctx context.Context) error {
	err := a.launcher.Shutdown(ctx)
	if cerr := database.Close(a.db); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
