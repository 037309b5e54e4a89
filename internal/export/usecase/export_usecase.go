package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/provider"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/repository"
	idomain "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/domain"
	irepo "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/repository"
	tdomain "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/domain"
	trepo "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/repository"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/apperr"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/crypto"

	mapset "github.com/deckarep/golang-set/v2"
	"gorm.io/datatypes"
)

const exportComponent = "export"

// exportClaimTTL bounds how long a pending claim blocks other callers. It is
// well above any provider request timeout.
const exportClaimTTL = 10 * time.Minute

// ProviderFactory builds the provider for a config with decrypted credentials.
type ProviderFactory func(cfg *domain.ExportConfig, creds domain.Credentials) (provider.Provider, error)

type exportUsecase struct {
	configs       repository.ExportConfigRepository
	insights      irepo.InsightRepository
	transcripts   trepo.TranscriptRepository
	encryptionKey string
	factory       ProviderFactory
	logger        *slog.Logger
	now           func() time.Time
}

// NewExportUsecase creates a new instance of exportUsecase. A nil factory
// builds providers with default options.
func NewExportUsecase(
	configs repository.ExportConfigRepository,
	insights irepo.InsightRepository,
	transcripts trepo.TranscriptRepository,
	encryptionKey string,
	factory ProviderFactory,
	logger *slog.Logger,
) ExportUsecase {
	if factory == nil {
		factory = DefaultProviderFactory(provider.Options{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &exportUsecase{
		configs:       configs,
		insights:      insights,
		transcripts:   transcripts,
		encryptionKey: encryptionKey,
		factory:       factory,
		logger:        logger.With("component", exportComponent),
		now:           time.Now,
	}
}

// DefaultProviderFactory builds providers that talk to the real APIs.
func DefaultProviderFactory(opts provider.Options) ProviderFactory {
	return func(cfg *domain.ExportConfig, creds domain.Credentials) (provider.Provider, error) {
		return provider.New(cfg, creds, opts)
	}
}

func (u *exportUsecase) ExportInsights(ctx context.Context, ownerUserID, configID string, insightIDs []string) (*ExportResult, error) {
	if len(insightIDs) == 0 {
		return nil, apperr.Validation(exportComponent, "insightIds is required")
	}
	cfg, err := u.configs.FindByID(ctx, configID)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransient, exportComponent, "export", "load config", err)
	}
	if cfg == nil || cfg.OwnerUserID != ownerUserID {
		return nil, apperr.Validation(exportComponent, "export config not found")
	}
	if !cfg.Enabled {
		return nil, apperr.Validation(exportComponent, "export config is disabled")
	}
	return u.run(ctx, cfg, insightIDs, tdomain.ActivityExportCompleted)
}

func (u *exportUsecase) AutoExport(ctx context.Context, ownerUserID string, insightIDs []string) ([]*ExportResult, error) {
	if len(insightIDs) == 0 {
		return nil, nil
	}
	configs, err := u.configs.FindAutoExport(ctx, ownerUserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransient, exportComponent, "auto export", "load configs", err)
	}
	results := make([]*ExportResult, 0, len(configs))
	var failures []string
	for _, cfg := range configs {
		res, err := u.run(ctx, cfg, insightIDs, tdomain.ActivityAutoExportCompleted)
		if err != nil {
			u.logger.Warn("auto export skipped config", "config_id", cfg.ID, "provider", cfg.Provider, "error", err)
			failures = append(failures, cfg.ID)
			continue
		}
		results = append(results, res)
	}
	if len(failures) > 0 {
		return results, apperr.Wrap(apperr.ErrConfiguration, exportComponent, "auto export",
			"unusable configs: "+strings.Join(failures, ", "), nil)
	}
	return results, nil
}

func (u *exportUsecase) credentials(cfg *domain.ExportConfig) (domain.Credentials, error) {
	var creds domain.Credentials
	if !cfg.HasCredentials() {
		return creds, nil
	}
	plain, err := crypto.Decrypt(cfg.EncryptedCredentials, u.encryptionKey)
	if err != nil {
		return creds, err
	}
	if err := json.Unmarshal([]byte(plain), &creds); err != nil {
		return creds, fmt.Errorf("decode credentials: %w", err)
	}
	return creds, nil
}

type transcriptTally struct {
	exported int
	failed   int
}

func (u *exportUsecase) run(ctx context.Context, cfg *domain.ExportConfig, insightIDs []string, activityType string) (*ExportResult, error) {
	creds, err := u.credentials(cfg)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrConfiguration, exportComponent, "export", "credentials cannot be decrypted", nil)
	}
	prov, err := u.factory(cfg, creds)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrConfiguration, exportComponent, "export", "build provider", err)
	}

	ids := uniqueIDs(insightIDs)
	loaded, err := u.insights.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransient, exportComponent, "export", "load insights", err)
	}
	byID := make(map[string]*idomain.Insight, len(loaded))
	for _, ins := range loaded {
		byID[ins.ID] = ins
	}

	providerName := string(cfg.Provider)
	mapping := cfg.FieldMapping.Data().WithDefaults(cfg.Provider)
	_, wantsTitle := mapping[domain.FieldTranscriptTitle]
	typeFilter := mapset.NewSet[string](cfg.TypeFilter...)
	titles := map[string]string{}
	tallies := map[string]*transcriptTally{}
	var touched []string

	result := &ExportResult{ConfigID: cfg.ID, Provider: providerName, RemoteIDs: []string{}, Items: make([]ItemResult, 0, len(ids))}
	for _, id := range ids {
		ins := byID[id]
		if ins == nil || ins.OwnerUserID != cfg.OwnerUserID {
			result.skip(id, SkipNotFound)
			continue
		}
		if reason := skipReason(ins, cfg, typeFilter); reason != "" {
			result.skip(id, reason)
			continue
		}

		claimedAt := u.now().UTC()
		current, claimed, err := u.insights.ClaimExport(ctx, ins.ID, providerName, cfg.ID, claimedAt, exportClaimTTL)
		if err != nil {
			u.logger.Error("claim export", "insight_id", ins.ID, "config_id", cfg.ID, "error", err)
			result.fail(ins.ID, string(provider.KindTransient), "Could not reserve the insight for export. Try again.")
			continue
		}
		if !claimed {
			if current.Destinations().Succeeded(providerName) {
				result.skip(ins.ID, SkipAlreadyExported)
			} else {
				result.skip(ins.ID, SkipInProgress)
			}
			continue
		}

		title := ""
		if wantsTitle {
			title = u.transcriptTitle(ctx, ins.TranscriptID, titles)
		}
		rec := provider.Record{InsightID: ins.ID, Fields: MapFields(current, title, mapping)}
		attempt := idomain.ExportAttempt{ConfigID: cfg.ID, AttemptedAt: claimedAt}
		created, perr := prov.CreateRecord(ctx, rec)
		if perr != nil {
			kind := provider.KindOf(perr)
			attempt.Outcome = idomain.OutcomeFailed
			attempt.ErrorKind = string(kind)
			attempt.Message = provider.UserMessage(cfg.Provider, kind)
			u.logger.Warn("export attempt failed", "insight_id", ins.ID, "config_id", cfg.ID, "kind", kind, "error", perr)
		} else {
			attempt.Outcome = idomain.OutcomeSuccess
			attempt.RemoteID = created.RemoteID
			attempt.RemoteURL = created.RemoteURL
		}

		if _, err := u.insights.RecordExportAttempt(context.WithoutCancel(ctx), ins.ID, providerName, attempt); err != nil {
			u.logger.Error("record export attempt", "insight_id", ins.ID, "config_id", cfg.ID, "error", err)
			if perr == nil {
				attempt.Outcome = idomain.OutcomeFailed
				attempt.ErrorKind = string(provider.KindGeneric)
				attempt.Message = fmt.Sprintf("Created %s in %s but could not record it.", attempt.RemoteID, providerName)
			}
		}

		tally, ok := tallies[ins.TranscriptID]
		if !ok {
			tally = &transcriptTally{}
			tallies[ins.TranscriptID] = tally
			touched = append(touched, ins.TranscriptID)
		}
		item := ItemResult{InsightID: ins.ID, RemoteID: attempt.RemoteID, RemoteURL: attempt.RemoteURL}
		if attempt.Outcome == idomain.OutcomeSuccess {
			item.Outcome = ItemExported
			result.ExportedCount++
			result.RemoteIDs = append(result.RemoteIDs, attempt.RemoteID)
			tally.exported++
		} else {
			item.Outcome = ItemFailed
			item.ErrorKind = attempt.ErrorKind
			item.Message = attempt.Message
			result.FailedCount++
			tally.failed++
		}
		result.Items = append(result.Items, item)
	}

	for _, transcriptID := range touched {
		tally := tallies[transcriptID]
		u.recordActivity(ctx, transcriptID, activityType, cfg, tally)
	}
	u.logger.Info("export batch finished",
		"config_id", cfg.ID, "provider", providerName,
		"exported", result.ExportedCount, "failed", result.FailedCount, "skipped", result.SkippedCount)
	return result, nil
}

func (r *ExportResult) skip(insightID, reason string) {
	r.SkippedCount++
	r.Items = append(r.Items, ItemResult{InsightID: insightID, Outcome: ItemSkipped, SkipReason: reason})
}

func (r *ExportResult) fail(insightID, kind, message string) {
	r.FailedCount++
	r.Items = append(r.Items, ItemResult{InsightID: insightID, Outcome: ItemFailed, ErrorKind: kind, Message: message})
}

func skipReason(ins *idomain.Insight, cfg *domain.ExportConfig, typeFilter mapset.Set[string]) string {
	switch {
	case ins.Archived:
		return SkipArchived
	case ins.Confidence < cfg.MinConfidence:
		return SkipLowConfidence
	case typeFilter.Cardinality() > 0 && !typeFilter.Contains(string(ins.Type)):
		return SkipTypeFiltered
	case ins.Destinations().Succeeded(string(cfg.Provider)):
		return SkipAlreadyExported
	}
	return ""
}

func (u *exportUsecase) transcriptTitle(ctx context.Context, transcriptID string, cache map[string]string) string {
	if title, ok := cache[transcriptID]; ok {
		return title
	}
	title := ""
	if t, err := u.transcripts.FindByID(ctx, transcriptID); err != nil {
		u.logger.Warn("load transcript title", "transcript_id", transcriptID, "error", err)
	} else if t != nil {
		title = t.Title
	}
	cache[transcriptID] = title
	return title
}

func (u *exportUsecase) recordActivity(ctx context.Context, transcriptID, activityType string, cfg *domain.ExportConfig, tally *transcriptTally) {
	msg := fmt.Sprintf("Exported %d insight(s) to %s", tally.exported, cfg.Provider)
	if tally.failed > 0 {
		msg += fmt.Sprintf(", %d failed", tally.failed)
	}
	activity := tdomain.NewActivity(transcriptID, activityType, msg, map[string]interface{}{
		"config_id": cfg.ID,
		"provider":  string(cfg.Provider),
		"exported":  tally.exported,
		"failed":    tally.failed,
	})
	if err := u.transcripts.AddActivity(context.WithoutCancel(ctx), activity); err != nil {
		u.logger.Error("record export activity", "transcript_id", transcriptID, "error", err)
	}
}

func uniqueIDs(ids []string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || !seen.Add(id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (u *exportUsecase) ListConfigs(ctx context.Context, ownerUserID string) ([]*domain.ExportConfig, error) {
	configs, err := u.configs.FindByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransient, exportComponent, "list configs", "", err)
	}
	return configs, nil
}

func (u *exportUsecase) CreateConfig(ctx context.Context, ownerUserID string, input ConfigInput) (*domain.ExportConfig, error) {
	cfg := &domain.ExportConfig{OwnerUserID: ownerUserID, Enabled: true}
	if err := u.apply(cfg, input); err != nil {
		return nil, err
	}
	if err := u.configs.Create(ctx, cfg); err != nil {
		return nil, apperr.Wrap(apperr.ErrTransient, exportComponent, "create config", "", err)
	}
	u.logger.Info("export config created", "config_id", cfg.ID, "provider", cfg.Provider, "owner_user_id", ownerUserID)
	return cfg, nil
}

func (u *exportUsecase) UpdateConfig(ctx context.Context, ownerUserID, id string, input ConfigInput) (*domain.ExportConfig, error) {
	cfg, err := u.ownedConfig(ctx, ownerUserID, id)
	if err != nil {
		return nil, err
	}
	if err := u.apply(cfg, input); err != nil {
		return nil, err
	}
	if err := u.configs.Update(ctx, cfg); err != nil {
		return nil, apperr.Wrap(apperr.ErrTransient, exportComponent, "update config", "", err)
	}
	return cfg, nil
}

func (u *exportUsecase) DeleteConfig(ctx context.Context, ownerUserID, id string) error {
	if _, err := u.ownedConfig(ctx, ownerUserID, id); err != nil {
		return err
	}
	if err := u.configs.Delete(ctx, ownerUserID, id); err != nil {
		return apperr.Wrap(apperr.ErrTransient, exportComponent, "delete config", "", err)
	}
	return nil
}

func (u *exportUsecase) ownedConfig(ctx context.Context, ownerUserID, id string) (*domain.ExportConfig, error) {
	cfg, err := u.configs.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTransient, exportComponent, "load config", "", err)
	}
	if cfg == nil {
		return nil, apperr.Wrap(apperr.ErrNotFound, exportComponent, "load config", "export config not found", nil)
	}
	if cfg.OwnerUserID != ownerUserID {
		return nil, apperr.Wrap(apperr.ErrPermission, exportComponent, "load config", "export config belongs to another user", nil)
	}
	return cfg, nil
}

// apply copies input onto cfg, sealing new credentials and validating the result.
func (u *exportUsecase) apply(cfg *domain.ExportConfig, input ConfigInput) error {
	cfg.Name = strings.TrimSpace(input.Name)
	cfg.Provider = domain.Provider(strings.ToLower(strings.TrimSpace(input.Provider)))
	if input.Enabled != nil {
		cfg.Enabled = *input.Enabled
	}
	cfg.AutoExport = input.AutoExport
	cfg.Target = datatypes.NewJSONType(input.Target)
	mapping := make(domain.FieldMapping, len(input.FieldMapping))
	for field, dest := range input.FieldMapping {
		mapping[domain.InsightField(field)] = strings.TrimSpace(dest)
	}
	cfg.FieldMapping = datatypes.NewJSONType(mapping)
	cfg.MinConfidence = input.MinConfidence
	cfg.TypeFilter = datatypes.JSONSlice[string](input.TypeFilter)

	if err := cfg.Validate(); err != nil {
		return apperr.Validation(exportComponent, err.Error())
	}

	if input.Credentials != nil {
		if cfg.Provider.RequiresAPIKey() && strings.TrimSpace(input.Credentials.APIKey) == "" {
			return apperr.Validation(exportComponent, "credentials.api_key is required")
		}
		if u.encryptionKey == "" {
			return apperr.Wrap(apperr.ErrConfiguration, exportComponent, "seal credentials", "ENCRYPTION_KEY is not set", nil)
		}
		plain, err := json.Marshal(input.Credentials)
		if err != nil {
			return fmt.Errorf("encode credentials: %w", err)
		}
		sealed, err := crypto.Encrypt(string(plain), u.encryptionKey)
		if err != nil {
			return apperr.Wrap(apperr.ErrConfiguration, exportComponent, "seal credentials", "", err)
		}
		cfg.EncryptedCredentials = sealed
	}
	if cfg.Provider.RequiresAPIKey() && !cfg.HasCredentials() {
		return apperr.Validation(exportComponent, "credentials.api_key is required")
	}
	return nil
}
