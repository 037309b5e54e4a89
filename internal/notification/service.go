// Package notification fans a finished analysis out to webhooks, push
// devices, the vector index and auto-export configs.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	exportusecase "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/usecase"
	iusecase "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/usecase"
	tdomain "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/domain"
	trepo "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/transcript/repository"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/chroma"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/fcm"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/webhook"
)

// WebhookSender delivers a payload with retries.
type WebhookSender interface {
	Deliver(ctx context.Context, url string, payload any, cfg webhook.Config) webhook.Result
}

// Pusher sends push notifications and reports rejected tokens.
type Pusher interface {
	SendToDevices(ctx context.Context, tokens []string, notification fcm.NotificationData) ([]string, error)
}

// DeviceDirectory resolves and prunes push tokens.
type DeviceDirectory interface {
	DeviceTokens(ctx context.Context, userID string) ([]string, error)
	PruneTokens(ctx context.Context, tokens []string) error
}

// Indexer writes insights to the semantic index.
type Indexer interface {
	UpsertInsights(ctx context.Context, docs []chroma.InsightDocument) error
}

// AutoExporter runs the owner's auto-export configs.
type AutoExporter interface {
	AutoExport(ctx context.Context, ownerUserID string, insightIDs []string) ([]*exportusecase.ExportResult, error)
}

// Service dispatches analysis outcomes. Every step is optional and none of
// them can fail the analysis.
type Service struct {
	transcripts trepo.TranscriptRepository
	sender      WebhookSender
	webhookCfg  webhook.Config
	defaultURL  string
	pusher      Pusher
	devices     DeviceDirectory
	index       Indexer
	exporter    AutoExporter
	logger      *slog.Logger
	now         func() time.Time
}

// Option enables a dispatch step.
type Option func(*Service)

// WithWebhook posts outcomes to the transcript callback URL, or defaultURL.
func WithWebhook(sender WebhookSender, cfg webhook.Config, defaultURL string) Option {
	return func(s *Service) {
		s.sender = sender
		s.webhookCfg = cfg
		s.defaultURL = strings.TrimSpace(defaultURL)
	}
}

// WithPush notifies the owner's registered devices.
func WithPush(pusher Pusher, devices DeviceDirectory) Option {
	return func(s *Service) {
		s.pusher = pusher
		s.devices = devices
	}
}

// WithIndex indexes new insights for semantic search.
func WithIndex(index Indexer) Option {
	return func(s *Service) { s.index = index }
}

// WithAutoExport pushes new insights through auto-export configs.
func WithAutoExport(exporter AutoExporter) Option {
	return func(s *Service) { s.exporter = exporter }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a dispatcher with the given steps enabled.
func NewService(transcripts trepo.TranscriptRepository, opts ...Option) *Service {
	s := &Service{
		transcripts: transcripts,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "notification")
	return s
}

// Dispatch runs every enabled step for outcome. Skipped runs dispatch nothing.
func (s *Service) Dispatch(ctx context.Context, outcome iusecase.AnalysisOutcome) {
	if outcome.Status == iusecase.AnalysisSkipped {
		return
	}
	logger := s.logger.With("transcript_id", outcome.TranscriptID, "status", outcome.Status)
	transcript := outcome.Transcript
	if transcript == nil {
		t, err := s.transcripts.FindByID(ctx, outcome.TranscriptID)
		if err != nil || t == nil {
			logger.Error("cannot dispatch outcome, transcript unavailable", "error", err)
			return
		}
		transcript = t
	}

	s.deliverWebhook(ctx, transcript, outcome, logger)
	s.push(ctx, transcript, outcome, logger)
	if outcome.Status == iusecase.AnalysisCompleted && outcome.Result != nil && len(outcome.Result.Insights) > 0 {
		s.indexInsights(ctx, outcome, logger)
		s.autoExport(ctx, transcript, outcome, logger)
	}
}

func (s *Service) deliverWebhook(ctx context.Context, t *tdomain.Transcript, outcome iusecase.AnalysisOutcome, logger *slog.Logger) {
	if s.sender == nil {
		return
	}
	url := strings.TrimSpace(t.CallbackURL)
	if url == "" {
		url = s.defaultURL
	}
	if url == "" {
		return
	}

	payload := BuildPayload(outcome, string(t.Origin), s.now())
	res := s.sender.Deliver(ctx, url, payload, s.webhookCfg)
	metadata := map[string]interface{}{
		"event":       payload.Event,
		"attempts":    res.Attempts,
		"status_code": res.StatusCode,
	}
	if res.Success {
		s.record(ctx, t.ID, tdomain.ActivityWebhookDelivered,
			fmt.Sprintf("Webhook %s delivered", payload.Event), metadata, logger)
		return
	}
	metadata["error"] = res.Error
	logger.Warn("webhook delivery failed", "attempts", res.Attempts, "error", res.Error)
	s.record(ctx, t.ID, tdomain.ActivityWebhookFailed,
		fmt.Sprintf("Webhook %s failed after %d attempt(s)", payload.Event, res.Attempts), metadata, logger)
}

func (s *Service) push(ctx context.Context, t *tdomain.Transcript, outcome iusecase.AnalysisOutcome, logger *slog.Logger) {
	if s.pusher == nil || s.devices == nil {
		return
	}
	tokens, err := s.devices.DeviceTokens(ctx, t.OwnerUserID)
	if err != nil {
		logger.Warn("load device tokens", "error", err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	n := PushNotification(t, outcome)
	failed, err := s.pusher.SendToDevices(ctx, tokens, n)
	if err != nil {
		logger.Warn("push notification failed", "error", err)
		return
	}
	if len(failed) > 0 {
		if err := s.devices.PruneTokens(ctx, failed); err != nil {
			logger.Warn("prune device tokens", "error", err)
		}
	}
	s.record(ctx, t.ID, tdomain.ActivityNotificationSent,
		fmt.Sprintf("Push sent to %d device(s)", len(tokens)-len(failed)),
		map[string]interface{}{"delivered": len(tokens) - len(failed), "pruned": len(failed)}, logger)
}

// PushNotification builds the push message for an outcome.
func PushNotification(t *tdomain.Transcript, outcome iusecase.AnalysisOutcome) fcm.NotificationData {
	data := map[string]string{
		"type":          "analysis_" + string(outcome.Status),
		"transcript_id": t.ID,
	}
	link := "/transcripts/" + t.ID
	if outcome.Status == iusecase.AnalysisCompleted && outcome.Result != nil {
		count := len(outcome.Result.Insights)
		data["insight_count"] = fmt.Sprint(count)
		return fcm.NotificationData{
			Title:       "Analysis ready",
			Body:        fmt.Sprintf("%s: %d insight(s) found", t.Title, count),
			Data:        data,
			ClickAction: link,
		}
	}
	return fcm.NotificationData{
		Title:       "Analysis failed",
		Body:        fmt.Sprintf("%s could not be analyzed", t.Title),
		Data:        data,
		ClickAction: link,
	}
}

func (s *Service) indexInsights(ctx context.Context, outcome iusecase.AnalysisOutcome, logger *slog.Logger) {
	if s.index == nil {
		return
	}
	docs := make([]chroma.InsightDocument, 0, len(outcome.Result.Insights))
	for _, ins := range outcome.Result.Insights {
		doc := chroma.InsightDocument{
			ID:           ins.ID,
			TranscriptID: ins.TranscriptID,
			OwnerUserID:  ins.OwnerUserID,
			Type:         string(ins.Type),
			Title:        ins.Title,
			Description:  ins.Description,
			Evidence:     ins.Evidence,
		}
		if ins.Area != nil {
			doc.Area = *ins.Area
		}
		docs = append(docs, doc)
	}
	if err := s.index.UpsertInsights(ctx, docs); err != nil {
		logger.Warn("index insights", "count", len(docs), "error", err)
		return
	}
	logger.Debug("insights indexed", "count", len(docs))
}

func (s *Service) autoExport(ctx context.Context, t *tdomain.Transcript, outcome iusecase.AnalysisOutcome, logger *slog.Logger) {
	if s.exporter == nil {
		return
	}
	ids := make([]string, 0, len(outcome.Result.Insights))
	for _, ins := range outcome.Result.Insights {
		ids = append(ids, ins.ID)
	}
	results, err := s.exporter.AutoExport(ctx, t.OwnerUserID, ids)
	if err != nil {
		logger.Warn("auto export incomplete", "error", err)
	}
	for _, res := range results {
		logger.Info("auto export finished", "config_id", res.ConfigID, "exported", res.ExportedCount, "failed", res.FailedCount)
	}
}

func (s *Service) record(ctx context.Context, transcriptID, activityType, message string, metadata map[string]interface{}, logger *slog.Logger) {
	activity := tdomain.NewActivity(transcriptID, activityType, message, metadata)
	if err := s.transcripts.AddActivity(context.WithoutCancel(ctx), activity); err != nil {
		logger.Error("record activity", "activity_type", activityType, "error", err)
	}
}
