package provider

import (
	"context"
	"time"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/webhook"
)

// WebhookProvider posts each insight to a generic receiver.
type WebhookProvider struct {
	target     domain.WebhookTarget
	secret     string
	dispatcher *webhook.Dispatcher
	attempts   int
}

// NewWebhook creates a webhook provider. secret is sent in the target's
// secret header when both are set.
func NewWebhook(target domain.WebhookTarget, secret string, dispatcher *webhook.Dispatcher, attempts int) *WebhookProvider {
	return &WebhookProvider{target: target, secret: secret, dispatcher: dispatcher, attempts: attempts}
}

func (p *WebhookProvider) Name() domain.Provider { return domain.ProviderWebhook }

type webhookExportPayload struct {
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	InsightID string         `json:"insightId"`
	Fields    map[string]any `json:"fields"`
}

// CreateRecord delivers the record. The receiver assigns no id, so the
// insight id stands in as the remote id.
func (p *WebhookProvider) CreateRecord(ctx context.Context, rec Record) (*Result, error) {
	cfg := webhook.Config{RetryAttempts: p.attempts}
	if p.target.SecretHeader != "" && p.secret != "" {
		cfg.Headers = map[string]string{p.target.SecretHeader: p.secret}
	}
	payload := webhookExportPayload{
		Event:     "insight.exported",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		InsightID: rec.InsightID,
		Fields:    rec.Fields,
	}
	res := p.dispatcher.Deliver(ctx, p.target.URL, payload, cfg)
	if !res.Success {
		kind := KindTransient
		switch {
		case res.Attempts == 0:
			// rejected before sending; retrying cannot help
			kind = KindGeneric
		case res.StatusCode > 0:
			kind = classifyStatus(res.StatusCode)
		}
		return nil, &Error{Provider: domain.ProviderWebhook, Kind: kind, StatusCode: res.StatusCode, Detail: res.Error}
	}
	return &Result{RemoteID: rec.InsightID, RemoteURL: p.target.URL}, nil
}
