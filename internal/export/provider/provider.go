// Package provider pushes mapped insight records to external tools.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/webhook"
)

const defaultTimeout = 15 * time.Second

// Record is one insight after field mapping. Fields is keyed by destination
// field name.
type Record struct {
	InsightID string
	Fields    map[string]any
}

// Result identifies what the destination created.
type Result struct {
	RemoteID  string
	RemoteURL string
}

// Provider creates one remote record per call.
type Provider interface {
	Name() domain.Provider
	CreateRecord(ctx context.Context, rec Record) (*Result, error)
}

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	KindNotFound   ErrorKind = "not_found"
	KindAuth       ErrorKind = "auth"
	KindFieldShape ErrorKind = "field_shape"
	KindTransient  ErrorKind = "transient"
	KindGeneric    ErrorKind = "generic"
)

// Error is a classified provider failure.
type Error struct {
	Provider   domain.Provider
	Kind       ErrorKind
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s export failed (%s, status %d): %s", e.Provider, e.Kind, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s export failed (%s): %s", e.Provider, e.Kind, e.Detail)
}

// UserMessage is safe to show to the config owner.
func (e *Error) UserMessage() string {
	return UserMessage(e.Provider, e.Kind)
}

// UserMessage describes kind in terms the config owner can act on.
func UserMessage(p domain.Provider, kind ErrorKind) string {
	switch kind {
	case KindNotFound:
		return fmt.Sprintf("The %s destination could not be found. Check the target in the export settings.", p)
	case KindAuth:
		return fmt.Sprintf("%s rejected the credentials. Reconnect the integration.", p)
	case KindFieldShape:
		return fmt.Sprintf("%s rejected one of the mapped fields. Check the field mapping.", p)
	case KindTransient:
		return fmt.Sprintf("%s is temporarily unavailable. Try the export again later.", p)
	default:
		return fmt.Sprintf("The export to %s failed.", p)
	}
}

// KindOf extracts the classification of err, defaulting to generic.
func KindOf(err error) ErrorKind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindGeneric
}

// classifyStatus maps an HTTP status onto an error kind.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindFieldShape
	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500:
		return KindTransient
	default:
		return KindGeneric
	}
}

func newTransportError(p domain.Provider, err error) *Error {
	return &Error{Provider: p, Kind: KindTransient, Detail: err.Error()}
}

// Options tune how providers reach their APIs.
type Options struct {
	HTTPClient      *http.Client
	LinearURL       string
	AirtableURL     string
	Dispatcher      *webhook.Dispatcher
	WebhookAttempts int
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

// New builds the provider cfg points at.
func New(cfg *domain.ExportConfig, creds domain.Credentials, opts Options) (Provider, error) {
	target := cfg.Target.Data()
	switch cfg.Provider {
	case domain.ProviderLinear:
		if target.Linear == nil {
			return nil, fmt.Errorf("linear config has no linear target")
		}
		if strings.TrimSpace(creds.APIKey) == "" {
			return nil, fmt.Errorf("linear api key is missing")
		}
		return NewLinear(creds.APIKey, *target.Linear, opts.LinearURL, opts.httpClient()), nil
	case domain.ProviderAirtable:
		if target.Airtable == nil {
			return nil, fmt.Errorf("airtable config has no airtable target")
		}
		if strings.TrimSpace(creds.APIKey) == "" {
			return nil, fmt.Errorf("airtable api key is missing")
		}
		return NewAirtable(creds.APIKey, *target.Airtable, opts.AirtableURL, opts.httpClient()), nil
	case domain.ProviderWebhook:
		if target.Webhook == nil {
			return nil, fmt.Errorf("webhook config has no webhook target")
		}
		dispatcher := opts.Dispatcher
		if dispatcher == nil {
			dispatcher = webhook.NewDispatcher()
		}
		return NewWebhook(*target.Webhook, creds.Secret, dispatcher, opts.WebhookAttempts), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}
