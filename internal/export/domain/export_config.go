package domain

import (
	"fmt"
	"strings"
	"time"

	insight "github.com/eugene-nechvoloda/MeetyAI-sub000/internal/insight/domain"
	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/webhook"

	"gorm.io/datatypes"
)

// Provider names an export destination kind.
type Provider string

const (
	ProviderLinear   Provider = "linear"
	ProviderAirtable Provider = "airtable"
	ProviderWebhook  Provider = "webhook"
)

// Valid reports whether p is supported.
func (p Provider) Valid() bool {
	switch p {
	case ProviderLinear, ProviderAirtable, ProviderWebhook:
		return true
	}
	return false
}

// RequiresAPIKey reports whether the provider cannot work without an API key.
func (p Provider) RequiresAPIKey() bool {
	return p == ProviderLinear || p == ProviderAirtable
}

// LinearTarget addresses a Linear team.
type LinearTarget struct {
	TeamID    string   `json:"team_id"`
	ProjectID string   `json:"project_id,omitempty"`
	LabelIDs  []string `json:"label_ids,omitempty"`
}

// AirtableTarget addresses an Airtable table.
type AirtableTarget struct {
	BaseID string `json:"base_id"`
	Table  string `json:"table"`
}

// WebhookTarget addresses a generic receiver.
type WebhookTarget struct {
	URL          string `json:"url"`
	SecretHeader string `json:"secret_header,omitempty"`
}

// Target is a tagged record: exactly one variant is set and it must match
// the config's provider.
type Target struct {
	Linear   *LinearTarget   `json:"linear,omitempty"`
	Airtable *AirtableTarget `json:"airtable,omitempty"`
	Webhook  *WebhookTarget  `json:"webhook,omitempty"`
}

// Provider returns the variant that is set.
func (t Target) Provider() (Provider, error) {
	var set []Provider
	if t.Linear != nil {
		set = append(set, ProviderLinear)
	}
	if t.Airtable != nil {
		set = append(set, ProviderAirtable)
	}
	if t.Webhook != nil {
		set = append(set, ProviderWebhook)
	}
	if len(set) != 1 {
		return "", fmt.Errorf("target must set exactly one of linear, airtable, webhook (got %d)", len(set))
	}
	return set[0], nil
}

// Validate checks the variant's required fields.
func (t Target) Validate() error {
	p, err := t.Provider()
	if err != nil {
		return err
	}
	switch p {
	case ProviderLinear:
		if strings.TrimSpace(t.Linear.TeamID) == "" {
			return fmt.Errorf("linear target requires team_id")
		}
	case ProviderAirtable:
		if strings.TrimSpace(t.Airtable.BaseID) == "" || strings.TrimSpace(t.Airtable.Table) == "" {
			return fmt.Errorf("airtable target requires base_id and table")
		}
	case ProviderWebhook:
		if err := webhook.ValidateURL(strings.TrimSpace(t.Webhook.URL)); err != nil {
			return fmt.Errorf("webhook target requires an http(s) url: %w", err)
		}
	}
	return nil
}

// Credentials are stored encrypted and never serialized to API responses.
type Credentials struct {
	APIKey string `json:"api_key,omitempty"`
	Secret string `json:"secret,omitempty"`
}

// ExportConfig describes one destination an owner can push insights to.
type ExportConfig struct {
	ID                   string                           `json:"id" gorm:"primaryKey;size:36"`
	OwnerUserID          string                           `json:"owner_user_id" gorm:"size:128;not null;index"`
	Name                 string                           `json:"name" gorm:"size:120;not null"`
	Provider             Provider                         `json:"provider" gorm:"size:32;not null"`
	Enabled              bool                             `json:"enabled" gorm:"not null"`
	AutoExport           bool                             `json:"auto_export" gorm:"not null;index"`
	EncryptedCredentials string                           `json:"-" gorm:"type:text"`
	Target               datatypes.JSONType[Target]       `json:"target"`
	FieldMapping         datatypes.JSONType[FieldMapping] `json:"field_mapping"`
	MinConfidence        float64                          `json:"min_confidence" gorm:"not null;default:0"`
	TypeFilter           datatypes.JSONSlice[string]      `json:"type_filter"`
	CreatedAt            time.Time                        `json:"created_at"`
	UpdatedAt            time.Time                        `json:"updated_at"`
}

func (ExportConfig) TableName() string { return "export_configs" }

// HasCredentials reports whether encrypted credentials are stored.
func (c *ExportConfig) HasCredentials() bool {
	return c.EncryptedCredentials != ""
}

// Validate checks the config as a whole.
func (c *ExportConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !c.Provider.Valid() {
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	target := c.Target.Data()
	if err := target.Validate(); err != nil {
		return err
	}
	if p, _ := target.Provider(); p != c.Provider {
		return fmt.Errorf("target is for %s but provider is %s", p, c.Provider)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be between 0 and 1")
	}
	for _, t := range c.TypeFilter {
		if !insight.Type(t).Valid() {
			return fmt.Errorf("unknown insight type %q in type_filter", t)
		}
	}
	return c.FieldMapping.Data().Validate()
}
