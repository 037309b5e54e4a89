package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/domain"
)

const defaultAirtableURL = "https://api.airtable.com/v0"

// AirtableProvider appends insights as rows of an Airtable table.
type AirtableProvider struct {
	apiKey     string
	target     domain.AirtableTarget
	baseURL    string
	httpClient *http.Client
}

// NewAirtable creates an Airtable provider. An empty baseURL uses the public API.
func NewAirtable(apiKey string, target domain.AirtableTarget, baseURL string, client *http.Client) *AirtableProvider {
	if baseURL == "" {
		baseURL = defaultAirtableURL
	}
	return &AirtableProvider{apiKey: apiKey, target: target, baseURL: strings.TrimRight(baseURL, "/"), httpClient: client}
}

func (p *AirtableProvider) Name() domain.Provider { return domain.ProviderAirtable }

type airtableCreateRequest struct {
	Records  []airtableRecord `json:"records"`
	Typecast bool             `json:"typecast"`
}

type airtableRecord struct {
	ID     string         `json:"id,omitempty"`
	Fields map[string]any `json:"fields"`
}

type airtableErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *AirtableProvider) recordsURL() string {
	return fmt.Sprintf("%s/%s/%s", p.baseURL, url.PathEscape(p.target.BaseID), url.PathEscape(p.target.Table))
}

// CreateRecord creates one row with the mapped fields.
func (p *AirtableProvider) CreateRecord(ctx context.Context, rec Record) (*Result, error) {
	fields := make(map[string]any, len(rec.Fields))
	for name, value := range rec.Fields {
		if s, ok := value.([]string); ok {
			value = strings.Join(s, "\n")
		}
		fields[name] = value
	}
	body, err := json.Marshal(airtableCreateRequest{Records: []airtableRecord{{Fields: fields}}, Typecast: true})
	if err != nil {
		return nil, fmt.Errorf("encode airtable request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.recordsURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build airtable request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, newTransportError(domain.ProviderAirtable, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, airtableError(resp.StatusCode, raw)
	}

	var parsed struct {
		Records []airtableRecord `json:"records"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Records) == 0 || parsed.Records[0].ID == "" {
		return nil, &Error{Provider: domain.ProviderAirtable, Kind: KindGeneric, Detail: "response carried no record id"}
	}
	id := parsed.Records[0].ID
	return &Result{
		RemoteID:  id,
		RemoteURL: fmt.Sprintf("https://airtable.com/%s/%s", p.target.BaseID, id),
	}, nil
}

func airtableError(status int, raw []byte) *Error {
	kind := classifyStatus(status)
	detail := strings.TrimSpace(string(raw))
	var body airtableErrorBody
	if json.Unmarshal(raw, &body) == nil && body.Error.Type != "" {
		detail = body.Error.Type
		if body.Error.Message != "" {
			detail += ": " + body.Error.Message
		}
		switch body.Error.Type {
		case "UNKNOWN_FIELD_NAME", "INVALID_VALUE_FOR_COLUMN", "INVALID_REQUEST_UNKNOWN":
			kind = KindFieldShape
		case "TABLE_NOT_FOUND", "NOT_FOUND", "MODEL_ID_NOT_FOUND":
			kind = KindNotFound
		case "AUTHENTICATION_REQUIRED", "INVALID_PERMISSIONS_OR_MODEL_NOT_FOUND":
			kind = KindAuth
		}
	}
	return &Error{Provider: domain.ProviderAirtable, Kind: kind, StatusCode: status, Detail: detail}
}
