package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/internal/export/domain"
)

const defaultLinearURL = "https://api.linear.app/graphql"

const issueCreateMutation = `mutation IssueCreate($input: IssueCreateInput!) {
  issueCreate(input: $input) {
    success
    issue { id identifier url }
  }
}`

// LinearProvider files insights as Linear issues.
type LinearProvider struct {
	apiKey     string
	target     domain.LinearTarget
	endpoint   string
	httpClient *http.Client
}

// NewLinear creates a Linear provider. An empty endpoint uses the public API.
func NewLinear(apiKey string, target domain.LinearTarget, endpoint string, client *http.Client) *LinearProvider {
	if endpoint == "" {
		endpoint = defaultLinearURL
	}
	return &LinearProvider{apiKey: apiKey, target: target, endpoint: endpoint, httpClient: client}
}

func (p *LinearProvider) Name() domain.Provider { return domain.ProviderLinear }

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Type string `json:"type"`
		Code string `json:"code"`
	} `json:"extensions"`
}

type issueCreateResponse struct {
	Data struct {
		IssueCreate struct {
			Success bool `json:"success"`
			Issue   struct {
				ID         string `json:"id"`
				Identifier string `json:"identifier"`
				URL        string `json:"url"`
			} `json:"issue"`
		} `json:"issueCreate"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// CreateRecord creates an issue. Fields named "title" and "description" feed
// the issue itself; every other mapped field is appended to the description.
func (p *LinearProvider) CreateRecord(ctx context.Context, rec Record) (*Result, error) {
	input := map[string]any{
		"teamId":      p.target.TeamID,
		"title":       stringField(rec.Fields, "title"),
		"description": linearDescription(rec.Fields),
	}
	if p.target.ProjectID != "" {
		input["projectId"] = p.target.ProjectID
	}
	if len(p.target.LabelIDs) > 0 {
		input["labelIds"] = p.target.LabelIDs
	}

	body, err := json.Marshal(graphQLRequest{Query: issueCreateMutation, Variables: map[string]any{"input": input}})
	if err != nil {
		return nil, fmt.Errorf("encode linear request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build linear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, newTransportError(domain.ProviderLinear, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Provider:   domain.ProviderLinear,
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Detail:     strings.TrimSpace(string(raw)),
		}
	}

	var parsed issueCreateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &Error{Provider: domain.ProviderLinear, Kind: KindGeneric, Detail: "decode response: " + err.Error()}
	}
	if len(parsed.Errors) > 0 {
		return nil, &Error{
			Provider: domain.ProviderLinear,
			Kind:     classifyGraphQLError(parsed.Errors[0]),
			Detail:   parsed.Errors[0].Message,
		}
	}
	issue := parsed.Data.IssueCreate.Issue
	if !parsed.Data.IssueCreate.Success || issue.ID == "" {
		return nil, &Error{Provider: domain.ProviderLinear, Kind: KindGeneric, Detail: "issueCreate reported no issue"}
	}
	remoteID := issue.Identifier
	if remoteID == "" {
		remoteID = issue.ID
	}
	return &Result{RemoteID: remoteID, RemoteURL: issue.URL}, nil
}

func classifyGraphQLError(e graphQLError) ErrorKind {
	text := strings.ToLower(e.Message + " " + e.Extensions.Type + " " + e.Extensions.Code)
	switch {
	case strings.Contains(text, "authentication") || strings.Contains(text, "forbidden") || strings.Contains(text, "unauthorized"):
		return KindAuth
	case strings.Contains(text, "not found"):
		return KindNotFound
	case strings.Contains(text, "ratelimit") || strings.Contains(text, "rate limit"):
		return KindTransient
	case strings.Contains(text, "validation") || strings.Contains(text, "invalid input"):
		return KindFieldShape
	default:
		return KindGeneric
	}
}

func linearDescription(fields map[string]any) string {
	var b strings.Builder
	b.WriteString(stringField(fields, "description"))

	names := make([]string, 0, len(fields))
	for name := range fields {
		if name == "title" || name == "description" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := formatValue(fields[name])
		if value == "" {
			continue
		}
		fmt.Fprintf(&b, "\n\n**%s**: %s", name, value)
	}
	return b.String()
}

func stringField(fields map[string]any, name string) string {
	return formatValue(fields[name])
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, "; ")
	case float64:
		return fmt.Sprintf("%.2f", val)
	default:
		return fmt.Sprint(val)
	}
}
