// Package cloudimport pulls finished meeting recordings from a cloud
// recording API and ingests their transcripts.
package cloudimport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultPageSize    = 100
	maxTranscriptBytes = 8 << 20
	transcriptFileType = "TRANSCRIPT"
)

// Recording is one finished meeting with a transcript file.
type Recording struct {
	MeetingID     string
	Topic         string
	StartTime     time.Time
	Duration      time.Duration
	TranscriptURL string
}

// RecordingSource lists recordings and fetches their transcripts.
type RecordingSource interface {
	ListRecordings(ctx context.Context, since time.Time) ([]Recording, error)
	DownloadTranscript(ctx context.Context, downloadURL string) (string, error)
}

// ClientConfig configures the recording API client.
type ClientConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client talks to the recording API with an OAuth2 client-credentials token.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client whose requests carry a refreshed bearer token.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("cloud import client id and secret are required")
	}
	if cfg.TokenURL == "" || cfg.BaseURL == "" {
		return nil, fmt.Errorf("cloud import base and token urls are required")
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	httpClient := cc.Client(ctx)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient.Timeout = timeout
	return NewClientWithHTTP(cfg.BaseURL, httpClient), nil
}

// NewClientWithHTTP builds a client around an already authorized HTTP client.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

type apiRecordingFile struct {
	ID            string `json:"id"`
	FileType      string `json:"file_type"`
	RecordingType string `json:"recording_type"`
	DownloadURL   string `json:"download_url"`
	Status        string `json:"status"`
}

type apiMeeting struct {
	UUID           string             `json:"uuid"`
	ID             json.Number        `json:"id"`
	Topic          string             `json:"topic"`
	StartTime      time.Time          `json:"start_time"`
	Duration       int                `json:"duration"`
	RecordingFiles []apiRecordingFile `json:"recording_files"`
}

type apiRecordingPage struct {
	Meetings      []apiMeeting `json:"meetings"`
	NextPageToken string       `json:"next_page_token"`
}

// toRecording keeps meetings that carry a completed transcript file.
func (m apiMeeting) toRecording() (Recording, bool) {
	for _, f := range m.RecordingFiles {
		if !strings.EqualFold(f.FileType, transcriptFileType) || f.DownloadURL == "" {
			continue
		}
		if f.Status != "" && !strings.EqualFold(f.Status, "completed") {
			continue
		}
		id := m.UUID
		if id == "" {
			id = m.ID.String()
		}
		return Recording{
			MeetingID:     id,
			Topic:         m.Topic,
			StartTime:     m.StartTime,
			Duration:      time.Duration(m.Duration) * time.Minute,
			TranscriptURL: f.DownloadURL,
		}, true
	}
	return Recording{}, false
}

// ListRecordings returns recordings that started on or after since.
func (c *Client) ListRecordings(ctx context.Context, since time.Time) ([]Recording, error) {
	var (
		out       []Recording
		pageToken string
	)
	for {
		q := url.Values{}
		q.Set("from", since.UTC().Format("2006-01-02"))
		q.Set("page_size", fmt.Sprint(defaultPageSize))
		if pageToken != "" {
			q.Set("next_page_token", pageToken)
		}
		var page apiRecordingPage
		if err := c.getJSON(ctx, c.baseURL+"/users/me/recordings?"+q.Encode(), &page); err != nil {
			return nil, err
		}
		for _, m := range page.Meetings {
			if m.StartTime.Before(since) {
				continue
			}
			if rec, ok := m.toRecording(); ok {
				out = append(out, rec)
			}
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

// DownloadTranscript fetches a WebVTT file and returns it as plain text.
func (c *Client) DownloadTranscript(ctx context.Context, downloadURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download transcript: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, URL: downloadURL}
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxTranscriptBytes))
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return VTTToText(string(raw)), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("list recordings: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, URL: endpoint}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode recordings: %w", err)
	}
	return nil
}

// StatusError is a non-200 answer from the recording API.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("recording api responded %d", e.StatusCode)
}

func (e *StatusError) HTTPStatus() int { return e.StatusCode }
