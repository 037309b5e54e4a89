// Package webhook delivers JSON payloads to external URLs with bounded,
// exponentially backed-off retries.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	userAgent            = "MeetyAI-Webhook/1.0"
	defaultRetryAttempts = 3
	defaultTimeout       = 10 * time.Second
	defaultBaseDelay     = 2 * time.Second
	maxErrorBody         = 512

	// MaxURLLength bounds accepted webhook URLs.
	MaxURLLength = 2048
)

// ErrInvalidURL marks a webhook URL that can never be delivered to.
var ErrInvalidURL = errors.New("invalid webhook url")

// errBuildRequest marks a request that cannot be built; retrying will not help.
var errBuildRequest = errors.New("build request")

// ValidateURL accepts absolute http(s) URLs of at most MaxURLLength characters.
func ValidateURL(raw string) error {
	if len(raw) > MaxURLLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidURL, MaxURLLength)
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q is not http or https", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

// Config bounds one delivery. RetryAttempts is the total number of attempts.
type Config struct {
	RetryAttempts int
	Timeout       time.Duration
	Headers       map[string]string
}

// Result reports the definite outcome of a delivery.
type Result struct {
	Success    bool   `json:"success"`
	Attempts   int    `json:"attempts"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Dispatcher sends webhook requests. It is safe for concurrent use.
type Dispatcher struct {
	httpClient *http.Client
	baseDelay  time.Duration
	sleeper    func(context.Context, time.Duration) error
	logger     *slog.Logger
}

// Option customizes the dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient overrides the HTTP client. Per-attempt timeouts still apply.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// WithBaseDelay overrides the first backoff delay (defaults to 2s).
func WithBaseDelay(delay time.Duration) Option {
	return func(d *Dispatcher) {
		if delay > 0 {
			d.baseDelay = delay
		}
	}
}

// WithSleeper overrides how backoff waits are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(d *Dispatcher) {
		if sleeper != nil {
			d.sleeper = sleeper
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		httpClient: &http.Client{},
		baseDelay:  defaultBaseDelay,
		sleeper:    sleepContext,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Backoff returns the wait before the given attempt (1-based). The first attempt
// never waits; later attempts wait base, 2*base, 4*base and so on.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	return base << (attempt - 2)
}

// Deliver posts payload to target. It retries non-2xx responses and transport
// errors until cfg.RetryAttempts attempts have been made, then reports failure.
// It never returns an error; the outcome is carried in Result.
func (d *Dispatcher) Deliver(ctx context.Context, target string, payload any, cfg Config) Result {
	target = strings.TrimSpace(target)
	if target == "" {
		return Result{Error: "webhook url is required"}
	}
	if err := ValidateURL(target); err != nil {
		d.logger.Warn("webhook url rejected", "error", err)
		return Result{Error: err.Error()}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Error: fmt.Sprintf("encode payload: %v", err)}
	}

	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var result Result
	for attempt := 1; attempt <= attempts; attempt++ {
		if wait := Backoff(d.baseDelay, attempt); wait > 0 {
			if err := d.sleeper(ctx, wait); err != nil {
				result.Error = fmt.Sprintf("delivery cancelled: %v", err)
				return result
			}
		}
		result.Attempts = attempt
		status, err := d.send(ctx, target, body, timeout, cfg.Headers)
		result.StatusCode = status
		if err == nil {
			result.Success = true
			result.Error = ""
			d.logger.Info("webhook delivered", "url", target, "attempt", attempt, "status", status)
			return result
		}
		result.Error = err.Error()
		if errors.Is(err, errBuildRequest) {
			d.logger.Error("webhook request cannot be built", "url", target, "error", err)
			return result
		}
		d.logger.Warn("webhook attempt failed", "url", target, "attempt", attempt, "max_attempts", attempts, "error", err)
		if ctx.Err() != nil {
			return result
		}
	}
	d.logger.Error("webhook delivery exhausted retries", "url", target, "attempts", result.Attempts, "error", result.Error)
	return result
}

func (d *Dispatcher) send(ctx context.Context, target string, body []byte, timeout time.Duration, headers map[string]string) (int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBuildRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return 0, fmt.Errorf("request timed out after %s", timeout)
		}
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return resp.StatusCode, fmt.Errorf("webhook responded %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
