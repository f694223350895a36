package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/simik394/osobni-wf-sub002/internal/domain"
)

// maxTriggerAttempts bounds retries on calls to external orchestration
// APIs: 429 and 5xx responses and transport timeouts are retried, other
// 4xx fail immediately.
const maxTriggerAttempts = 4

// TriggerClient is an HTTP client for external orchestration and
// job-trigger APIs with a bounded retry policy. It is distinct from the
// graph store path, which is guarded by the circuit breaker instead.
type TriggerClient struct {
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
}

// NewTriggerClient creates a client for the given base URL with a
// per-request timeout. retryDelay is the linear delay unit between
// attempts; zero disables the delay.
func NewTriggerClient(baseURL string, timeout, retryDelay time.Duration) *TriggerClient {
	return &TriggerClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retryDelay: retryDelay,
	}
}

// Post sends a JSON payload and returns the response body. Retryable
// failures are attempted up to maxTriggerAttempts times with a linear
// delay between attempts.
func (c *TriggerClient) Post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	url := c.baseURL + "/" + strings.TrimPrefix(path, "/")

	var lastErr error
	for attempt := 1; attempt <= maxTriggerAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, time.Duration(attempt-1)*c.retryDelay); err != nil {
				return nil, err
			}
		}

		resp, err := c.do(ctx, url, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var apiErr *domain.APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}
	return nil, fmt.Errorf("giving up after %d attempts: %w", maxTriggerAttempts, lastErr)
}

func (c *TriggerClient) do(ctx context.Context, url string, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.APIError{Status: resp.StatusCode, URL: url, Body: strings.TrimSpace(string(respBody))}
	}
	return respBody, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
