// Package integration holds the adapters for third-party APIs: Twilio SMS,
// Resend email, DocuSign, Google OAuth, Calendar and Geocoding, and Rentcast.
package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// maxResponseSize caps how much of a provider response is read (4MB)
const maxResponseSize = 4 * 1024 * 1024

// DefaultTimeout is the HTTP client timeout for every provider
const DefaultTimeout = 30 * time.Second

// ErrNotConfigured is returned when a provider has no credentials
var ErrNotConfigured = errors.New("integration: provider not configured")

// APIError is a failed provider call. StatusCode is 0 for transport errors.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message())
}

func (e *APIError) Unwrap() error { return e.Err }

// Message extracts the provider's error text from common JSON shapes
func (e *APIError) Message() string {
	for _, path := range []string{"message", "error.message", "error_description", "error", "errorCode"} {
		if r := gjson.Get(e.Body, path); r.Exists() && r.Type == gjson.String {
			return r.String()
		}
	}
	if len(e.Body) > 200 {
		return e.Body[:200]
	}
	return e.Body
}

// Retryable reports whether the call may succeed if repeated
func (e *APIError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable reports whether err is a retryable provider failure
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// CallObserver records provider call latency and outcome
type CallObserver interface {
	ProviderCall(provider string, err error, took time.Duration)
}

// caller is the HTTP plumbing shared by every adapter
type caller struct {
	provider   string
	httpClient *http.Client
	observer   CallObserver
}

func newCaller(provider string, timeout time.Duration, observer CallObserver) caller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return caller{
		provider:   provider,
		httpClient: &http.Client{Timeout: timeout},
		observer:   observer,
	}
}

// do sends req and returns the body of a 2xx response
func (c caller) do(req *http.Request) (body []byte, err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ProviderCall(c.provider, err, time.Since(start))
		}
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Provider: c.provider, Err: err}
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &APIError{Provider: c.provider, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Provider: c.provider, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c caller) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", c.provider, err)
	}
	return req, nil
}
