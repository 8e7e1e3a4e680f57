// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// MaxResponseSize caps response bodies to prevent memory exhaustion.
const MaxResponseSize = 10 * 1024 * 1024 // 10MB

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the local backend base URL (default: http://localhost:8000)
	BaseURL string

	// Timeout for requests (default: 60s). Chat answers can take a
	// while when the backend delegates to a remote model.
	Timeout time.Duration

	// RequestsPerSecond smooths outbound bursts (default: 10).
	RequestsPerSecond float64

	// Burst is the limiter burst size (default: 20).
	Burst int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:           "http://localhost:8000",
		Timeout:           60 * time.Second,
		RequestsPerSecond: 10,
		Burst:             20,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// TokenSource returns the current bearer credential, or "" when no
// session exists.
type TokenSource func() string

// Client handles communication with the mali-chat backend.
// It is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter

	tokenSource    TokenSource
	onForcedLogout func(reason error)
	notify         func(message string)

	// tearingDown suppresses recursive forced logouts: a request that
	// fails while teardown is already running must not start another.
	tearingDown atomic.Bool

	tracer   trace.Tracer
	requests metric.Int64Counter
	failures metric.Int64Counter
}

// NewClient creates a backend client with the given configuration.
// Zero-value fields fall back to defaults.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8000"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RequestsPerSecond == 0 {
		config.RequestsPerSecond = 10
	}
	if config.Burst == 0 {
		config.Burst = 20
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")

	meter := otel.Meter("mali-chat/api")
	requests, _ := meter.Int64Counter("malichat.api.requests")
	failures, _ := meter.Int64Counter("malichat.api.failures")

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:  rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		tracer:   otel.Tracer("mali-chat/api"),
		requests: requests,
		failures: failures,
	}
}

// SetTokenSource wires the session store's credential accessor.
func (c *Client) SetTokenSource(source TokenSource) {
	c.tokenSource = source
}

// SetForcedLogoutHook wires the teardown executed when a request hits
// the session-expired or backend-unreachable class.
func (c *Client) SetForcedLogoutHook(hook func(reason error)) {
	c.onForcedLogout = hook
}

// SetNotifier wires the blocking notice shown before an
// unreachable-backend teardown. Optional; nil means no notice.
func (c *Client) SetNotifier(notify func(message string)) {
	c.notify = notify
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// Get issues a GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

// GetBytes issues a GET and returns the raw response body, used for
// training-file downloads.
func (c *Client) GetBytes(ctx context.Context, path string) ([]byte, error) {
	var raw rawBody
	if err := c.do(ctx, http.MethodGet, path, nil, "", &raw); err != nil {
		return nil, err
	}
	return raw.data, nil
}

// PostJSON issues a POST with a JSON body and decodes the response.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), "application/json", out)
}

// PostForm issues a POST with a form-encoded body and decodes the
// response. The login endpoint expects this shape.
func (c *Client) PostForm(ctx context.Context, path string, values url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, strings.NewReader(values.Encode()),
		"application/x-www-form-urlencoded", out)
}

// PostMultipart issues a POST with a multipart body carrying one file
// and any extra fields, used for file and voice uploads.
func (c *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, fileField, fileName string, file io.Reader, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to write form field: %w", err)
		}
	}
	part, err := w.CreateFormFile(fileField, fileName)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	return c.do(ctx, http.MethodPost, path, &buf, w.FormDataContentType(), out)
}

// Put issues a PUT with a JSON body and decodes the response.
func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPut, path, bytes.NewReader(body), "application/json", out)
}

// Delete issues a DELETE and decodes the response.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, "", out)
}

// rawBody marks an out parameter that wants the body verbatim.
type rawBody struct {
	data []byte
}

// =============================================================================
// CORE REQUEST PATH
// =============================================================================

// do issues one request with the cross-cutting concerns applied:
// bearer injection before send, failure classification after.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, span := c.tracer.Start(ctx, method+" "+path)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	token := ""
	if c.tokenSource != nil {
		token = c.tokenSource()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// No response at all: the backend (or the network) is down.
		return c.failUnreachable(ctx, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return c.failUnreachable(ctx, path, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return decodeInto(data, out)
	}

	return c.classifyFailure(ctx, path, resp.StatusCode, data, token != "")
}

// classifyFailure maps a non-2xx status to the error taxonomy and
// triggers the central teardown for the two global classes.
func (c *Client) classifyFailure(ctx context.Context, path string, status int, body []byte, hadToken bool) error {
	switch {
	case status == http.StatusUnauthorized:
		if !hadToken {
			// 401 without a credential attached is a failed login,
			// not an expired session.
			c.countFailure(ctx, path, "invalid_credentials")
			return fmt.Errorf("%w: %s", ErrInvalidCredentials, errorDetail(body))
		}
		c.countFailure(ctx, path, "session_expired")
		// Session expired: quiet teardown, no blocking notice.
		c.forceLogout(ErrSessionExpired)
		return ErrSessionExpired

	case unreachableStatus(status):
		c.countFailure(ctx, path, "unreachable")
		c.announceUnreachable()
		c.forceLogout(ErrBackendUnreachable)
		return fmt.Errorf("%w: HTTP %d", ErrBackendUnreachable, status)

	default:
		c.countFailure(ctx, path, "request_failed")
		return &APIError{Status: status, Detail: errorDetail(body)}
	}
}

// failUnreachable handles the no-response transport failure class.
func (c *Client) failUnreachable(ctx context.Context, path string, cause error) error {
	c.countFailure(ctx, path, "unreachable")
	c.announceUnreachable()
	c.forceLogout(ErrBackendUnreachable)
	return fmt.Errorf("%w: %v", ErrBackendUnreachable, cause)
}

// announceUnreachable shows the blocking server-down notice, if a
// notifier is wired.
func (c *Client) announceUnreachable() {
	if c.notify != nil {
		c.notify("Server unavailable. The backend cannot be reached; you will be logged out.")
	}
}

// forceLogout runs the central teardown exactly once per failure
// episode. Idempotent, and a teardown in progress suppresses any
// teardown triggered by its own requests.
func (c *Client) forceLogout(reason error) {
	if c.onForcedLogout == nil {
		return
	}
	if !c.tearingDown.CompareAndSwap(false, true) {
		return
	}
	defer c.tearingDown.Store(false)

	slog.Info("forced logout", "reason", reason)
	c.onForcedLogout(reason)
}

func (c *Client) countFailure(ctx context.Context, path, class string) {
	c.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("class", class),
	))
}

// =============================================================================
// BODY DECODING
// =============================================================================

// decodeInto unmarshals a successful response body into out. A nil out
// discards the body; *rawBody receives it verbatim.
func decodeInto(data []byte, out any) error {
	switch v := out.(type) {
	case nil:
		return nil
	case *rawBody:
		v.data = data
		return nil
	default:
		if len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}
}

// errorDetail extracts a human-readable message from an error body.
// The backend reports {"detail": "..."}; fall back to the raw text.
func errorDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}
