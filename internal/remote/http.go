package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hyperengineering/codex/internal/fingerprint"
	"github.com/hyperengineering/codex/internal/types"
)

// Compile-time interface check
var _ Store = (*HTTPClient)(nil)

// Options configures an HTTPClient. Zero values fall back to defaults.
type Options struct {
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	Logger        *slog.Logger
}

// HTTPClient implements Store over the JSON API served by `codex serve`.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewHTTPClient creates a client for the store at baseURL.
func NewHTTPClient(baseURL, apiKey string, opts Options) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse remote url: %w", err)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(limit, opts.Burst),
		logger:  logger.With("component", "remote"),
	}, nil
}

// Health calls GET /api/v1/health.
func (c *HTTPClient) Health(ctx context.Context) (*types.HealthResponse, error) {
	var resp types.HealthResponse
	if err := c.do(ctx, "health", http.MethodGet, "/api/v1/health", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListAttributes calls GET /api/v1/attributes.
func (c *HTTPClient) ListAttributes(ctx context.Context) ([]types.AttributeEntry, error) {
	var resp types.AttributesResponse
	if err := c.do(ctx, "list attributes", http.MethodGet, "/api/v1/attributes", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Attributes, nil
}

// QueryData calls GET /api/v1/data for the attribute fingerprint.
func (c *HTTPClient) QueryData(ctx context.Context, attribute fingerprint.Fingerprint, limit int) ([]types.DataEntry, error) {
	if !attribute.Valid() {
		return nil, ErrInvalidFingerprint
	}
	q := fingerprintQuery(attribute)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp types.DataResponse
	if err := c.do(ctx, "query data", http.MethodGet, "/api/v1/data", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Write calls POST /api/v1/data.
func (c *HTTPClient) Write(ctx context.Context, req types.WriteRequest) (*types.WriteResponse, error) {
	if !req.AttributeFingerprint.Valid() || !req.DataFingerprint.Valid() {
		return nil, ErrInvalidFingerprint
	}
	var resp types.WriteResponse
	if err := c.do(ctx, "write", http.MethodPost, "/api/v1/data", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteData calls DELETE /api/v1/data.
func (c *HTTPClient) DeleteData(ctx context.Context, req types.DeleteDataRequest) (int64, error) {
	if !req.AttributeFingerprint.Valid() || !req.DataFingerprint.Valid() {
		return 0, ErrInvalidFingerprint
	}
	var resp types.DeleteResponse
	if err := c.do(ctx, "delete data", http.MethodDelete, "/api/v1/data", nil, req, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// DeleteAttribute calls DELETE /api/v1/attributes.
func (c *HTTPClient) DeleteAttribute(ctx context.Context, req types.DeleteAttributeRequest) (int64, error) {
	if !req.AttributeFingerprint.Valid() {
		return 0, ErrInvalidFingerprint
	}
	query := fingerprintQuery(req.AttributeFingerprint)
	if req.Text != "" {
		query.Set("text", req.Text)
	}
	var resp types.DeleteResponse
	if err := c.do(ctx, "delete attribute", http.MethodDelete, "/api/v1/attributes", query, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// fingerprintQuery formats both components so they parse back bit-exact.
func fingerprintQuery(fp fingerprint.Fingerprint) url.Values {
	q := url.Values{}
	q.Set("max", strconv.FormatFloat(fp.Max, 'g', -1, 64))
	q.Set("min", strconv.FormatFloat(fp.Min, 'g', -1, 64))
	return q
}

// do sends an authenticated JSON request and decodes a success body into out.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit: %w", op, err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return &RemoteError{Op: op, Message: Truncate(err.Error(), MaxMessageRunes)}
	}
	defer resp.Body.Close()

	c.logger.Debug("remote request",
		"op", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{Op: op, Status: resp.StatusCode, Message: problemMessage(resp)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// problemMessage extracts a human-readable message from an error response,
// preferring the RFC 7807 detail field.
func problemMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var p struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Errors []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	msg := ""
	if err := json.Unmarshal(raw, &p); err == nil && (p.Detail != "" || p.Title != "") {
		msg = p.Detail
		if msg == "" {
			msg = p.Title
		}
		for _, fe := range p.Errors {
			msg += "; " + fe.Field + " " + fe.Message
		}
	} else {
		msg = string(raw)
	}
	if strings.TrimSpace(msg) == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return Truncate(msg, MaxMessageRunes)
}
