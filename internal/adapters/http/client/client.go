// Package client is the HTTP client for the InsightPipe backend API.
//
// Each operation performs exactly one round trip: no retries, no caching.
// A 2xx or 3xx status decodes the JSON body; anything else becomes an
// *APIError carrying a fixed per-operation message.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/insightpipe/internal/domain/model"
	"github.com/okian/insightpipe/pkg/logger"
	"github.com/okian/insightpipe/pkg/metrics"
)

// DefaultBaseURL is used when New is given an empty base URL.
const DefaultBaseURL = "http://localhost:8000/api"

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const (
	statusSuccessMin = 200
	statusSuccessMax = 399
	maxErrorBody     = 64 << 10
)

// Client talks to the backend. It holds no mutable state after New returns
// and is safe for concurrent use.
type Client struct {
	baseURL        string
	healthURL      string
	healthOverride string
	httpClient     *http.Client
	logger         logger.Logger
	metrics        *metrics.Manager
	timeout        time.Duration
	requestIDs     bool
}

// New creates a Client for baseURL, e.g. "http://localhost:8000/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q needs scheme and host", ErrInvalidBaseURL, baseURL)
	}
	if u.RawQuery != "" || u.ForceQuery || u.Fragment != "" {
		return nil, fmt.Errorf("%w: %q must not carry a query or fragment", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: http.DefaultClient,
		logger:     logger.Nop(),
		metrics:    metrics.Default(),
		requestIDs: true,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.healthOverride != "" {
		hu, err := url.Parse(c.healthOverride)
		if err != nil || hu.Scheme == "" || hu.Host == "" {
			return nil, fmt.Errorf("%w: health url %q", ErrInvalidBaseURL, c.healthOverride)
		}
		c.healthURL = hu.String()
	} else {
		c.healthURL = deriveHealthURL(u)
	}
	return c, nil
}

// BaseURL returns the configured API prefix without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// HealthURL returns the resolved health endpoint.
func (c *Client) HealthURL() string { return c.healthURL }

// deriveHealthURL resolves "{base}/../health": the health endpoint is a
// sibling of the API prefix, not nested under it.
func deriveHealthURL(base *url.URL) string {
	h := *base
	h.Path = path.Join("/", base.Path, "..", "health")
	h.RawPath = ""
	h.RawQuery = ""
	h.Fragment = ""
	return h.String()
}

// endpoint joins the base URL with escaped path segments.
func (c *Client) endpoint(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// operation describes how one API call reports failure.
type operation struct {
	name       string
	failure    string
	readDetail bool
}

var (
	opHealth = operation{name: "health_check", failure: "Backend not healthy"}
	opPrompt = operation{name: "generate_prompt", failure: "Failed to generate prompt"}
	opSave   = operation{name: "save_document", failure: "Failed to save document", readDetail: true}
	opList   = operation{name: "list_documents", failure: "Failed to list documents"}
	opGet    = operation{name: "get_document", failure: "Failed to load document"}
	opDelete = operation{name: "delete_document", failure: "Failed to delete document"}
	opImport = operation{name: "import_gemini", failure: "Failed to import conversation", readDetail: true}
)

// do sends one request and decodes a successful body into out.
func (c *Client) do(ctx context.Context, op operation, method, target string, body, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: %w: %w", op.name, ErrEncode, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := ""
	if c.requestIDs {
		requestID = uuid.NewString()
		req.Header.Set(RequestIDHeader, requestID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.RecordClientRequest(op.name, "error", durationMs(elapsed))
		c.metrics.RecordClientError(op.name, "transport")
		c.logger.Warn(ctx, "backend request failed",
			logger.String("op", op.name),
			logger.String("method", method),
			logger.String("url", target),
			logger.String("request_id", requestID),
			logger.Error(err))
		return fmt.Errorf("%s: %w: %w", op.name, ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.metrics.RecordClientRequest(op.name, statusClass(resp.StatusCode), durationMs(elapsed))
	c.logger.Debug(ctx, "backend request",
		logger.String("op", op.name),
		logger.String("method", method),
		logger.String("url", target),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", elapsed),
		logger.String("request_id", requestID))

	if !isSuccess(resp.StatusCode) {
		c.metrics.RecordClientError(op.name, "status")
		apiErr := c.statusError(op, resp)
		c.logger.Warn(ctx, "backend returned failure",
			logger.String("error", apiErr.String()),
			logger.String("request_id", requestID))
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := decodeBody(resp.Body, out); err != nil {
		c.metrics.RecordClientError(op.name, "decode")
		return fmt.Errorf("%s: %w: %w", op.name, ErrDecode, err)
	}
	return nil
}

// decodeBody decodes exactly one JSON value; anything after it but
// whitespace is an error.
func decodeBody(r io.Reader, out any) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(out); err != nil {
		return err
	}
	var extra json.RawMessage
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return err
	default:
		return errTrailingData
	}
}

// statusError builds the APIError for a failing response. Only operations
// with readDetail look at the body.
func (c *Client) statusError(op operation, resp *http.Response) *APIError {
	apiErr := &APIError{Op: op.name, StatusCode: resp.StatusCode, Message: op.failure}
	if !op.readDetail {
		return apiErr
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apiErr
	}
	var payload model.ErrorPayload
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Detail != "" {
		apiErr.Message = payload.Detail
	}
	return apiErr
}

func isSuccess(code int) bool {
	return code >= statusSuccessMin && code <= statusSuccessMax
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
