// Package index applies operation batches to an Algolia-compatible search
// index over its HTTP batch API.
package index

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
	"strconv"
	"strings"
	"time"

	"github.com/HENNGE/lambda-container-example/internal/reconcile"
)

// Header names used by the batch API.
const (
	HeaderApplicationID = "X-Algolia-Application-Id"
	HeaderAPIKey        = "X-Algolia-API-Key"
)

// DefaultBatchSize is the number of operations sent per request.
const DefaultBatchSize = 1000

// ErrMissingConfig is returned by Check when credentials or the index name
// are not configured.
var ErrMissingConfig = errors.New("index: missing configuration")

// Config configures a Client.
type Config struct {
	AppID     string        `json:"app_id" yaml:"app_id"`
	APIKey    string        `json:"-" yaml:"-"`
	IndexName string        `json:"index" yaml:"index"`
	BaseURL   string        `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	BatchSize int           `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Client is a search index batch client. It is safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a Client. Configuration problems are reported by Check, not
// here, so a misconfigured client can still be constructed at startup.
func New(cfg Config, opts ...Option) *Client {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BaseURL == "" && cfg.AppID != "" {
		cfg.BaseURL = "https://" + cfg.AppID + ".algolia.net"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Target names the index in apply results and logs.
func (c *Client) Target() string {
	return "index:" + c.cfg.IndexName
}

// Check reports missing credentials or index name.
func (c *Client) Check() error {
	var missing []string
	if c.cfg.AppID == "" {
		missing = append(missing, "app id")
	}
	if c.cfg.APIKey == "" {
		missing = append(missing, "api key")
	}
	if c.cfg.IndexName == "" {
		missing = append(missing, "index name")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}

type batchRequest struct {
	Requests []reconcile.Operation `json:"requests"`
}

type batchResponse struct {
	TaskID    int64    `json:"taskID"`
	ObjectIDs []string `json:"objectIDs"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Apply sends ops in chunks of the configured batch size.
//
// A chunk rejected by the index (non-2xx) marks each of its operations
// failed and the remaining chunks are still sent. A response acknowledging
// fewer object IDs than were sent marks the unacknowledged tail failed.
// Transport errors abort and are returned.
func (c *Client) Apply(ctx context.Context, batchID string, ops []reconcile.Operation) (*reconcile.ApplyResult, error) {
	if err := c.Check(); err != nil {
		return nil, err
	}

	res := &reconcile.ApplyResult{Target: c.Target()}
	for start := 0; start < len(ops); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(ops))
		chunk := ops[start:end]

		resp, status, err := c.send(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("index batch %s: %w", batchID, err)
		}
		if status != "" {
			for i, op := range chunk {
				res.Fail(start+i, op, status)
			}
			c.logger.Warn("index batch rejected",
				"batch_id", batchID,
				"index", c.cfg.IndexName,
				"operations", len(chunk),
				"reason", status,
			)
			continue
		}

		acked := min(len(resp.ObjectIDs), len(chunk))
		res.Applied += acked
		for i := acked; i < len(chunk); i++ {
			res.Fail(start+i, chunk[i], "not acknowledged by index")
		}
		res.TaskID = strconv.FormatInt(resp.TaskID, 10)

		c.logger.Debug("index batch sent",
			"batch_id", batchID,
			"index", c.cfg.IndexName,
			"operations", len(chunk),
			"task_id", resp.TaskID,
		)
	}
	return res, nil
}

// send posts one chunk. A non-empty status means the index rejected it.
func (c *Client) send(ctx context.Context, ops []reconcile.Operation) (*batchResponse, string, error) {
	body, err := json.Marshal(batchRequest{Requests: ops})
	if err != nil {
		return nil, "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/1/indexes/%s/batch", c.cfg.BaseURL, url.PathEscape(c.cfg.IndexName))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderApplicationID, c.cfg.AppID)
	req.Header.Set(HeaderAPIKey, c.cfg.APIKey)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			return nil, fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode, e.Message), nil
		}
		return nil, fmt.Sprintf("HTTP %d", httpResp.StatusCode), nil
	}

	var resp batchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, "", fmt.Errorf("decode response: %w", err)
	}
	return &resp, "", nil
}
