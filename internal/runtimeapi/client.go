// Package runtimeapi implements the AWS Lambda Runtime API poll loop for a
// custom runtime.
//
// The loop fetches the next invocation, hands its payload to a Handler
// and reports the outcome:
//
//	GET  /2018-06-01/runtime/invocation/next
//	POST /2018-06-01/runtime/invocation/{id}/response
//	POST /2018-06-01/runtime/invocation/{id}/error
//
// A handler error is reported to the error endpoint so the event source
// retries the batch. A failed poll or an invocation without a request ID
// stops the loop; the process should exit and be restarted by Lambda.
package runtimeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// APIVersion is the Runtime API version prefix.
const APIVersion = "2018-06-01"

// EnvRuntimeAPI holds the runtime API host:port inside a Lambda sandbox.
const EnvRuntimeAPI = "AWS_LAMBDA_RUNTIME_API"

// Response headers on the next-invocation call.
const (
	HeaderRequestID = "Lambda-Runtime-Aws-Request-Id"
	HeaderDeadline  = "Lambda-Runtime-Deadline-Ms"
	HeaderFnARN     = "Lambda-Runtime-Invoked-Function-Arn"
	HeaderTraceID   = "Lambda-Runtime-Trace-Id"

	headerErrorType = "Lambda-Runtime-Function-Error-Type"
)

// DefaultErrorType is reported for handler errors without a type.
const DefaultErrorType = "Runtime.HandlerError"

// ErrMissingHost is returned by New for an empty host.
var ErrMissingHost = errors.New("runtimeapi: " + EnvRuntimeAPI + " is not set")

// Invocation is one event delivered by the runtime.
type Invocation struct {
	RequestID   string
	FunctionARN string
	TraceID     string
	// Deadline is zero if the runtime did not send one.
	Deadline time.Time
	Payload  []byte
}

// Handler processes one invocation payload.
type Handler interface {
	Handle(ctx context.Context, inv *Invocation) ([]byte, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, inv *Invocation) ([]byte, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, inv *Invocation) ([]byte, error) {
	return f(ctx, inv)
}

// ErrorTyper is implemented by errors that carry a runtime error type.
type ErrorTyper interface {
	ErrorType() string
}

type errorPayload struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType"`
}

// Client talks to the Runtime API.
type Client struct {
	base   string
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. The next-invocation call blocks
// until an event arrives, so the client should not have a short timeout.
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

// New creates a client for the runtime API at host ("host:port").
func New(host string, opts ...Option) (*Client, error) {
	if host == "" {
		return nil, ErrMissingHost
	}
	c := &Client{
		base:   fmt.Sprintf("http://%s/%s/runtime", host, APIVersion),
		http:   &http.Client{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Next blocks until the next invocation is available.
func (c *Client) Next(ctx context.Context) (*Invocation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/invocation/next", nil)
	if err != nil {
		return nil, fmt.Errorf("next: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("next: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("next: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("next: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	inv := &Invocation{
		RequestID:   resp.Header.Get(HeaderRequestID),
		FunctionARN: resp.Header.Get(HeaderFnARN),
		TraceID:     resp.Header.Get(HeaderTraceID),
		Payload:     body,
	}
	if inv.RequestID == "" {
		return nil, fmt.Errorf("next: invocation without %s header", HeaderRequestID)
	}
	if ms, err := strconv.ParseInt(resp.Header.Get(HeaderDeadline), 10, 64); err == nil {
		inv.Deadline = time.UnixMilli(ms)
	}
	return inv, nil
}

// Respond reports a successful invocation.
func (c *Client) Respond(ctx context.Context, requestID string, body []byte) error {
	return c.post(ctx, "/invocation/"+requestID+"/response", body, nil)
}

// Fail reports a failed invocation.
func (c *Client) Fail(ctx context.Context, requestID string, invErr error) error {
	errType := DefaultErrorType
	var typed ErrorTyper
	if errors.As(invErr, &typed) {
		errType = typed.ErrorType()
	}
	body, err := json.Marshal(errorPayload{ErrorMessage: invErr.Error(), ErrorType: errType})
	if err != nil {
		return fmt.Errorf("fail: %w", err)
	}
	return c.post(ctx, "/invocation/"+requestID+"/error", body, http.Header{headerErrorType: {errType}})
}

func (c *Client) post(ctx context.Context, path string, body []byte, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post %s: status %d", path, resp.StatusCode)
	}
	return nil
}

// Serve runs the poll loop until ctx is cancelled or the runtime API
// fails. It returns ctx.Err() on cancellation.
func (c *Client) Serve(ctx context.Context, h Handler) error {
	c.logger.Info("runtime loop starting", "api", c.base)
	for {
		inv, err := c.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("runtime loop stopping: context cancelled")
				return ctx.Err()
			}
			return err
		}
		if err := c.invoke(ctx, h, inv); err != nil {
			return err
		}
	}
}

func (c *Client) invoke(ctx context.Context, h Handler, inv *Invocation) error {
	c.logger.Debug("invocation received",
		"request_id", inv.RequestID,
		"bytes", len(inv.Payload),
	)

	hctx := ctx
	if !inv.Deadline.IsZero() {
		var cancel context.CancelFunc
		hctx, cancel = context.WithDeadline(ctx, inv.Deadline)
		defer cancel()
	}

	out, herr := h.Handle(hctx, inv)
	if herr != nil {
		c.logger.Error("invocation failed",
			"request_id", inv.RequestID,
			"error", herr,
		)
		if err := c.Fail(ctx, inv.RequestID, herr); err != nil {
			return err
		}
		return nil
	}

	if err := c.Respond(ctx, inv.RequestID, out); err != nil {
		return err
	}
	c.logger.Debug("invocation completed", "request_id", inv.RequestID)
	return nil
}
