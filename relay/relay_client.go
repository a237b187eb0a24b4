// Package relay talks to a sandbox's control endpoint: artifact delivery and
// heartbeat probes. Every call builds its own http.Client so no connection
// state is shared between unrelated operations.
package relay

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/imroc/req"
	"github.com/tidwall/gjson"
)

// Options control endpoint paths and timeouts
type Options struct {
	EditPath         string
	HeartbeatPath    string
	PushTimeout      time.Duration
	HeartbeatTimeout time.Duration
}

// Client control endpoint client
type Client struct {
	opts Options
}

// PushResult sandbox reply to an artifact push
type PushResult struct {
	StatusCode int    // HTTP status
	Status     string // "ok" or "error" as reported by the sandbox
	Message    string // validation message when Status is "error"
	Body       []byte // raw reply, relayed verbatim to callers
}

// StatusError non-2xx reply from the control endpoint
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: control endpoint returned HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// NewClient create control endpoint client
func NewClient(opts Options) *Client {
	if opts.EditPath == "" {
		opts.EditPath = "/edit"
	}
	if opts.HeartbeatPath == "" {
		opts.HeartbeatPath = "/heartbeat"
	}
	if opts.PushTimeout <= 0 {
		opts.PushTimeout = 60 * time.Second
	}
	if opts.HeartbeatTimeout <= 0 {
		opts.HeartbeatTimeout = 10 * time.Second
	}
	return &Client{opts: opts}
}

// Push delivers component to the sandbox. A non-2xx reply is a *StatusError.
func (c *Client) Push(ctx context.Context, controlURL, component string) (*PushResult, error) {
	r := req.New()
	httpClient := &http.Client{Timeout: c.opts.PushTimeout}

	resp, err := r.Post(joinURL(controlURL, c.opts.EditPath),
		ctx,
		httpClient,
		req.Header{"Content-Type": "application/json"},
		req.BodyJSON(map[string]string{"component": component}),
	)
	if err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}

	code := resp.Response().StatusCode
	body := resp.Bytes()
	if code < 200 || code > 299 {
		return nil, &StatusError{Op: "push", StatusCode: code, Body: string(body)}
	}

	result := gjson.ParseBytes(body)
	return &PushResult{
		StatusCode: code,
		Status:     result.Get("status").String(),
		Message:    result.Get("message").String(),
		Body:       body,
	}, nil
}

// Heartbeat returns nil only when the sandbox answers HTTP 200
func (c *Client) Heartbeat(ctx context.Context, controlURL string) error {
	r := req.New()
	httpClient := &http.Client{Timeout: c.opts.HeartbeatTimeout}

	resp, err := r.Get(joinURL(controlURL, c.opts.HeartbeatPath), ctx, httpClient)
	if err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}

	if code := resp.Response().StatusCode; code != http.StatusOK {
		return &StatusError{Op: "heartbeat", StatusCode: code, Body: resp.String()}
	}
	return nil
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
