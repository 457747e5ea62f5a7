// Package webhook provides an HTTP client that publishes converted profiles to webhook endpoints.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ccollicutt/profjson/pkg/output"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// maxResponseBody caps the response body read from an endpoint.
const maxResponseBody = 1024 * 1024

// Client sends converted profile documents to webhook endpoints.
type Client struct {
	http *resty.Client
}

// NewClient creates a new webhook client.
func NewClient() *Client {
	return &Client{
		http: resty.New().
			SetHeader("User-Agent", "profjson-webhook").
			SetResponseBodyLimit(maxResponseBody),
	}
}

// SendOptions configures a webhook request.
type SendOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Request timeout (uses DefaultTimeout if zero)
}

// Response contains the result of a webhook request.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Success returns true if the webhook was sent successfully (2xx status).
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Send posts the report's profile document to a webhook endpoint.
// The body is the same JSON array that is written to profiles.json.
func (c *Client) Send(ctx context.Context, report *output.Report, opts SendOptions) *Response {
	start := time.Now()
	resp := &Response{}

	var payload bytes.Buffer
	if err := output.NewJSONFormatter(output.FormatOptions{}).Format(ctx, report, &payload); err != nil {
		resp.Error = fmt.Errorf("failed to marshal profiles: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Profjson-Profiles", strconv.Itoa(report.Summary.ProfilesConverted)).
		SetBody(payload.Bytes())
	if opts.Token != "" {
		req.SetAuthToken(opts.Token)
	}

	r, err := req.Post(opts.URL)
	if err != nil {
		resp.Error = fmt.Errorf("request failed: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	resp.StatusCode = r.StatusCode()
	resp.Body = string(r.Body())
	resp.Duration = time.Since(start)

	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return resp
}
