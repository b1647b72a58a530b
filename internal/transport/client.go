// Package transport sends outbound HTTP requests to an upstream dialect
// endpoint and surfaces the response as either a unary payload or a
// lazily-read sequence of parsed SSE frames. It never interprets
// payloads; it produces bytes and frames and hands them to the adapter
// layer.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/haasonsaas/nexus-bridge/internal/ir"
)

// Client wraps *http.Client with the timeout and header conventions the
// bridge engine needs for upstream calls.
type Client struct {
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient builds a Client with the given per-request timeout. A
// timeout of zero means no client-side deadline beyond the caller's
// context.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		HTTPClient: &http.Client{},
		Timeout:    timeout,
	}
}

// Response is a unary upstream response.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Do performs a unary request and buffers the full response body.
func (c *Client) Do(ctx context.Context, method, url string, headers http.Header, body []byte) (*Response, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, ir.NewError("building upstream request: "+err.Error(), err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	return &Response{Status: resp.StatusCode, Headers: resp.Header, Body: respBody}, nil
}

// Stream performs a streaming request and returns an SSEReader over the
// live response body. The caller must close the returned reader when
// done (normally via draining it to EOF or cancelling ctx).
func (c *Client) Stream(ctx context.Context, method, url string, headers http.Header, body []byte) (*SSEReader, error) {
	// No client-side timeout on a streaming call beyond ctx: the caller
	// controls the deadline for the whole stream, not just connect.
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, ir.NewError("building upstream request: "+err.Error(), err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &streamOpenError{status: resp.StatusCode, body: respBody}
	}

	return newSSEReader(resp.Body), nil
}

// StreamRaw performs a streaming request whose body is a bare
// concatenation of complete JSON objects (Gemini native) rather than SSE
// framing.
func (c *Client) StreamRaw(ctx context.Context, method, url string, headers http.Header, body []byte) (*RawJSONReader, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, ir.NewError("building upstream request: "+err.Error(), err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &streamOpenError{status: resp.StatusCode, body: respBody}
	}

	return newRawJSONReader(resp.Body), nil
}

// streamOpenError carries an upstream non-2xx response encountered while
// opening a streaming request, so the bridge can hand it to the
// dialect's ParseError before any event has been emitted.
type streamOpenError struct {
	status int
	body   []byte
}

func (e *streamOpenError) Error() string {
	return fmt.Sprintf("upstream stream open failed: status=%d", e.status)
}

// AsStreamOpenError extracts status/body from an error returned by
// Stream, if it represents an upstream non-2xx response rather than a
// network failure.
func AsStreamOpenError(err error) (status int, body []byte, ok bool) {
	se, ok := err.(*streamOpenError)
	if !ok {
		return 0, nil, false
	}
	return se.status, se.body, true
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}

func classifyTransportError(ctx context.Context, err error) *ir.Error {
	return ClassifyError(ctx, err)
}

// ClassifyError maps a transport-level error to an ir.Error, checking ctx
// first so a client-driven cancellation or deadline is reported as such
// rather than as a generic network failure. Exported so callers reading
// from a Client-produced reader (SSEReader, RawJSONReader) after the
// initial open can classify a later read error the same way.
func ClassifyError(ctx context.Context, err error) *ir.Error {
	if ctx.Err() == context.Canceled {
		return &ir.Error{Type: ir.ErrCancelled, Message: err.Error(), Cause: err}
	}
	if ctx.Err() == context.DeadlineExceeded {
		return &ir.Error{Type: ir.ErrTimeout, Message: err.Error(), Cause: err}
	}
	return &ir.Error{Type: ir.ErrNetwork, Message: err.Error(), Cause: err}
}
