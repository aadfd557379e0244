package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout is used when HTTPOptions.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response body is read.
const maxBodySize = 32 << 20

// HTTPOptions configures an HTTPClient.
type HTTPOptions struct {
	// BaseURL is the language API endpoint.
	BaseURL string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// Proxy is an explicit proxy URL. Empty means HTTP_PROXY/HTTPS_PROXY.
	Proxy string
	// UserAgent is sent with every request.
	UserAgent string
	// Debug, if set, receives a line per request.
	Debug func(format string, args ...any)
}

// HTTPClient calls the language API over HTTP.
//
// The routing fields and the action travel in the query string, the
// action-specific parameters in a form-encoded POST body. The response body
// must be a JSON envelope.
type HTTPClient struct {
	opts   HTTPOptions
	client *http.Client
}

// NewHTTPClient returns a client for opts.BaseURL.
func NewHTTPClient(opts HTTPOptions) (*HTTPClient, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("api url is empty")
	}
	if _, err := url.ParseRequestURI(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", opts.BaseURL, err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &HTTPClient{
		opts:   opts,
		client: makeHTTPClient(opts.Proxy, opts.Timeout),
	}, nil
}

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// Call implements Client.
func (c *HTTPClient) Call(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.Action == "" {
		return nil, nil
	}

	endpoint, err := c.endpoint(req)
	if err != nil {
		return nil, &TransportError{Op: "building request", Err: err}
	}

	form := url.Values{}
	for k, v := range req.Params {
		form.Set(k, v)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &TransportError{Op: "creating request", URL: endpoint, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	if c.opts.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.opts.UserAgent)
	}

	if c.opts.Debug != nil {
		c.opts.Debug("POST %s (%s)", endpoint, req)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{Op: "POST", URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Op: "reading response", URL: endpoint, Err: err}
	}

	success := resp.StatusCode >= 200 && resp.StatusCode <= 299

	// A bare false or null body is a call that produced no result.
	if success && isEmptyPayload(body) && len(bytes.TrimSpace(body)) > 0 {
		return nil, nil
	}

	var envelope Response
	decodeErr := json.Unmarshal(body, &envelope)

	if !success {
		// Error envelopes may come with a non-2xx status; let the
		// validator report them with their error type and code.
		if decodeErr == nil && envelope.Status != "" && envelope.Status != StatusOK {
			return &envelope, nil
		}
		return nil, &TransportError{
			Op:  "POST",
			URL: endpoint,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}

	if decodeErr != nil {
		return nil, &TransportError{Op: "decoding response", URL: endpoint, Err: decodeErr}
	}

	return &envelope, nil
}

func (c *HTTPClient) endpoint(req *Request) (string, error) {
	u, err := url.Parse(c.opts.BaseURL)
	if err != nil {
		return "", err
	}

	target, mode, system := req.Target, req.Mode, req.System
	if target == "" {
		target = DefaultTarget
	}
	if mode == "" {
		mode = DefaultMode
	}
	if system == "" {
		system = SystemName
	}

	q := u.Query()
	q.Set("target", target)
	q.Set("mode", mode)
	q.Set("system", system)
	q.Set("action", string(req.Action))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
