// Package transport is the JSON-over-HTTP layer used to talk to the CMS.
// Every call carries an explicit timeout and non-2xx responses surface as
// *StatusError.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"autopress/internal/models"
)

const (
	DefaultTimeout = 10 * time.Second
	maxErrorBody   = 4096
)

// Config describes the transport configuration.
type Config struct {
	BaseURL            string
	Timeout            time.Duration
	InsecureSkipVerify bool
	HTTPClient         *http.Client // overrides Timeout and InsecureSkipVerify when set
}

// Client sends JSON requests relative to a base URL.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// DecodeError is returned when a 2xx response body is not valid JSON for the
// expected shape.
type DecodeError struct {
	URL  string
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("transport: base url is required")
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("transport: parse base url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.InsecureSkipVerify {
			log.Warn("TLS verification for the CMS is disabled")
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via cms.insecure_skip_verify
		}
		client = &http.Client{Timeout: timeout, Transport: tr}
	}
	return &Client{baseURL: baseURL, http: client}, nil
}

// Get issues a GET request and decodes the JSON response into out (if non-nil).
func (c *Client) Get(ctx context.Context, path string, query url.Values, header http.Header, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, header, out)
}

// Post issues a POST request with body encoded as JSON.
func (c *Client) Post(ctx context.Context, path string, body any, header http.Header, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, header, out)
}

// URL returns the absolute URL for a path below the base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, header http.Header, out any) error {
	endpoint := c.URL(path, query)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body for %s: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", endpoint, err)
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts and connection failures are treated alike.
		return &models.TransportError{Op: method, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	log.Debugf("%s %s -> %d (%s)", method, endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method: method,
			URL:    endpoint,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(snippet)),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &models.TransportError{Op: method, URL: endpoint, Err: fmt.Errorf("read body: %w", err)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{URL: endpoint, Body: truncate(string(data), maxErrorBody), Err: err}
	}
	return nil
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
