package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/icholy/digest"
)

// Default transport limits.
const (
	defaultTimeout = 15 * time.Second

	// maxResponseBytes caps device responses. Configuration documents
	// are a few KB; anything near this limit is a misbehaving endpoint.
	maxResponseBytes = 1 << 20
)

// AuthMode selects the HTTP authentication scheme.
type AuthMode string

// Supported authentication modes.
const (
	AuthDigest AuthMode = "digest"
	AuthBasic  AuthMode = "basic"
)

// Config describes how to reach one camera.
type Config struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	Auth     AuthMode // defaults to digest
	Timeout  time.Duration
}

// Client issues XML requests against a single camera.
//
// Thread Safety: safe for concurrent use; the underlying http.Client
// handles connection pooling.
type Client struct {
	base  string
	http  *http.Client
	auth  AuthMode
	creds struct{ user, pass string }
}

// New creates a client for the camera described by cfg.
func New(cfg Config) *Client {
	scheme := "http"
	if cfg.TLS {
		scheme = "https"
	}
	port := cfg.Port
	if port == 0 {
		port = 80
		if cfg.TLS {
			port = 443
		}
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	auth := cfg.Auth
	if auth == "" {
		auth = AuthDigest
	}

	var transport http.RoundTripper = http.DefaultTransport
	if auth == AuthDigest {
		transport = &digest.Transport{
			Username:  cfg.Username,
			Password:  cfg.Password,
			Transport: http.DefaultTransport,
		}
	}

	c := &Client{
		base: fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, port),
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		auth: auth,
	}
	c.creds.user = cfg.Username
	c.creds.pass = cfg.Password
	return c
}

// GetXML fetches the document at the given ISAPI path.
func (c *Client) GetXML(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// PutXML uploads a document to the given ISAPI path and returns the
// device's response body (typically a ResponseStatus document).
func (c *Client) PutXML(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

// do executes one request, mapping network failures to ErrTransport and
// non-2xx statuses to ErrStatus.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrTransport, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/xml")
	}
	if c.auth == AuthBasic {
		req.SetBasicAuth(c.creds.user, c.creds.pass)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close on read path

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrTransport, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s %s: status %d", ErrAuth, method, path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: %s %s: status %d", ErrStatus, method, path, resp.StatusCode)
	}

	return data, nil
}
