// Package transport builds the HTTP clients used for introspection and probing.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/net/proxy"

	"github.com/getmockd/gqlprobe/pkg/tracing"
)

const (
	// DefaultTimeout is the per-request timeout when none is configured.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent when no User-Agent is configured.
	DefaultUserAgent = "Mozilla/5.0"

	// MaxBodySize caps how much of a response body is read.
	MaxBodySize = 32 << 20
)

// ErrUnsupportedProxy is returned for proxy URLs with an unknown scheme.
var ErrUnsupportedProxy = errors.New("unsupported proxy scheme")

// Options configures an HTTP client.
type Options struct {
	Timeout  time.Duration
	Insecure bool
	// Proxy is an http, https or socks5 URL. Empty means a direct connection.
	Proxy string
}

// New returns an HTTP client honoring opts.
func New(opts Options) (*http.Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	tr := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if opts.Insecure {
		tr.TLSClientConfig = &tls.Config{
			//nolint:gosec // G402: certificate checks are disabled only when --insecure is set
			InsecureSkipVerify: true,
		}
	}

	if opts.Proxy != "" {
		if err := configureProxy(tr, dialer, opts.Proxy); err != nil {
			return nil, err
		}
	}

	return &http.Client{Timeout: timeout, Transport: tr}, nil
}

func configureProxy(tr *http.Transport, dialer *net.Dialer, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid proxy URL %q: %w", raw, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		tr.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		d, err := proxy.FromURL(u, dialer)
		if err != nil {
			return fmt.Errorf("invalid proxy URL %q: %w", raw, err)
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return fmt.Errorf("%w: %s dialer does not support contexts", ErrUnsupportedProxy, u.Scheme)
		}
		tr.DialContext = cd.DialContext
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedProxy, u.Scheme)
	}
	return nil
}

// Headers are the request headers sent with every GraphQL request.
type Headers struct {
	UserAgent string
	Static    http.Header
}

// ParseHeaders parses "Key: Value" lines as given on the command line.
func ParseHeaders(lines []string) (http.Header, error) {
	h := make(http.Header, len(lines))
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q: expected 'Key: Value'", line)
		}
		h.Add(key, strings.TrimSpace(value))
	}
	return h, nil
}

func (h Headers) apply(req *http.Request) {
	for key, values := range h.Static {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	ua := h.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", ua)
	}
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// PostQuery POSTs {"query": query} to endpoint and reads the whole response body.
// Any returned error is a transport failure; HTTP error statuses are not errors.
func PostQuery(ctx context.Context, client *http.Client, endpoint, query string, h Headers) (*Response, error) {
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	h.apply(req)
	tracing.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
