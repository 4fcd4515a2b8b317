package introspection

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getmockd/gqlprobe/pkg/logging"
	"github.com/getmockd/gqlprobe/pkg/schema"
	"github.com/getmockd/gqlprobe/pkg/transport"
)

// Client fetches schemas over HTTP.
type Client struct {
	httpClient *http.Client
	headers    transport.Headers
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHeaders sets the headers sent with the introspection request.
func WithHeaders(h transport.Headers) Option {
	return func(c *Client) { c.headers = h }
}

// WithLogger sets the client's logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient returns a Client using httpClient, or http.DefaultClient when nil.
func NewClient(httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{httpClient: httpClient, log: logging.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch sends the introspection query to endpoint and decodes the schema.
func (c *Client) Fetch(ctx context.Context, endpoint string) (*schema.Schema, error) {
	resp, err := transport.PostQuery(ctx, c.httpClient, endpoint, Query, c.headers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaFetch, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrSchemaFetch, resp.StatusCode)
	}

	s, err := Decode(resp.Body)
	if err != nil {
		return nil, err
	}

	c.log.Debug("schema fetched",
		"endpoint", endpoint,
		"types", s.Len(),
		"duplicates", s.Duplicates(),
		"hasMutation", s.MutationType() != "",
	)
	return s, nil
}
