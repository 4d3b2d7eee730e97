// Package twitch provides a client for the Helix clip catalog: broadcaster
// search and paged clip listing with opaque cursors.
//
// The client performs no automatic retries. Failures are classified into
// the package's sentinel errors and surfaced to the caller, which owns all
// retry and credential-refresh policy.
package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production Helix API root.
	DefaultBaseURL = "https://api.twitch.tv/helix"

	// maxPageSize is the catalog's per-call cap on clip results. The
	// client always requests the maximum; the limit is remote-imposed.
	maxPageSize = 100
)

// Config holds catalog client configuration.
type Config struct {
	// BaseURL is the Helix API root (empty uses production).
	BaseURL string

	// ClientID is sent as the application identifier header.
	ClientID string

	// Timeout for individual catalog requests.
	Timeout time.Duration

	// Transport connection pool settings.
	Transport TransportConfig
}

// TransportConfig configures the HTTP transport (connection pooling).
type TransportConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	ForceAttemptHTTP2   bool
}

// DefaultConfig returns sensible defaults for the catalog client.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: 15 * time.Second,
		Transport: TransportConfig{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}
}

// Client issues catalog queries against the Helix API.
type Client struct {
	base     *http.Client
	baseURL  string
	clientID string
	creds    CredentialSource
}

// NewClient creates a catalog client using the given credential source.
func NewClient(cfg Config, creds CredentialSource) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client id required")
	}
	if creds == nil {
		return nil, fmt.Errorf("credential source required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.Transport.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Transport.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.Transport.IdleConnTimeout,
		ForceAttemptHTTP2:   cfg.Transport.ForceAttemptHTTP2,
	}

	return &Client{
		base:     &http.Client{Timeout: cfg.Timeout, Transport: transport},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		clientID: cfg.ClientID,
		creds:    creds,
	}, nil
}

// ResolveBroadcaster resolves a free-text query to the best-matching
// broadcaster. Returns ErrNotFound when the search has no match and
// ErrInvalidRequest when the query is empty after trimming.
func (c *Client) ResolveBroadcaster(ctx context.Context, query string) (Broadcaster, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Broadcaster{}, fmt.Errorf("%w: empty query", ErrInvalidRequest)
	}

	q := url.Values{
		"query": {query},
		"first": {"1"},
	}

	var sr channelSearchResponse
	if err := c.get(ctx, "/search/channels", q, &sr); err != nil {
		return Broadcaster{}, err
	}

	if len(sr.Data) == 0 {
		return Broadcaster{}, fmt.Errorf("%w: %q", ErrNotFound, query)
	}

	match := sr.Data[0]
	return Broadcaster{ID: match.ID, Login: match.Login, DisplayName: match.DisplayName}, nil
}

// FetchClips fetches one page of clips for a broadcaster. The page size is
// always the catalog maximum; the returned cursor is empty when no further
// pages exist for this broadcaster and window.
func (c *Client) FetchClips(ctx context.Context, params ClipsParams) (ClipsPage, error) {
	if params.BroadcasterID == "" {
		return ClipsPage{}, fmt.Errorf("%w: missing broadcaster id", ErrInvalidRequest)
	}

	q := url.Values{
		"broadcaster_id": {params.BroadcasterID},
		"first":          {strconv.Itoa(maxPageSize)},
	}
	if !params.StartedAt.IsZero() {
		q.Set("started_at", params.StartedAt.UTC().Format(time.RFC3339))
	}
	if !params.EndedAt.IsZero() {
		q.Set("ended_at", params.EndedAt.UTC().Format(time.RFC3339))
	}
	if params.After != "" {
		q.Set("after", params.After)
	}

	var cr clipsResponse
	if err := c.get(ctx, "/clips", q, &cr); err != nil {
		return ClipsPage{}, err
	}

	return ClipsPage{Clips: cr.Data, Cursor: cr.Pagination.Cursor}, nil
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrInvalidRequest, err)
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.base.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb apiErrorBody
		_ = json.Unmarshal(body, &eb)
		return &APIError{StatusCode: resp.StatusCode, Message: eb.Message, Err: classifyStatus(resp.StatusCode)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: parse response: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.base.CloseIdleConnections()
	return nil
}
