// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package feed reads newly submitted papers from the arXiv Atom API.
//
// The API is paginated and occasionally returns malformed pages: total-result
// counts in odd shapes and entries missing required fields. FetchCategory
// first walks the pages strictly and, when the feed turns out to be malformed,
// restarts the category on a Stream that skips what it cannot parse and stops
// early instead of failing.
package feed

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// DefaultBaseURL is the arXiv query endpoint.
const DefaultBaseURL = "https://export.arxiv.org/api/query"

// maxPageBytes bounds a single feed page.
const maxPageBytes = 10 << 20

// ErrMalformedFeed marks failures caused by the shape of the feed rather
// than by the transport. FetchCategory falls back to the resilient stream
// on these.
var ErrMalformedFeed = errors.New("malformed feed")

// Client fetches feed pages. Requests are spaced by a token bucket because
// arXiv asks clients to wait several seconds between calls.
type Client struct {
	HTTP       *http.Client
	BaseURL    string
	PageSize   int
	MaxRetries int
	UserAgent  string
	Log        zerolog.Logger
	Metrics    *observability.Metrics

	limiter *rate.Limiter
}

// NewClient builds a client from the feed and HTTP configuration.
func NewClient(cfg types.FeedConfig, httpCfg types.HTTPConfig, log zerolog.Logger, m *observability.Metrics) *Client {
	interval := cfg.RequestInterval
	if interval <= 0 {
		interval = types.DefaultRequestInterval
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = types.DefaultPageSize
	}
	return &Client{
		HTTP:       &http.Client{Timeout: httpCfg.Timeout},
		BaseURL:    DefaultBaseURL,
		PageSize:   pageSize,
		MaxRetries: cfg.MaxRetries,
		UserAgent:  httpCfg.UserAgent,
		Log:        log,
		Metrics:    m,
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
	}
}

// CategoryQuery returns the search_query selecting one arXiv category.
func CategoryQuery(category string) string {
	return "cat:" + category
}

// Page is one decoded page of feed results.
type Page struct {
	Start   int
	Entries []RawEntry

	// RawTotal is the declared total-result count in whatever shape the feed
	// used; see CoerceTotal.
	RawTotal any
}

// Total coerces the page's declared total-result count.
func (p *Page) Total() (int, error) {
	return CoerceTotal(p.RawTotal)
}

// FetchPage requests size entries starting at start, newest submissions first.
func (c *Client) FetchPage(ctx context.Context, query string, start, size int) (*Page, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	params := url.Values{
		"search_query": {query},
		"start":        {strconv.Itoa(start)},
		"max_results":  {strconv.Itoa(size)},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
	}
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	started := time.Now()
	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, c.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("arXiv API returned HTTP %d: %s", resp.StatusCode, body)
	}

	var f atomFeed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxPageBytes)).Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: decoding arXiv page: %w", ErrMalformedFeed, err)
	}

	c.Log.Debug().
		Str("query", query).
		Int("start", start).
		Int("entries", len(f.Entries)).
		Dur("elapsed", time.Since(started)).
		Msg("fetched feed page")

	return &Page{
		Start:    start,
		Entries:  f.Entries,
		RawTotal: rawTotal(f.TotalResults),
	}, nil
}

func (c *Client) pageSize() int {
	if c.PageSize <= 0 {
		return types.DefaultPageSize
	}
	return c.PageSize
}
