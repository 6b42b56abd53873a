// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// FetchCategory returns up to maxResults normalized papers for one category,
// most recent submissions first.
//
// The strict pass is tried first. If it reports ErrMalformedFeed, whatever it
// collected is discarded and the category is read again through a Stream.
// Other strict-pass failures are returned.
func (c *Client) FetchCategory(ctx context.Context, category string, maxResults int) ([]types.PaperRecord, error) {
	query := CategoryQuery(category)

	papers, err := c.fetchStrict(ctx, category, query, maxResults)
	switch {
	case err == nil:
	case errors.Is(err, ErrMalformedFeed):
		c.Log.Warn().Err(err).Str("category", category).Msg("feed parse error, retrying with resilient stream")
		c.Metrics.FellBack(category)
		papers = c.fetchResilient(ctx, query, maxResults)
	default:
		return nil, fmt.Errorf("fetching category %s: %w", category, err)
	}

	c.Metrics.Fetched(category, len(papers))
	return papers, nil
}

// fetchStrict pages through the feed trusting its declared total. Partial
// entries are skipped; an undecodable page or a total that is not a plain
// integer fails with ErrMalformedFeed.
func (c *Client) fetchStrict(ctx context.Context, category, query string, maxResults int) ([]types.PaperRecord, error) {
	var papers []types.PaperRecord
	offset, total := 0, -1

	for {
		page, err := c.FetchPage(ctx, query, offset, c.pageSize())
		if err != nil {
			return nil, err
		}
		if len(page.Entries) == 0 {
			return papers, nil
		}
		if total < 0 {
			if total, err = strictTotal(page.RawTotal); err != nil {
				return nil, err
			}
		}

		for _, raw := range page.Entries {
			entry, err := raw.Parse()
			if err != nil {
				c.Log.Warn().Err(err).Str("category", category).Msg("skipping partial feed entry")
				c.Metrics.Skipped(category)
				continue
			}
			papers = append(papers, Normalize(entry))
			if maxResults > 0 && len(papers) >= maxResults {
				return papers, nil
			}
		}

		offset += len(page.Entries)
		if offset >= total {
			return papers, nil
		}
	}
}

// fetchResilient drains a Stream; it never fails.
func (c *Client) fetchResilient(ctx context.Context, query string, maxResults int) []types.PaperRecord {
	var papers []types.PaperRecord
	for entry := range c.Stream(query, maxResults).All(ctx) {
		papers = append(papers, Normalize(entry))
	}
	return papers
}

var versionSuffix = regexp.MustCompile(`v\d+$`)

// NormalizeID strips a trailing version token ("2401.00001v2" → "2401.00001").
func NormalizeID(shortID string) string {
	return versionSuffix.ReplaceAllString(shortID, "")
}

// Normalize converts an entry into a PaperRecord.
func Normalize(e Entry) types.PaperRecord {
	return types.PaperRecord{
		ID:        NormalizeID(e.ShortID()),
		Title:     strings.Join(strings.Fields(e.Title), " "),
		Abstract:  collapseNewlines(e.Summary),
		URL:       e.EntryID,
		Published: e.Published.UTC().Format(types.DateLayout),
	}
}

func collapseNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", " ")
}
