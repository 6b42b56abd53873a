// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/rs/zerolog"
)

// Stream is a lazy, finite, non-restartable sequence of entries for one
// query. Page failures end the stream quietly (after logging), so callers
// must not assume they received everything the feed holds.
type Stream struct {
	client *Client
	log    zerolog.Logger
	query  string
	label  string
	cap    int

	offset  int
	yielded int
	total   int
	known   bool

	buf      []RawEntry
	emitted  int
	fetched  bool
	finished bool
}

// Stream returns a resilient stream over query that stops after maxResults
// entries when maxResults > 0.
func (c *Client) Stream(query string, maxResults int) *Stream {
	label := strings.TrimPrefix(query, "cat:")
	return &Stream{
		client: c,
		log:    c.Log.With().Str("category", label).Logger(),
		query:  query,
		label:  label,
		cap:    maxResults,
	}
}

// Yielded returns the number of entries emitted so far.
func (s *Stream) Yielded() int { return s.yielded }

// Next returns the next parseable entry, or false once the stream is done.
func (s *Stream) Next(ctx context.Context) (Entry, bool) {
	for !s.finished {
		if len(s.buf) == 0 {
			if s.fetched {
				// A page with nothing usable would be re-requested at the
				// same offset forever.
				if s.emitted == 0 {
					s.log.Warn().Int("offset", s.offset).Msg("feed page had no parseable entries, stopping")
					s.finished = true
					break
				}
				if s.known && s.offset >= s.total {
					s.finished = true
					break
				}
			}
			if !s.nextPage(ctx) {
				s.finished = true
				break
			}
			continue
		}

		raw := s.buf[0]
		s.buf = s.buf[1:]

		entry, err := raw.Parse()
		if err != nil {
			var missing *MissingFieldError
			if errors.As(err, &missing) {
				s.log.Warn().Err(err).Msg("skipping partial feed entry")
				s.client.Metrics.Skipped(s.label)
				continue
			}
			s.log.Warn().Err(err).Msg("skipping unparseable feed entry")
			continue
		}

		s.yielded++
		s.offset++
		s.emitted++
		if s.cap > 0 && s.yielded >= s.cap {
			s.finished = true
		}
		return entry, true
	}
	return Entry{}, false
}

// nextPage loads the page at the current offset. It reports false when the
// stream should end.
func (s *Stream) nextPage(ctx context.Context) bool {
	page, err := s.client.FetchPage(ctx, s.query, s.offset, s.client.pageSize())
	if err != nil {
		s.log.Warn().Err(err).Int("offset", s.offset).Msg("feed request failed, ending stream")
		s.client.Metrics.PageFailed(s.label)
		return false
	}
	if len(page.Entries) == 0 {
		return false
	}

	if !s.known {
		if total, err := page.Total(); err != nil {
			s.log.Warn().Err(err).Msg("could not parse feed total results")
		} else {
			s.total, s.known = total, true
		}
	}

	s.buf = page.Entries
	s.emitted = 0
	s.fetched = true
	return true
}

// All adapts the stream to a range-over-func sequence.
func (s *Stream) All(ctx context.Context) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for {
			e, ok := s.Next(ctx)
			if !ok || !yield(e) {
				return
			}
		}
	}
}
