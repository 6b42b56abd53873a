// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// arXiv Atom feed XML structures. Element names match on local name, so
// the opensearch: and arxiv: namespaces need no special handling.
type atomFeed struct {
	TotalResults []totalElement `xml:"totalResults"`
	StartIndex   string         `xml:"startIndex"`
	Entries      []RawEntry     `xml:"entry"`
}

// totalElement captures one opensearch:totalResults element verbatim so that
// its shape, not just its text, reaches the coercion step.
type totalElement struct {
	Text  string     `xml:",chardata"`
	Attrs []xml.Attr `xml:",any,attr"`
}

// RawEntry is an undecoded Atom entry. Pointer fields distinguish an absent
// element from an empty one.
type RawEntry struct {
	ID        *string    `xml:"id"`
	Title     *string    `xml:"title"`
	Summary   *string    `xml:"summary"`
	Published *string    `xml:"published"`
	Updated   *string    `xml:"updated"`
	Links     []atomLink `xml:"link"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

// Entry is a parsed feed entry with every required field present.
type Entry struct {
	// EntryID is the canonical abs URL, e.g. "http://arxiv.org/abs/2401.00001v2".
	EntryID   string
	Title     string
	Summary   string
	Published time.Time
	Updated   time.Time
	PDFURL    string
}

// MissingFieldError reports an entry that lacks a required field. It is
// recoverable: the entry is skipped and the page continues.
type MissingFieldError struct {
	Field   string
	EntryID string
}

func (e *MissingFieldError) Error() string {
	if e.EntryID == "" {
		return fmt.Sprintf("entry missing required field %q", e.Field)
	}
	return fmt.Sprintf("entry %s missing required field %q", e.EntryID, e.Field)
}

const absMarker = "/abs/"

// Parse validates a raw entry. Entries without an abs-style id (arXiv reports
// query errors as such entries), a title, a summary or a parseable published
// timestamp yield a *MissingFieldError.
func (r RawEntry) Parse() (Entry, error) {
	id := trimmed(r.ID)
	if id == "" || !strings.Contains(id, absMarker) {
		return Entry{}, &MissingFieldError{Field: "id", EntryID: id}
	}
	if r.Title == nil {
		return Entry{}, &MissingFieldError{Field: "title", EntryID: id}
	}
	if r.Summary == nil {
		return Entry{}, &MissingFieldError{Field: "summary", EntryID: id}
	}
	published, err := time.Parse(time.RFC3339, trimmed(r.Published))
	if err != nil {
		return Entry{}, &MissingFieldError{Field: "published", EntryID: id}
	}

	e := Entry{
		EntryID:   id,
		Title:     strings.TrimSpace(*r.Title),
		Summary:   strings.TrimSpace(*r.Summary),
		Published: published,
	}
	if updated, err := time.Parse(time.RFC3339, trimmed(r.Updated)); err == nil {
		e.Updated = updated
	}
	for _, l := range r.Links {
		if l.Type == "application/pdf" || (l.Rel == "related" && strings.Contains(l.Href, "/pdf/")) {
			e.PDFURL = l.Href
			break
		}
	}
	return e, nil
}

// ShortID returns the part of the entry id after "/abs/", version included.
func (e Entry) ShortID() string {
	idx := strings.LastIndex(e.EntryID, absMarker)
	if idx < 0 {
		return e.EntryID
	}
	return e.EntryID[idx+len(absMarker):]
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// rawTotal maps the decoded totalResults elements onto the shapes accepted by
// CoerceTotal: none → nil, one bare element → its text, one element with
// attributes → a mapping carrying the text under "#text", several elements
// → a sequence of the above.
func rawTotal(elems []totalElement) any {
	switch len(elems) {
	case 0:
		return nil
	case 1:
		return elems[0].value()
	default:
		items := make([]any, len(elems))
		for i, el := range elems {
			items[i] = el.value()
		}
		return items
	}
}

func (t totalElement) value() any {
	var attrs map[string]any
	for _, a := range t.Attrs {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		if attrs == nil {
			attrs = map[string]any{}
		}
		attrs[a.Name.Local] = a.Value
	}
	if attrs == nil {
		return t.Text
	}
	attrs["#text"] = t.Text
	return attrs
}
