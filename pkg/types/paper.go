// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-digest pipeline.
package types

import "strings"

// DateLayout is the calendar-date layout used for PaperRecord.Published.
const DateLayout = "2006-01-02"

// PaperRecord is the canonical unit that flows through the pipeline and is
// persisted in the paper store.
type PaperRecord struct {
	// ID is the arXiv identifier without its version suffix (e.g. "2401.00001").
	ID string `json:"id" yaml:"id"`

	// Title is the paper title collapsed onto one line.
	Title string `json:"title" yaml:"title"`

	// Abstract is the original-language abstract collapsed onto one line.
	Abstract string `json:"abstract" yaml:"abstract"`

	// ZhAbstract is the translated abstract. Nil until translation succeeds.
	ZhAbstract *string `json:"zh_abstract,omitempty" yaml:"zh_abstract,omitempty"`

	// URL is the canonical permalink (the Atom entry id).
	URL string `json:"url" yaml:"url"`

	// Published is the submission date in YYYY-MM-DD form.
	Published string `json:"published" yaml:"published"`
}

// SearchableText returns the lowercase title and abstract used for keyword matching.
func (p PaperRecord) SearchableText() string {
	return strings.ToLower(p.Title + " " + p.Abstract)
}
