// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package keyword

import (
	"strings"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Expression is a parsed keyword expression: every group must contribute
// at least one phrase found in the text.
type Expression struct {
	Raw    string
	Groups [][]string
}

// Matches reports whether text (already lowercased) satisfies the expression.
func (e Expression) Matches(text string) bool {
	for _, group := range e.Groups {
		if !containsAny(text, group) {
			return false
		}
	}
	return len(e.Groups) > 0
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Parse converts raw keyword strings into expressions. Empty strings and
// expressions that expand to nothing are dropped.
func Parse(raw []string) []Expression {
	var exprs []Expression
	for _, kw := range raw {
		if kw == "" {
			continue
		}

		var segments []string
		for _, seg := range strings.Split(kw, AndDelimiter) {
			if seg = strings.TrimSpace(seg); seg != "" {
				segments = append(segments, seg)
			}
		}
		if len(segments) == 0 {
			segments = []string{kw}
		}

		var groups [][]string
		for _, seg := range segments {
			if variants := ExpandSegment(seg); len(variants) > 0 {
				groups = append(groups, variants)
			}
		}
		if len(groups) > 0 {
			exprs = append(exprs, Expression{Raw: kw, Groups: groups})
		}
	}
	return exprs
}

// Filter returns the papers that match at least one keyword expression,
// preserving input order. An empty keyword list returns papers unchanged.
func Filter(papers []types.PaperRecord, keywords []string) []types.PaperRecord {
	if len(keywords) == 0 {
		return papers
	}
	exprs := Parse(keywords)

	var kept []types.PaperRecord
	for _, p := range papers {
		if MatchAny(p.SearchableText(), exprs) {
			kept = append(kept, p)
		}
	}
	return kept
}

// MatchAny reports whether text satisfies any of the expressions.
func MatchAny(text string, exprs []Expression) bool {
	for _, e := range exprs {
		if e.Matches(text) {
			return true
		}
	}
	return false
}
