// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package keyword filters papers with a small boolean keyword grammar.
//
// A keyword expression is split on "+" into segments that must all match.
// Each segment is a run of whitespace-separated tokens; a token may list
// alternatives separated by "/". The segment "LLM/大模型 安全" therefore
// denotes the phrases "llm 安全" and "大模型 安全". Matching is plain
// substring containment over the lowercased title and abstract.
package keyword

import "strings"

const (
	// AndDelimiter separates the conjunctive segments of an expression.
	AndDelimiter = "+"

	// OrDelimiter separates the alternatives of a token.
	OrDelimiter = "/"
)

// ExpandSegment returns the lowercase phrases a segment denotes, in
// generation order. An empty segment yields nil.
func ExpandSegment(segment string) []string {
	tokens := strings.Fields(segment)
	if len(tokens) == 0 {
		return nil
	}

	phrases := []string{""}
	for _, token := range tokens {
		options := alternatives(token)
		next := make([]string, 0, len(phrases)*len(options))
		for _, base := range phrases {
			for _, opt := range options {
				if base == "" {
					next = append(next, opt)
				} else {
					next = append(next, base+" "+opt)
				}
			}
		}
		phrases = next
	}

	out := phrases[:0]
	for _, p := range phrases {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// alternatives splits a token on "/" and lowercases the non-empty parts.
// A token made only of slashes falls back to its own lowercase text.
func alternatives(token string) []string {
	var opts []string
	for _, part := range strings.Split(token, OrDelimiter) {
		if part = strings.TrimSpace(part); part != "" {
			opts = append(opts, strings.ToLower(part))
		}
	}
	if len(opts) == 0 {
		opts = []string{strings.ToLower(token)}
	}
	return opts
}
