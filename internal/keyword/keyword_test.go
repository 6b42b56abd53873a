// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// --- ExpandSegment ---

func TestExpandSegment(t *testing.T) {
	tests := []struct {
		name    string
		segment string
		want    []string
	}{
		{"empty", "", nil},
		{"whitespace only", "   \t ", nil},
		{"single token lowercased", "Jailbreak", []string{"jailbreak"}},
		{"alternatives cross product", "LLM/大模型 安全", []string{"llm 安全", "大模型 安全"}},
		{"two alternative tokens", "large/small language model/models", []string{
			"large language model", "large language models",
			"small language model", "small language models",
		}},
		{"empty alternatives dropped", "a//b", []string{"a", "b"}},
		{"slash-only token keeps its text", "/ attack", []string{"/ attack"}},
		{"extra whitespace collapsed", "  prompt   injection ", []string{"prompt injection"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandSegment(tt.segment))
		})
	}
}

func TestExpandSegmentDeterministic(t *testing.T) {
	first := ExpandSegment("a/b c/d e")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ExpandSegment("a/b c/d e"))
	}
	assert.Equal(t, []string{"a c e", "a d e", "b c e", "b d e"}, first)
}

// --- Parse ---

func TestParse(t *testing.T) {
	exprs := Parse([]string{"jailbreak+LLM/大模型", "", "backdoor", "+", " + safety"})
	require.Len(t, exprs, 4)

	assert.Equal(t, [][]string{{"jailbreak"}, {"llm", "大模型"}}, exprs[0].Groups)
	assert.Equal(t, [][]string{{"backdoor"}}, exprs[1].Groups)
	// "+" has no non-empty segment and falls back to expanding the raw string.
	assert.Equal(t, [][]string{{"+"}}, exprs[2].Groups)
	assert.Equal(t, [][]string{{"safety"}}, exprs[3].Groups)
}

func TestParseDropsBlankExpressions(t *testing.T) {
	assert.Empty(t, Parse([]string{"", "   "}))
}

// --- Filter ---

func paper(id, title, abstract string) types.PaperRecord {
	return types.PaperRecord{ID: id, Title: title, Abstract: abstract}
}

func TestFilterAndAcrossSegmentsOrWithinSegment(t *testing.T) {
	papers := []types.PaperRecord{
		paper("1", "Jailbreak attacks on LLM agents", "We study prompts."),
		paper("2", "大模型越狱", "A jailbreak benchmark for 大模型."),
		paper("3", "Jailbreak detection", "Classic software jailbreak on phones."),
		paper("4", "Unrelated", "Nothing to see."),
	}

	got := Filter(papers, []string{"jailbreak+LLM/大模型"})
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2", got[1].ID)
}

func TestFilterOrAcrossExpressions(t *testing.T) {
	papers := []types.PaperRecord{
		paper("1", "Backdoor triggers", ""),
		paper("2", "", "Hallucination in summarization"),
		paper("3", "Other", "Other"),
	}
	got := Filter(papers, []string{"backdoor", "hallucination"})
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2", got[1].ID)
}

func TestFilterIsSubstringMatch(t *testing.T) {
	papers := []types.PaperRecord{paper("1", "Adversarially robust training", "")}
	assert.Len(t, Filter(papers, []string{"adversarial"}), 1)
}

func TestFilterTitleAndAbstractJoinedWithSpace(t *testing.T) {
	// The phrase spans the title/abstract boundary.
	papers := []types.PaperRecord{paper("1", "Prompt", "Injection defenses")}
	assert.Len(t, Filter(papers, []string{"prompt injection"}), 1)
}

func TestFilterEmptyKeywordListIsIdentity(t *testing.T) {
	papers := []types.PaperRecord{paper("1", "a", "b"), paper("2", "c", "d")}
	assert.Equal(t, papers, Filter(papers, nil))
	assert.Equal(t, papers, Filter(papers, []string{}))
}
