// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Matcher asks the model whether a paper fits the hunt description. It
// fails open: when the model cannot answer, the paper is kept.
type Matcher struct {
	LLM     Completer
	Target  string
	Log     zerolog.Logger
	Metrics *observability.Metrics
}

// Match reports whether p fits the target description.
func (m *Matcher) Match(ctx context.Context, p types.PaperRecord) bool {
	prompt, err := render(matchPromptTmpl, struct{ Title, Abstract, Target string }{p.Title, p.Abstract, m.Target})
	if err != nil {
		m.Log.Error().Err(err).Str("paper", p.ID).Msg("rendering match prompt, assuming match")
		return true
	}

	answer, err := m.LLM.Complete(ctx, prompt)
	if err != nil || answer == "" {
		m.Log.Warn().Err(err).Str("paper", p.ID).Str("title", p.Title).Msg("LLM unavailable, assuming match")
		m.Metrics.CollaboratorFailed("match")
		return true
	}

	answer = StripThinking(answer)
	m.Log.Debug().Str("paper", p.ID).Str("answer", answer).Msg("LLM match answer")
	return strings.Contains(strings.ToLower(answer), "yes")
}

// Filter keeps the papers Match accepts, in order.
func (m *Matcher) Filter(ctx context.Context, papers []types.PaperRecord) []types.PaperRecord {
	var kept []types.PaperRecord
	for _, p := range papers {
		if m.Match(ctx, p) {
			kept = append(kept, p)
		}
	}
	return kept
}
