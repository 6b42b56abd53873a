// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Translator produces Chinese abstracts. A failed translation is nil, never
// an error.
type Translator struct {
	LLM     Completer
	Log     zerolog.Logger
	Metrics *observability.Metrics
}

// Translate returns the translated abstract or nil.
func (t *Translator) Translate(ctx context.Context, abstract string) *string {
	prompt, err := render(translatePromptTmpl, struct{ Abstract string }{abstract})
	if err != nil {
		t.Log.Error().Err(err).Msg("rendering translation prompt")
		return nil
	}

	answer, err := t.LLM.Complete(ctx, prompt)
	if err != nil || answer == "" {
		t.Log.Warn().Err(err).Msg("translation failed")
		t.Metrics.CollaboratorFailed("translate")
		return nil
	}

	out := StripThinking(answer)
	if out == "" {
		return nil
	}
	return &out
}

// TranslateAll returns a copy of papers with ZhAbstract set where translation
// succeeded and cleared where it did not.
func (t *Translator) TranslateAll(ctx context.Context, papers []types.PaperRecord) []types.PaperRecord {
	out := make([]types.PaperRecord, len(papers))
	for i, p := range papers {
		p.ZhAbstract = t.Translate(ctx, p.Abstract)
		if p.ZhAbstract == nil {
			t.Log.Warn().Str("paper", p.ID).Msg("keeping paper without translated abstract")
		}
		out[i] = p
		t.Log.Debug().Int("done", i+1).Int("total", len(papers)).Msg("translated abstract")
	}
	return out
}
