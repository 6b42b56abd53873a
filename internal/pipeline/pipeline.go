// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one digest: fetch every category, narrow the papers
// down, persist the new ones and send them to the webhook.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-digest/internal/dedup"
	"github.com/pdiddy/paper-digest/internal/keyword"
	"github.com/pdiddy/paper-digest/internal/observability"
	"github.com/pdiddy/paper-digest/internal/store"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Fetcher returns the latest papers of one category.
type Fetcher interface {
	FetchCategory(ctx context.Context, category string, maxResults int) ([]types.PaperRecord, error)
}

// Matcher keeps the papers that fit the hunt description.
type Matcher interface {
	Filter(ctx context.Context, papers []types.PaperRecord) []types.PaperRecord
}

// Translator attaches Chinese abstracts.
type Translator interface {
	TranslateAll(ctx context.Context, papers []types.PaperRecord) []types.PaperRecord
}

// Notifier delivers the new papers.
type Notifier interface {
	Post(ctx context.Context, tag string, papers []types.PaperRecord) error
}

// Stage names used in logs and the stage_papers metric.
const (
	StageFetched = "fetched"
	StageUnique  = "unique"
	StageKeyword = "keyword"
	StageLLM     = "llm"
	StageNew     = "new"
	StagePersist = "persisted"
)

// Runner holds the collaborators of a run. Matcher, Translator and Notifier
// may be nil; the matching stage is skipped when disabled in Config.
type Runner struct {
	Config     types.DigestConfig
	Fetcher    Fetcher
	Matcher    Matcher
	Translator Translator
	Notifier   Notifier

	// Target is the hunt description; blank disables the LLM match stage.
	Target string

	Log     zerolog.Logger
	Metrics *observability.Metrics
	Now     func() time.Time
}

// Summary describes a completed run.
type Summary struct {
	RunID          string
	Fetched        int
	Unique         int
	AfterKeywords  int
	AfterLLM       int
	New            int
	CategoryErrors []string
	DeliveryErr    error
	Duration       time.Duration
}

// Run executes one digest. Category fetch failures and delivery failures are
// recorded in the Summary; only store errors abort the run.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	started := now()

	sum := Summary{RunID: uuid.NewString()}
	log := observability.WithRun(r.Log, sum.RunID, r.Config.Tag)
	ctx = log.WithContext(ctx)
	log.Info().Str("date", started.Format(types.DateLayout)).Strs("categories", r.Config.Categories).Msg("digest run started")

	var papers []types.PaperRecord
	for _, cat := range r.Config.Categories {
		got, err := r.Fetcher.FetchCategory(ctx, cat, r.Config.MaxResultsPerCategory)
		if err != nil {
			log.Error().Err(err).Str("category", cat).Msg("category fetch failed, continuing")
			sum.CategoryErrors = append(sum.CategoryErrors, fmt.Sprintf("%s: %v", cat, err))
			continue
		}
		log.Info().Str("category", cat).Int("papers", len(got)).Msg("category fetched")
		papers = append(papers, got...)
	}
	sum.Fetched = len(papers)
	r.stage(log, StageFetched, sum.Fetched)

	papers = dedup.InBatch(papers)
	sum.Unique = len(papers)
	r.stage(log, StageUnique, sum.Unique)

	if len(r.Config.Keywords) > 0 {
		papers = keyword.Filter(papers, r.Config.Keywords)
	}
	sum.AfterKeywords = len(papers)
	r.stage(log, StageKeyword, sum.AfterKeywords)

	if r.Config.UseForFiltering && r.Matcher != nil && strings.TrimSpace(r.Target) != "" {
		papers = r.Matcher.Filter(ctx, papers)
	}
	sum.AfterLLM = len(papers)
	r.stage(log, StageLLM, sum.AfterLLM)

	papers, err := dedup.AgainstStore(papers, r.Config.PaperFile)
	if err != nil {
		return sum, fmt.Errorf("deduplicating against %s: %w", r.Config.PaperFile, err)
	}
	sum.New = len(papers)
	r.stage(log, StageNew, sum.New)

	if r.Config.UseForTranslation && r.Translator != nil && len(papers) > 0 {
		papers = r.Translator.TranslateAll(ctx, papers)
		log.Info().Int("papers", len(papers)).Msg("abstracts translated")
	}

	// Persist before delivery so a failed webhook never causes a resend.
	if err := store.Prepend(r.Config.PaperFile, papers); err != nil {
		return sum, fmt.Errorf("persisting papers: %w", err)
	}
	r.stage(log, StagePersist, len(papers))

	if r.Notifier != nil {
		if err := r.Notifier.Post(ctx, r.Config.Tag, papers); err != nil {
			log.Error().Err(err).Msg("notification failed")
			sum.DeliveryErr = err
		}
	}

	finished := now()
	sum.Duration = finished.Sub(started)
	r.Metrics.RunFinished(sum.Duration, finished)
	log.Info().
		Int("fetched", sum.Fetched).
		Int("new", sum.New).
		Int("category_errors", len(sum.CategoryErrors)).
		Bool("delivered", sum.DeliveryErr == nil).
		Dur("duration", sum.Duration).
		Msg("digest run finished")
	return sum, nil
}

func (r *Runner) stage(log zerolog.Logger, stage string, n int) {
	r.Metrics.Stage(stage, n)
	log.Info().Str("stage", stage).Int("papers", n).Msg("stage complete")
}

// ReadTarget returns the hunt description at path. A missing file is an
// error because the LLM match stage was explicitly enabled.
func ReadTarget(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading hunt description: %w", err)
	}
	return string(data), nil
}
