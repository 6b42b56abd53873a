// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/internal/feed"
	"github.com/pdiddy/paper-digest/internal/store"
	"github.com/pdiddy/paper-digest/pkg/types"
)

type fakeFetcher struct {
	byCategory map[string][]types.PaperRecord
	fail       map[string]error
	calls      []string
}

func (f *fakeFetcher) FetchCategory(_ context.Context, cat string, _ int) ([]types.PaperRecord, error) {
	f.calls = append(f.calls, cat)
	if err := f.fail[cat]; err != nil {
		return nil, err
	}
	return f.byCategory[cat], nil
}

type rejectMatcher struct{ reject map[string]bool }

func (m rejectMatcher) Filter(_ context.Context, papers []types.PaperRecord) []types.PaperRecord {
	var out []types.PaperRecord
	for _, p := range papers {
		if !m.reject[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

type fakeTranslator struct{ seen int }

func (t *fakeTranslator) TranslateAll(_ context.Context, papers []types.PaperRecord) []types.PaperRecord {
	t.seen += len(papers)
	out := make([]types.PaperRecord, len(papers))
	for i, p := range papers {
		zh := "译 " + p.ID
		p.ZhAbstract = &zh
		out[i] = p
	}
	return out
}

type fakeNotifier struct {
	tag  string
	sent []types.PaperRecord
	err  error
}

func (n *fakeNotifier) Post(_ context.Context, tag string, papers []types.PaperRecord) error {
	n.tag = tag
	n.sent = papers
	return n.err
}

func rec(id, title string) types.PaperRecord {
	return types.PaperRecord{ID: id, Title: title, Abstract: "abstract " + id, URL: "http://arxiv.org/abs/" + id, Published: "2024-01-15"}
}

func baseConfig(t *testing.T) types.DigestConfig {
	t.Helper()
	cfg := types.DigestConfig{PaperFile: filepath.Join(t.TempDir(), "papers.json")}
	cfg.Tag = "daily"
	cfg.Categories = []string{"cs.CL", "cs.CR"}
	cfg.ApplyDefaults()
	return cfg
}

func ids(papers []types.PaperRecord) []string {
	out := make([]string, len(papers))
	for i, p := range papers {
		out[i] = p.ID
	}
	return out
}

func TestRunStages(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Keywords = []string{"jailbreak+LLM/大模型"}
	cfg.UseForFiltering = true
	cfg.UseForTranslation = true
	require.NoError(t, store.Prepend(cfg.PaperFile, []types.PaperRecord{rec("old", "jailbreak llm old")}))

	fetcher := &fakeFetcher{byCategory: map[string][]types.PaperRecord{
		"cs.CL": {rec("a", "Jailbreak LLM agents"), rec("b", "Translation quality"), rec("old", "jailbreak llm old")},
		"cs.CR": {rec("a", "Jailbreak LLM agents"), rec("c", "Jailbreak 大模型"), rec("d", "jailbreak llm rejected")},
	}}
	tr := &fakeTranslator{}
	n := &fakeNotifier{}
	r := &Runner{
		Config:     cfg,
		Fetcher:    fetcher,
		Matcher:    rejectMatcher{reject: map[string]bool{"d": true}},
		Translator: tr,
		Notifier:   n,
		Target:     "jailbreak attacks",
		Log:        zerolog.Nop(),
	}

	sum, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, 6, sum.Fetched)
	assert.Equal(t, 5, sum.Unique)
	assert.Equal(t, 4, sum.AfterKeywords)
	assert.Equal(t, 3, sum.AfterLLM)
	assert.Equal(t, 2, sum.New)
	assert.NoError(t, sum.DeliveryErr)

	assert.Equal(t, []string{"cs.CL", "cs.CR"}, fetcher.calls)
	assert.Equal(t, 2, tr.seen)
	assert.Equal(t, "daily", n.tag)
	assert.Equal(t, []string{"a", "c"}, ids(n.sent))
	require.NotNil(t, n.sent[0].ZhAbstract)

	stored, err := store.Load(cfg.PaperFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "old"}, ids(stored))
}

func TestRunSkipsDisabledStages(t *testing.T) {
	cfg := baseConfig(t)
	fetcher := &fakeFetcher{byCategory: map[string][]types.PaperRecord{
		"cs.CL": {rec("a", "anything"), rec("b", "else")},
	}}
	tr := &fakeTranslator{}
	r := &Runner{
		Config:     cfg,
		Fetcher:    fetcher,
		Matcher:    rejectMatcher{reject: map[string]bool{"a": true, "b": true}},
		Translator: tr,
		Target:     "ignored because filtering is off",
		Log:        zerolog.Nop(),
	}

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.AfterKeywords, "empty keyword list keeps everything")
	assert.Equal(t, 2, sum.AfterLLM)
	assert.Equal(t, 2, sum.New)
	assert.Zero(t, tr.seen)
}

func TestRunBlankTargetSkipsMatcher(t *testing.T) {
	cfg := baseConfig(t)
	cfg.UseForFiltering = true
	r := &Runner{
		Config:  cfg,
		Fetcher: &fakeFetcher{byCategory: map[string][]types.PaperRecord{"cs.CL": {rec("a", "x")}}},
		Matcher: rejectMatcher{reject: map[string]bool{"a": true}},
		Target:  "  \n",
		Log:     zerolog.Nop(),
	}

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.AfterLLM)
}

func TestRunContinuesPastCategoryFailure(t *testing.T) {
	cfg := baseConfig(t)
	fetcher := &fakeFetcher{
		byCategory: map[string][]types.PaperRecord{"cs.CR": {rec("c", "x")}},
		fail:       map[string]error{"cs.CL": errors.New("connection reset")},
	}
	r := &Runner{Config: cfg, Fetcher: fetcher, Log: zerolog.Nop()}

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sum.CategoryErrors, 1)
	assert.Contains(t, sum.CategoryErrors[0], "cs.CL")
	assert.Equal(t, 1, sum.New)
}

func TestRunPersistsBeforeFailedDelivery(t *testing.T) {
	cfg := baseConfig(t)
	n := &fakeNotifier{err: errors.New("webhook down")}
	r := &Runner{
		Config:   cfg,
		Fetcher:  &fakeFetcher{byCategory: map[string][]types.PaperRecord{"cs.CL": {rec("a", "x")}}},
		Notifier: n,
		Log:      zerolog.Nop(),
	}

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.EqualError(t, sum.DeliveryErr, "webhook down")

	stored, err := store.Load(cfg.PaperFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(stored))

	// The next run finds nothing new and does not resend.
	sum, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.New)
	assert.Empty(t, n.sent)
}

func TestRunMalformedStoreAborts(t *testing.T) {
	cfg := baseConfig(t)
	require.NoError(t, os.WriteFile(cfg.PaperFile, []byte("{not json"), 0o644))
	n := &fakeNotifier{}
	r := &Runner{
		Config:   cfg,
		Fetcher:  &fakeFetcher{byCategory: map[string][]types.PaperRecord{"cs.CL": {rec("a", "x")}}},
		Notifier: n,
		Log:      zerolog.Nop(),
	}

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, n.sent)
}

func TestRunRecordsDuration(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Categories = nil
	clock := time.Date(2024, 1, 15, 15, 40, 0, 0, time.UTC)
	r := &Runner{
		Config:  cfg,
		Fetcher: &fakeFetcher{},
		Log:     zerolog.Nop(),
		Now: func() time.Time {
			clock = clock.Add(2 * time.Second)
			return clock
		},
	}

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, sum.Duration)
}

const atomHeader = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/">
<opensearch:totalResults>3</opensearch:totalResults>`

func atomEntry(id string) string {
	return fmt.Sprintf(`<entry><id>http://arxiv.org/abs/%s</id><title>Paper %s</title>
<summary>Line one
line two</summary><published>2024-01-15T18:30:00Z</published></entry>`, id, id)
}

func TestRunEndToEndVersionedIDs(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") != "0" {
			fmt.Fprint(w, atomHeader+`</feed>`)
			return
		}
		fmt.Fprint(w, atomHeader+atomEntry("2401.0001v2")+atomEntry("2401.0002")+atomEntry("2401.0001v3")+`</feed>`)
	}))
	defer ts.Close()

	cfg := baseConfig(t)
	cfg.Categories = []string{"cs.CL"}
	client := &feed.Client{HTTP: ts.Client(), BaseURL: ts.URL, PageSize: 10, Log: zerolog.Nop()}
	n := &fakeNotifier{}
	r := &Runner{Config: cfg, Fetcher: client, Notifier: n, Log: zerolog.Nop()}

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Fetched)
	assert.Equal(t, 2, sum.Unique)

	require.Len(t, n.sent, 2)
	assert.Equal(t, []string{"2401.0001", "2401.0002"}, ids(n.sent))
	assert.Equal(t, "http://arxiv.org/abs/2401.0001v2", n.sent[0].URL, "first-seen version wins")
	assert.Equal(t, "Line one line two", n.sent[0].Abstract)
}
