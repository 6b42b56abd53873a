// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/internal/store"
	"github.com/pdiddy/paper-digest/pkg/types"
)

func ids(papers []types.PaperRecord) []string {
	out := make([]string, 0, len(papers))
	for _, p := range papers {
		out = append(out, p.ID)
	}
	return out
}

func TestInBatchFirstOccurrenceWins(t *testing.T) {
	papers := []types.PaperRecord{
		{ID: "A", Title: "first A"},
		{ID: "B"},
		{ID: "A", Title: "second A"},
		{ID: "C"},
		{ID: "B"},
	}

	got := InBatch(papers)
	assert.Equal(t, []string{"A", "B", "C"}, ids(got))
	assert.Equal(t, "first A", got[0].Title)
}

func TestInBatchEmpty(t *testing.T) {
	assert.Empty(t, InBatch(nil))
}

func TestAgainstStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papers.json")
	require.NoError(t, store.Prepend(path, []types.PaperRecord{{ID: "A"}, {ID: "B"}}))

	got, err := AgainstStore([]types.PaperRecord{{ID: "A"}, {ID: "C"}}, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, ids(got))
}

func TestAgainstStoreMissingOrEmpty(t *testing.T) {
	dir := t.TempDir()
	candidates := []types.PaperRecord{{ID: "A"}, {ID: "C"}}

	got, err := AgainstStore(candidates, filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, candidates, got)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	got, err = AgainstStore(candidates, empty)
	require.NoError(t, err)
	assert.Equal(t, candidates, got)
}

func TestAgainstStoreMalformedIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papers.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := AgainstStore([]types.PaperRecord{{ID: "A"}}, path)
	assert.Error(t, err)
}
