// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// --- test helpers ---

func openIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "index", "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func paper(id, title, published string) types.PaperRecord {
	return types.PaperRecord{
		ID:        id,
		Title:     title,
		Abstract:  "Abstract for " + title,
		URL:       "http://arxiv.org/abs/" + id,
		Published: published,
	}
}

// storeOrder is newest first and contains one historical duplicate (A).
func storeOrder() []types.PaperRecord {
	zh := "越狱攻击研究"
	c := paper("C", "Jailbreak prompts for LLMs", "2024-01-20")
	c.ZhAbstract = &zh
	return []types.PaperRecord{
		c,
		paper("A", "Backdoor attacks revisited", "2024-01-19"),
		paper("B", "Speech translation", "2024-01-18"),
		paper("A", "Backdoor attacks", "2024-01-10"),
	}
}

func synced(t *testing.T) *Index {
	t.Helper()
	idx := openIndex(t)
	if err := idx.Sync(context.Background(), storeOrder()); err != nil {
		t.Fatal(err)
	}
	return idx
}

func ids(records []types.PaperRecord) string {
	parts := make([]string, len(records))
	for i, r := range records {
		parts[i] = r.ID
	}
	return strings.Join(parts, ",")
}

// --- tests ---

func TestSyncReplacesContents(t *testing.T) {
	idx := synced(t)
	ctx := context.Background()

	rows, unique, err := idx.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rows != 4 || unique != 3 {
		t.Errorf("Count = %d rows, %d unique; want 4, 3", rows, unique)
	}

	if err := idx.Sync(ctx, storeOrder()[:1]); err != nil {
		t.Fatal(err)
	}
	rows, unique, _ = idx.Count(ctx)
	if rows != 1 || unique != 1 {
		t.Errorf("after resync Count = %d, %d; want 1, 1", rows, unique)
	}
}

func TestSearch(t *testing.T) {
	idx := synced(t)
	ctx := context.Background()

	tests := []struct {
		query string
		want  string
	}{
		{"", "C,A,B"},
		{"backdoor", "A"},
		{"BACKDOOR Attacks", "A"},
		{"jailbreak llms", "C"},
		{"越狱", "C"},
		{"translation backdoor", ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := idx.Search(ctx, tt.query, 0)
			if err != nil {
				t.Fatal(err)
			}
			if ids(got) != tt.want {
				t.Errorf("Search(%q) = %q, want %q", tt.query, ids(got), tt.want)
			}
		})
	}
}

func TestSearchReturnsMostRecentCopy(t *testing.T) {
	idx := synced(t)
	got, err := idx.Search(context.Background(), "backdoor", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "Backdoor attacks revisited" {
		t.Errorf("got %+v, want the newest A", got)
	}
}

func TestSearchLimit(t *testing.T) {
	idx := synced(t)
	got, err := idx.Search(context.Background(), "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if ids(got) != "C,A" {
		t.Errorf("got %q, want C,A", ids(got))
	}
}

func TestDuplicates(t *testing.T) {
	idx := synced(t)
	dups, err := idx.Duplicates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(dups) != 1 {
		t.Fatalf("got %d duplicates, want 1", len(dups))
	}
	if dups[0].ID != "A" || dups[0].Count != 2 || !slices.Equal(dups[0].Positions, []int{1, 3}) {
		t.Errorf("got %+v", dups[0])
	}
}

func TestDuplicatesPositionsAscending(t *testing.T) {
	idx := openIndex(t)
	records := []types.PaperRecord{
		paper("X", "x", "2024-01-20"),
		paper("Y", "y", "2024-01-19"),
		paper("X", "x", "2024-01-18"),
		paper("Y", "y", "2024-01-17"),
		paper("X", "x", "2024-01-16"),
	}
	if err := idx.Sync(context.Background(), records); err != nil {
		t.Fatal(err)
	}

	dups, err := idx.Duplicates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(dups) != 2 {
		t.Fatalf("got %d duplicates, want 2", len(dups))
	}
	if dups[0].ID != "X" || !slices.Equal(dups[0].Positions, []int{0, 2, 4}) {
		t.Errorf("first duplicate = %+v, want X at 0,2,4", dups[0])
	}
	if dups[1].ID != "Y" || !slices.Equal(dups[1].Positions, []int{1, 3}) {
		t.Errorf("second duplicate = %+v, want Y at 1,3", dups[1])
	}
}

func TestExportJSON(t *testing.T) {
	idx := synced(t)
	var buf bytes.Buffer
	if err := idx.ExportJSON(context.Background(), &buf, ExportFilter{From: "2024-01-19"}); err != nil {
		t.Fatal(err)
	}

	var got []types.PaperRecord
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if ids(got) != "C,A" {
		t.Errorf("exported %q, want C,A", ids(got))
	}
	if got[0].ZhAbstract == nil || *got[0].ZhAbstract != "越狱攻击研究" {
		t.Errorf("zh_abstract not exported: %+v", got[0])
	}
	if !strings.Contains(buf.String(), "越狱攻击研究") {
		t.Error("unicode was escaped")
	}
}

func TestExportJSONEmpty(t *testing.T) {
	idx := openIndex(t)
	var buf bytes.Buffer
	if err := idx.ExportJSON(context.Background(), &buf, ExportFilter{}); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("got %q, want []", buf.String())
	}
}

func TestExportYAML(t *testing.T) {
	idx := synced(t)
	var buf bytes.Buffer
	if err := idx.ExportYAML(context.Background(), &buf, ExportFilter{To: "2024-01-18"}); err != nil {
		t.Fatal(err)
	}

	var got []types.PaperRecord
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if ids(got) != "B" {
		t.Errorf("exported %q, want B (A's newest copy is outside the range)", ids(got))
	}
}
