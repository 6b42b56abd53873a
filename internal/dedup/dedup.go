// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup removes papers that were already seen, either earlier in
// the same batch or in a previous run's paper store.
package dedup

import (
	"github.com/pdiddy/paper-digest/internal/store"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// InBatch keeps the first occurrence of every id and preserves order.
func InBatch(papers []types.PaperRecord) []types.PaperRecord {
	seen := make(map[string]struct{}, len(papers))
	var kept []types.PaperRecord
	for _, p := range papers {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		kept = append(kept, p)
	}
	return kept
}

// AgainstStore drops papers whose id already appears in the store at path.
// A missing or empty store passes every paper through; a malformed store
// is an error.
func AgainstStore(papers []types.PaperRecord, path string) ([]types.PaperRecord, error) {
	ids, err := store.IDs(path)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return papers, nil
	}

	var kept []types.PaperRecord
	for _, p := range papers {
		if _, ok := ids[p.ID]; !ok {
			kept = append(kept, p)
		}
	}
	return kept, nil
}
