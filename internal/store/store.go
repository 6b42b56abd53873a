// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists reported papers as a newest-first JSON array.
// The file is the authority for cross-run deduplication. It is read and
// rewritten whole; a single process is assumed to own it.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// Load reads the store at path. A missing or empty file is an empty store.
// Malformed content is returned as an error.
func Load(path string) ([]types.PaperRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading paper store %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var papers []types.PaperRecord
	if err := json.Unmarshal(data, &papers); err != nil {
		return nil, fmt.Errorf("parsing paper store %s: %w", path, err)
	}
	return papers, nil
}

// IDs returns the set of ids present in the store at path.
func IDs(path string) (map[string]struct{}, error) {
	papers, err := Load(path)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(papers))
	for _, p := range papers {
		ids[p.ID] = struct{}{}
	}
	return ids, nil
}

// Prepend places papers in front of the stored list and rewrites the file.
// It always writes, even when papers is empty, so the store exists after
// the first run.
func Prepend(path string, papers []types.PaperRecord) error {
	existing, err := Load(path)
	if err != nil {
		return err
	}

	merged := make([]types.PaperRecord, 0, len(papers)+len(existing))
	merged = append(merged, papers...)
	merged = append(merged, existing...)

	return write(path, merged)
}

// write encodes papers with 4-space indentation and without HTML escaping,
// then replaces path through a temp file in the same directory.
func write(path string, papers []types.PaperRecord) error {
	if papers == nil {
		papers = []types.PaperRecord{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(papers); err != nil {
		return fmt.Errorf("encoding paper store: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp store: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("setting store permissions: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp store: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing paper store %s: %w", path, err)
	}
	return nil
}
