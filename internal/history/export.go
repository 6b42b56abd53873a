// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// ExportFilter narrows an export to a published-date range. Empty bounds
// are open; dates use types.DateLayout.
type ExportFilter struct {
	From string
	To   string
}

// ExportYAML writes every distinct paper, newest first, as a YAML list.
func (x *Index) ExportYAML(ctx context.Context, w io.Writer, f ExportFilter) error {
	records, err := x.exportRecords(ctx, f)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportJSON writes every distinct paper, newest first, as a JSON array.
func (x *Index) ExportJSON(ctx context.Context, w io.Writer, f ExportFilter) error {
	records, err := x.exportRecords(ctx, f)
	if err != nil {
		return err
	}
	if records == nil {
		records = []types.PaperRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return nil
}

func (x *Index) exportRecords(ctx context.Context, f ExportFilter) ([]types.PaperRecord, error) {
	query := `SELECT e.id, e.title, e.abstract, e.zh_abstract, e.url, e.published
		FROM entries e
		WHERE e.position = (SELECT min(position) FROM entries WHERE id = e.id)`
	var args []any
	if f.From != "" {
		query += ` AND e.published >= ?`
		args = append(args, f.From)
	}
	if f.To != "" {
		query += ` AND e.published <= ?`
		args = append(args, f.To)
	}
	query += ` ORDER BY e.position`

	rows, err := x.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}
