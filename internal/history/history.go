// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history mirrors the JSON paper store into SQLite so past digests
// can be searched, audited for duplicates and exported. The JSON store stays
// the authority; the index is rebuilt from it and never written back.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// DefaultLimit caps Search results when no limit is given.
const DefaultLimit = 20

// Index is an SQLite copy of the paper store.
type Index struct {
	db *sql.DB
}

// Open opens or creates the index database at path.
func Open(path string) (*Index, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	idx := &Index{db: db}
	if err := idx.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return idx, nil
}

// Close releases the database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

func (x *Index) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			position INTEGER PRIMARY KEY,
			id TEXT NOT NULL,
			title TEXT NOT NULL,
			abstract TEXT NOT NULL,
			zh_abstract TEXT,
			url TEXT NOT NULL,
			published TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_id ON entries(id)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_published ON entries(published)`,
	}
	for _, stmt := range statements {
		if _, err := x.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Sync replaces the index contents with records, which must be in store
// order (newest first). Historical duplicates are indexed as they are.
func (x *Index) Sync(ctx context.Context, records []types.PaperRecord) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (position, id, title, abstract, zh_abstract, url, published)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		var zh sql.NullString
		if r.ZhAbstract != nil {
			zh = sql.NullString{String: *r.ZhAbstract, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, i, r.ID, r.Title, r.Abstract, zh, r.URL, r.Published); err != nil {
			return fmt.Errorf("inserting %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of indexed rows and distinct ids.
func (x *Index) Count(ctx context.Context) (rows, unique int, err error) {
	err = x.db.QueryRowContext(ctx, `SELECT count(*), count(DISTINCT id) FROM entries`).Scan(&rows, &unique)
	if err != nil {
		return 0, 0, fmt.Errorf("counting entries: %w", err)
	}
	return rows, unique, nil
}

// Search returns papers whose title, abstract or translated abstract
// contains every whitespace-separated term of query, newest first. Each id
// appears once, at its most recent position.
func (x *Index) Search(ctx context.Context, query string, limit int) ([]types.PaperRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var qb strings.Builder
	var args []any
	qb.WriteString(`SELECT e.id, e.title, e.abstract, e.zh_abstract, e.url, e.published
		FROM entries e
		WHERE e.position = (SELECT min(position) FROM entries WHERE id = e.id)`)
	for _, term := range strings.Fields(strings.ToLower(query)) {
		qb.WriteString(` AND instr(lower(e.title || ' ' || e.abstract || ' ' || coalesce(e.zh_abstract, '')), ?) > 0`)
		args = append(args, term)
	}
	qb.WriteString(` ORDER BY e.position LIMIT ?`)
	args = append(args, limit)

	rows, err := x.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Duplicate is an id stored more than once.
type Duplicate struct {
	ID        string `json:"id" yaml:"id"`
	Count     int    `json:"count" yaml:"count"`
	Positions []int  `json:"positions" yaml:"positions"`
}

// Duplicates lists ids that appear more than once in the store, most
// repeated first, each with its store positions in ascending order. The
// store itself is left as it is.
func (x *Index) Duplicates(ctx context.Context) ([]Duplicate, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT e.id, e.position, d.n
		 FROM entries e
		 JOIN (SELECT id, count(*) AS n FROM entries GROUP BY id HAVING n > 1) d ON d.id = e.id
		 ORDER BY d.n DESC, e.id, e.position`)
	if err != nil {
		return nil, fmt.Errorf("querying duplicates: %w", err)
	}
	defer rows.Close()

	var dups []Duplicate
	for rows.Next() {
		var (
			id       string
			pos, cnt int
		)
		if err := rows.Scan(&id, &pos, &cnt); err != nil {
			return nil, fmt.Errorf("scanning duplicate: %w", err)
		}
		if n := len(dups); n == 0 || dups[n-1].ID != id {
			dups = append(dups, Duplicate{ID: id, Count: cnt})
		}
		last := &dups[len(dups)-1]
		last.Positions = append(last.Positions, pos)
	}
	return dups, rows.Err()
}

func scanRecords(rows *sql.Rows) ([]types.PaperRecord, error) {
	var out []types.PaperRecord
	for rows.Next() {
		var r types.PaperRecord
		var zh sql.NullString
		if err := rows.Scan(&r.ID, &r.Title, &r.Abstract, &zh, &r.URL, &r.Published); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if zh.Valid {
			s := zh.String
			r.ZhAbstract = &s
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
