// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-digest/internal/history"
	"github.com/pdiddy/paper-digest/internal/store"
	"github.com/pdiddy/paper-digest/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Search and audit previously reported papers",
	Long: `History mirrors the JSON paper store into an SQLite index and answers
questions about it. Every subcommand refreshes the index from the store
first; the store itself is never modified.`,
}

// --- index subcommand ---

var historyIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the history index from the paper store",
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer idx.Close()

		rows, unique, err := idx.Count(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("indexed %d entries (%d distinct papers) from %s\n", rows, unique, cfg.PaperFile)
		return nil
	},
}

// --- search subcommand ---

var historySearchCmd = &cobra.Command{
	Use:   "search [terms...]",
	Short: "Find reported papers containing every term",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		idx, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer idx.Close()

		results, err := idx.Search(context.Background(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		return formatSearchOutput(os.Stdout, results, jsonOutput)
	},
}

func formatSearchOutput(w io.Writer, results []types.PaperRecord, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-12s  %-10s  %s\n", "ID", "Published", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, r := range results {
		title := r.Title
		if runes := []rune(title); len(runes) > 64 {
			title = string(runes[:61]) + "..."
		}
		fmt.Fprintf(w, "%-12s  %-10s  %s\n", r.ID, r.Published, title)
	}
	fmt.Fprintf(w, "\n%d results\n", len(results))
	return nil
}

// --- duplicates subcommand ---

var historyDuplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "List papers stored more than once",
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer idx.Close()

		dups, err := idx.Duplicates(context.Background())
		if err != nil {
			return err
		}
		if len(dups) == 0 {
			fmt.Println("No duplicates.")
			return nil
		}
		fmt.Printf("%-12s  %-5s  %s\n", "ID", "Count", "Store positions")
		for _, d := range dups {
			fmt.Printf("%-12s  %-5d  %s\n", d.ID, d.Count, joinPositions(d.Positions))
		}
		return nil
	},
}

func joinPositions(positions []int) string {
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export distinct reported papers to YAML or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("output")
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		filter := history.ExportFilter{From: from, To: to}

		idx, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer idx.Close()

		var w io.Writer = os.Stdout
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			defer f.Close()
			w = f
		}

		ctx := context.Background()
		switch format {
		case "yaml", "":
			err = idx.ExportYAML(ctx, w, filter)
		case "json":
			err = idx.ExportJSON(ctx, w, filter)
		default:
			return fmt.Errorf("unsupported format %q: use yaml or json", format)
		}
		if err != nil {
			return err
		}
		if out != "" {
			fmt.Fprintf(os.Stderr, "Exported to %s\n", out)
		}
		return nil
	},
}

// --- shared helpers ---

// defaultIndexPath places the index next to the paper store.
func defaultIndexPath(paperFile string) string {
	return strings.TrimSuffix(paperFile, filepath.Ext(paperFile)) + ".db"
}

// openHistory opens the index and refreshes it from the paper store.
func openHistory(cmd *cobra.Command) (*history.Index, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = defaultIndexPath(cfg.PaperFile)
	}

	records, err := store.Load(cfg.PaperFile)
	if err != nil {
		return nil, err
	}

	idx, err := history.Open(path)
	if err != nil {
		return nil, err
	}
	if err := idx.Sync(context.Background(), records); err != nil {
		idx.Close()
		return nil, err
	}
	logger.Debug().Str("db", path).Int("entries", len(records)).Msg("history index refreshed")
	return idx, nil
}

func init() {
	historyCmd.PersistentFlags().String("db", "", "history index database (default: paper store path with .db extension)")

	historySearchCmd.Flags().Int("limit", history.DefaultLimit, "maximum number of results")
	historySearchCmd.Flags().Bool("json", false, "output results as JSON")

	historyExportCmd.Flags().String("format", "yaml", "output format: yaml or json")
	historyExportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")
	historyExportCmd.Flags().String("from", "", "earliest published date (YYYY-MM-DD)")
	historyExportCmd.Flags().String("to", "", "latest published date (YYYY-MM-DD)")

	historyCmd.AddCommand(historyIndexCmd, historySearchCmd, historyDuplicatesCmd, historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
