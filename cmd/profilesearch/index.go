package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/profilesearch/internal/index"
)

func init() {
	rootCmd.AddCommand(indexCmd)
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the corpus into the persisted store and exit",
	Long: `Embed every record of the configured corpus and write a new generation
to the SQLite store at storage.sqlite_path. The index backend is forced to
sqlite regardless of index.backend.

A later "serve" with index.restore_on_start: true serves this generation
without calling the embedding provider for the corpus, as long as the corpus
file is unchanged. Older generations are kept per storage.keep_generations
and storage.retention_sec so a running server never loses the one it serves.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

// indexOutput is the JSON summary printed on success.
type indexOutput struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	Source     string `json:"source"`
	Records    int    `json:"records"`
	Dimensions int    `json:"dimensions"`
	Generation int64  `json:"generation"`
	Retained   int    `json:"retained_generations"`
}

func runIndex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, index.BackendSQLite)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.profiles.Load(ctx, a.source)
	if err != nil {
		return fmt.Errorf("index corpus: %w", err)
	}

	gens, err := a.sqlite.Generations(ctx)
	if err != nil {
		return fmt.Errorf("list generations: %w", err)
	}
	out := indexOutput{
		Backend:    stats.Backend,
		Path:       a.cfg.Storage.SQLitePath,
		Source:     stats.Source,
		Records:    stats.Records,
		Dimensions: stats.Dimensions,
		Retained:   len(gens),
	}
	for _, g := range gens {
		if g.Active {
			out.Generation = g.ID
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
