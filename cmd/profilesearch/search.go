package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/profilesearch/internal/domain/search/request"
	"github.com/kailas-cloud/profilesearch/internal/domain/search/result"
)

var (
	searchK     int
	searchHuman bool
)

func init() {
	searchCmd.Flags().IntVarP(&searchK, "top-k", "k", request.DefaultTopK, "Number of profiles to return")
	searchCmd.Flags().BoolVar(&searchHuman, "human", false, "Use human-readable output instead of JSON")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one query against the corpus",
	Long: `Bring the index up the same way "serve" does, run a single query and
print the k most similar profiles, best first.

Examples:
  profilesearch search "machine learning researcher"
  profilesearch search "teaches networking in Berlin" -k 3 --human`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

type searchField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type searchHit struct {
	Position int           `json:"position"`
	Score    float64       `json:"score"`
	Fields   []searchField `json:"fields"`
}

type searchOutput struct {
	Query   string      `json:"query"`
	Backend string      `json:"backend"`
	Metric  string      `json:"metric"`
	Results []searchHit `json:"results"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, "")
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.warmUp(ctx); err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	page, err := a.profiles.SearchPage(ctx, args[0], searchK)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out := searchOutput{
		Query:   args[0],
		Backend: page.Backend,
		Metric:  string(page.Metric),
		Results: make([]searchHit, 0, len(page.Results)),
	}
	for i := range page.Results {
		out.Results = append(out.Results, toSearchHit(&page.Results[i]))
	}

	if searchHuman {
		printHuman(cmd.OutOrStdout(), out)
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func toSearchHit(r *result.Result) searchHit {
	rec := r.Record()
	fields := rec.Fields()
	hit := searchHit{
		Position: rec.Position(),
		Score:    r.Score(),
		Fields:   make([]searchField, len(fields)),
	}
	for i, f := range fields {
		hit.Fields[i] = searchField{Name: f.Name, Value: f.Value}
	}
	return hit
}

func printHuman(w io.Writer, out searchOutput) {
	if len(out.Results) == 0 {
		fmt.Fprintln(w, "No profiles found")
		return
	}
	fmt.Fprintf(w, "Top %d profiles (%s, %s):\n\n", len(out.Results), out.Backend, out.Metric)
	for i, hit := range out.Results {
		fmt.Fprintf(w, "%d. #%d  score=%.4f\n", i+1, hit.Position, hit.Score)
		for _, f := range hit.Fields {
			fmt.Fprintf(w, "     %s: %s\n", f.Name, f.Value)
		}
	}
}
