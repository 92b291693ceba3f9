package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/codex/internal/retrieve"
)

var (
	searchKeywords string
	searchLimit    int
	searchAll      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [filter]",
	Short: "Rank stored attribute paths against a filter",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchKeywords, "keywords", "k", "", "Comma-separated keywords")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum number of results")
	searchCmd.Flags().BoolVar(&searchAll, "all", false, "Search every novel, not only --novel")
}

func runSearch(cmd *cobra.Command, args []string) error {
	rt, err := openClient(cmd)
	if err != nil {
		return err
	}
	defer rt.client.Shutdown()

	req := retrieve.Request{
		Keywords: searchKeywords,
		Limit:    searchLimit,
	}
	if len(args) == 1 {
		req.Filter = args[0]
	}
	if !searchAll {
		req.Novel = novelFlag
	}
	if err := rt.client.SetFilter(req.Filter, req.Keywords); err != nil {
		return err
	}

	results, err := rt.client.Search(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if jsonOutput {
		items := make([]map[string]any, len(results))
		for i, r := range results {
			items[i] = map[string]any{"path": r.Path, "score": r.Score}
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"results": items,
			"total":   len(items),
		})
	}

	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching attributes.")
		return nil
	}
	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "SCORE\tPATH")
	for _, r := range results {
		fmt.Fprintf(w, "%.3f\t%s\n", r.Score, strings.TrimSpace(r.Path))
	}
	return w.Flush()
}
