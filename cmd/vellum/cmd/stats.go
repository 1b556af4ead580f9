package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus and query statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			stats, err := a.store.Documents.Stats(ctx)
			if err != nil {
				return err
			}
			avgTimes, err := a.store.Logs.AvgExecTimeByType(ctx)
			if err != nil {
				return err
			}
			popular, err := a.store.Logs.Popular(ctx, 5)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"corpus":              stats,
					"avg_exec_time_ms":    avgTimes,
					"popular_queries_24h": popular,
				})
			}

			fmt.Fprintln(out, "Corpus:")
			for _, state := range sortedKeys(stats.DocumentsByState) {
				fmt.Fprintf(out, "  documents (%s): %d\n", state, stats.DocumentsByState[state])
			}
			for _, language := range sortedKeys(stats.DocumentsByLanguage) {
				fmt.Fprintf(out, "  documents (%s): %d\n", language, stats.DocumentsByLanguage[language])
			}
			fmt.Fprintf(out, "  sections: %d\n", stats.Sections)
			fmt.Fprintf(out, "  embeddings: %d\n", stats.Embeddings)
			fmt.Fprintf(out, "  lexical rows: %d\n", stats.LexicalRows)
			fmt.Fprintf(out, "  tags: %d\n", stats.Tags)
			fmt.Fprintf(out, "  topics: %d\n", stats.Topics)
			fmt.Fprintf(out, "  search logs: %d\n", stats.SearchLogs)

			if len(avgTimes) > 0 {
				fmt.Fprintln(out, "\nAverage execution time (ms):")
				for _, searchType := range sortedKeys(avgTimes) {
					fmt.Fprintf(out, "  %s: %.1f\n", searchType, avgTimes[searchType])
				}
			}
			if len(popular) > 0 {
				fmt.Fprintln(out, "\nPopular queries (24h):")
				for _, p := range popular {
					fmt.Fprintf(out, "  %q: %d\n", p.Query, p.Count)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output stats as JSON")
	return cmd
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
