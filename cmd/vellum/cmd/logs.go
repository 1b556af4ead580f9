package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vellumsearch/vellum/internal/store"
)

func newLogsCmd() *cobra.Command {
	var (
		limit      int
		searchType string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent search queries",
		Long: `Show recent search queries from the search log.

Examples:
  vellum logs
  vellum logs --type fulltext --limit 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			var entries []store.SearchLog
			if searchType != "" {
				entries, err = a.store.Logs.ByType(ctx, searchType, limit)
			} else {
				entries, err = a.store.Logs.Recent(ctx, limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No logged queries")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %-8s %-3s %4dms %3d results  %q\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"),
					e.SearchType, e.Language, e.ExecutionTimeMS, e.ResultsCount, e.Query)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().StringVarP(&searchType, "type", "t", "", "Filter by search type: hybrid, vector, fulltext")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output entries as JSON")

	return cmd
}
