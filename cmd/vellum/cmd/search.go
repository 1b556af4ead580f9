package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vellumsearch/vellum/internal/search"
	"github.com/vellumsearch/vellum/internal/store"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	searchType string
	limit      int
	alpha      float64
	language   string
	format     string
	docIDs     []int64
	tagIDs     []int64
	dateFrom   string
	dateTo     string
	threshold  float64
	page       int
	perPage    int
	content    bool
	metadata   bool
	answer     bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the document corpus",
		Long: `Search the corpus with hybrid retrieval.

The vector and full-text channels run in parallel and are fused with
Reciprocal Rank Fusion. Either channel can also run alone.

Examples:
  vellum search "machine learning"
  vellum search "neural networks" --type fulltext --language en
  vellum search "transformer models" --alpha 0.9 --limit 5 --content
  vellum search "what is attention" --answer`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.searchType, "type", "t", "hybrid", "Search type: hybrid, vector, fulltext")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results")
	cmd.Flags().Float64VarP(&opts.alpha, "alpha", "a", -1, "Vector channel weight in [0,1]")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Query language code (default: detected)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().Int64SliceVar(&opts.docIDs, "document", nil, "Restrict to document id (repeatable)")
	cmd.Flags().Int64SliceVar(&opts.tagIDs, "tag", nil, "Restrict to tag id (repeatable)")
	cmd.Flags().StringVar(&opts.dateFrom, "from", "", "Earliest publication date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.dateTo, "to", "", "Latest publication date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Minimum vector similarity in [0,1]")
	cmd.Flags().IntVar(&opts.page, "page", 1, "Result page")
	cmd.Flags().IntVar(&opts.perPage, "per-page", 0, "Results per page")
	cmd.Flags().BoolVar(&opts.content, "content", false, "Include section content in results")
	cmd.Flags().BoolVar(&opts.metadata, "metadata", false, "Include document metadata in results")
	cmd.Flags().BoolVar(&opts.answer, "answer", false, "Phrase an answer over the top results")

	return cmd
}

func runSearch(cmd *cobra.Command, queryText string, opts searchOptions) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	filters, err := buildFilters(opts)
	if err != nil {
		return err
	}

	searchOpts := search.DefaultOptions()
	searchOpts.SearchType = search.SearchType(opts.searchType)
	searchOpts.Language = opts.language
	searchOpts.Filters = filters
	searchOpts.Threshold = opts.threshold
	searchOpts.Page = opts.page
	searchOpts.PerPage = opts.perPage
	searchOpts.IncludeContent = opts.content
	searchOpts.IncludeMetadata = opts.metadata
	searchOpts.Answer = opts.answer
	searchOpts.Alpha = a.cfg.Search.Alpha
	searchOpts.RRFK = a.cfg.Search.RRFConstant
	searchOpts.Limit = a.cfg.Search.DefaultLimit
	if opts.alpha >= 0 {
		searchOpts.Alpha = opts.alpha
	}
	if opts.limit > 0 {
		searchOpts.Limit = opts.limit
	}

	resp, err := a.engine().Search(ctx, queryText, searchOpts)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	return formatSearchText(cmd, resp)
}

func buildFilters(opts searchOptions) (*store.Filters, error) {
	f := &store.Filters{DocumentIDs: opts.docIDs, TagIDs: opts.tagIDs}
	if opts.dateFrom != "" {
		ts, err := time.Parse("2006-01-02", opts.dateFrom)
		if err != nil {
			return nil, fmt.Errorf("invalid --from date %q: %w", opts.dateFrom, err)
		}
		f.DateFrom = &ts
	}
	if opts.dateTo != "" {
		ts, err := time.Parse("2006-01-02", opts.dateTo)
		if err != nil {
			return nil, fmt.Errorf("invalid --to date %q: %w", opts.dateTo, err)
		}
		f.DateTo = &ts
	}
	if f.Empty() {
		return nil, nil
	}
	return f, nil
}

func formatSearchText(cmd *cobra.Command, resp *search.Response) error {
	out := cmd.OutOrStdout()

	if resp.Metadata.Error != "" {
		fmt.Fprintf(out, "Warning: degraded results (%s)\n\n", resp.Metadata.Error)
	}
	if len(resp.Results) == 0 {
		fmt.Fprintf(out, "No results found for %q\n", resp.Query)
		return nil
	}

	fmt.Fprintf(out, "Found %d results for %q (%s, %dms)\n\n",
		resp.Metadata.TotalCount, resp.Query, resp.Metadata.Language, resp.Metadata.ExecutionTimeMS)

	for _, r := range resp.Results {
		fmt.Fprintf(out, "%d. %s (section %d, score: %.4f)\n", r.Rank, r.SectionTitle, r.SectionID, r.Score)
		if r.Document != nil {
			fmt.Fprintf(out, "   %s", r.Document.Title)
			if r.Document.Author != "" {
				fmt.Fprintf(out, " by %s", r.Document.Author)
			}
			fmt.Fprintln(out)
		}
		if r.Highlight != "" {
			fmt.Fprintf(out, "   %s\n", r.Highlight)
		}
		if r.Content != "" {
			fmt.Fprintf(out, "   %s\n", snippet(r.Content, 3))
		}
		fmt.Fprintln(out)
	}

	if resp.Answer != "" {
		fmt.Fprintf(out, "Answer:\n%s\n", resp.Answer)
	}
	return nil
}

// snippet returns the first n non-empty lines joined with a separator.
func snippet(content string, n int) string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == n {
			break
		}
	}
	return strings.Join(lines, " / ")
}
