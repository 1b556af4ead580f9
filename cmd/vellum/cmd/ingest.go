package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vellumsearch/vellum/internal/ingest"
)

// ingestOptions holds CLI flags for ingest.
type ingestOptions struct {
	title       string
	author      string
	description string
	language    string
	published   string
	tags        []string
	topicID     int64
	noEmbed     bool
	concurrency int
}

func newIngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest <source>...",
		Short: "Ingest markdown documents",
		Long: `Ingest one or more markdown documents by URL or file path.

Each document is chunked into sections, indexed for full-text search,
and embedded for vector search.

Examples:
  vellum ingest https://example.org/paper.md
  vellum ingest notes/*.md --tag research --tag drafts
  vellum ingest doc.md --language zh --no-embed`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.title, "title", "", "Document title (single source only)")
	cmd.Flags().StringVar(&opts.author, "author", "", "Document author")
	cmd.Flags().StringVar(&opts.description, "description", "", "Document description")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Document language code (default: detected)")
	cmd.Flags().StringVar(&opts.published, "published", "", "Publication date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVarP(&opts.tags, "tag", "t", nil, "Tag to link (repeatable)")
	cmd.Flags().Int64Var(&opts.topicID, "topic", 0, "Research topic id to attach the document to")
	cmd.Flags().BoolVar(&opts.noEmbed, "no-embed", false, "Skip embedding generation (lexical index only)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", ingest.DefaultBatchConcurrency, "Parallel document ingests")

	return cmd
}

func runIngest(cmd *cobra.Command, sources []string, opts ingestOptions) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var published *time.Time
	if opts.published != "" {
		ts, err := time.Parse("2006-01-02", opts.published)
		if err != nil {
			return fmt.Errorf("invalid --published date %q: %w", opts.published, err)
		}
		published = &ts
	}

	reqs := make([]ingest.Request, len(sources))
	for i, source := range sources {
		reqs[i] = ingest.Request{
			Source:          source,
			Author:          opts.author,
			Description:     opts.description,
			Language:        opts.language,
			PublicationDate: published,
			Tags:            opts.tags,
			TopicID:         opts.topicID,
		}
	}
	if opts.title != "" {
		if len(sources) > 1 {
			return fmt.Errorf("--title applies to a single source, got %d", len(sources))
		}
		reqs[0].Title = opts.title
	}

	pipeline := a.pipeline(!opts.noEmbed)

	if len(reqs) == 1 {
		report, err := pipeline.Ingest(ctx, reqs[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Ingested %q (document %d): %d sections, %d embedded in %s\n",
			report.Title, report.DocumentID, report.Sections, report.Embedded, report.Elapsed.Round(time.Millisecond))
		return nil
	}

	result := pipeline.IngestBatch(ctx, reqs, opts.concurrency)
	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d of %d documents\n", result.Succeeded, len(reqs))
	for _, r := range result.Reports {
		fmt.Fprintf(cmd.OutOrStdout(), "  %q (document %d): %d sections\n", r.Title, r.DocumentID, r.Sections)
	}
	if result.Failed > 0 {
		var lines []string
		for source, err := range result.Errors {
			lines = append(lines, fmt.Sprintf("  %s: %v", source, err))
		}
		return fmt.Errorf("%d document(s) failed:\n%s", result.Failed, strings.Join(lines, "\n"))
	}
	return nil
}
