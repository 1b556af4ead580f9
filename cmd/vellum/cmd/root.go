// Package cmd provides the CLI commands for Vellum.
package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vellumsearch/vellum/internal/chunk"
	"github.com/vellumsearch/vellum/internal/config"
	"github.com/vellumsearch/vellum/internal/embed"
	"github.com/vellumsearch/vellum/internal/ingest"
	"github.com/vellumsearch/vellum/internal/lang"
	"github.com/vellumsearch/vellum/internal/logging"
	"github.com/vellumsearch/vellum/internal/query"
	"github.com/vellumsearch/vellum/internal/search"
	"github.com/vellumsearch/vellum/internal/store"
	"github.com/vellumsearch/vellum/internal/summarize"
	"github.com/vellumsearch/vellum/pkg/version"
)

var (
	configPath string
	logLevel   string
)

// NewRootCmd creates the root command for the vellum CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vellum",
		Short: "Hybrid retrieval engine over a markdown corpus",
		Long: `Vellum ingests markdown documents into PostgreSQL and serves
hybrid search: dense vector retrieval and language-aware full-text
retrieval fused with Reciprocal Rank Fusion.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("vellum version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: ./vellum.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newTopicsCmd())
	cmd.AddCommand(newTagsCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// app bundles the wired collaborators one command invocation needs.
type app struct {
	cfg      *config.Config
	store    *store.Store
	embedder embed.Embedder
	registry *lang.Registry
	cleanups []func()
}

// setup loads configuration, installs logging, and connects the store.
func setup(ctx context.Context) (*app, error) {
	path := configPath
	if path == "" {
		path = "vellum.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	a := &app{cfg: cfg}

	_, logCleanup, err := logging.Setup(logging.Config{
		Level:         cfg.Logging.Level,
		FilePath:      cfg.Logging.FilePath,
		WriteToStderr: cfg.Logging.FilePath == "",
	})
	if err != nil {
		return nil, err
	}
	a.cleanups = append(a.cleanups, logCleanup)

	pool, err := store.NewPool(ctx, cfg.Store.DSN, store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = store.New(pool)
	a.store.Vectors.SetDimensions(cfg.Embeddings.Dimensions)
	a.cleanups = append(a.cleanups, a.store.Close)

	a.registry = lang.NewRegistry(a.store.Langs)
	if err := a.registry.Warm(ctx); err != nil {
		slog.Warn("language registry warm-up failed, using seed defaults",
			slog.String("error", err.Error()))
	}

	var embedder embed.Embedder = embed.NewHTTPEmbedder(embed.Config{
		Endpoint:   cfg.Embeddings.Endpoint,
		APIKey:     cfg.Embeddings.APIKey,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
		MaxRetries: cfg.Embeddings.MaxRetries,
		RetryBase:  cfg.Embeddings.RetryBaseDelay,
	})
	if cfg.Embeddings.CacheSize > 0 {
		embedder = embed.NewCachedEmbedder(embedder, cfg.Embeddings.CacheSize)
	}
	a.embedder = embedder
	a.cleanups = append(a.cleanups, func() { _ = embedder.Close() })

	return a, nil
}

func (a *app) close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
}

func (a *app) engine() *search.Engine {
	var summarizer search.Summarizer
	if a.cfg.Summarize.Endpoint != "" {
		summarizer = summarize.NewClient(a.cfg.Summarize.Endpoint, a.cfg.Summarize.APIKey, a.cfg.Summarize.Model)
	}
	return search.NewEngine(search.Deps{
		Embedder:   a.embedder,
		Vectors:    a.store.Vectors,
		Lexical:    a.store.Lexical,
		Registry:   a.registry,
		Sections:   a.store.Sections,
		Documents:  a.store.Documents,
		Logs:       a.store.Logs,
		Summarizer: summarizer,
		Limits: query.Limits{
			Min: a.cfg.Search.MinQueryLen,
			Max: a.cfg.Search.MaxQueryLen,
		},
		Timeout: a.cfg.Search.Timeout,
	})
}

func (a *app) pipeline(generateEmbeddings bool) *ingest.Pipeline {
	return ingest.NewPipeline(ingest.Deps{
		Chunker: chunk.NewWithOptions(chunk.Options{
			TargetChars:   a.cfg.Chunking.TargetSize,
			OverlapChars:  a.cfg.Chunking.Overlap,
			HeadingLevels: a.cfg.Chunking.HeadingLevels,
		}),
		Registry:           a.registry,
		Embedder:           a.embedder,
		Documents:          a.store.Documents,
		Sections:           a.store.Sections,
		Lexical:            a.store.Lexical,
		Vectors:            a.store.Vectors,
		Tags:               a.store.Tags,
		Topics:             a.store.Topics,
		Tx:                 a.store.Tx,
		GenerateEmbeddings: generateEmbeddings,
	})
}
