// Package ingest runs the document ingestion pipeline: fetch, chunk,
// index, embed. One document's index rows are replaced atomically; a
// failed ingest leaves the document marked failed, never half-indexed.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vellumsearch/vellum/internal/chunk"
	"github.com/vellumsearch/vellum/internal/embed"
	verr "github.com/vellumsearch/vellum/internal/errors"
	"github.com/vellumsearch/vellum/internal/lang"
	"github.com/vellumsearch/vellum/internal/store"
)

// DocumentStore persists document rows and their lifecycle state.
type DocumentStore interface {
	UpsertByURL(ctx context.Context, doc *store.Document) (*store.Document, error)
	SetState(ctx context.Context, id int64, state store.DownloadState) error
}

// SectionStore swaps a document's section set.
type SectionStore interface {
	ReplaceForDocument(ctx context.Context, documentID int64, sections []store.NewSection) ([]store.Section, error)
}

// LexicalIndexer maintains per-section full-text rows.
type LexicalIndexer interface {
	Update(ctx context.Context, sectionID int64, language, configName string) error
}

// VectorWriter persists section embeddings.
type VectorWriter interface {
	InsertBatch(ctx context.Context, vectors []store.SectionVector) error
}

// TagStore resolves tags and links them to sections.
type TagStore interface {
	GetOrCreate(ctx context.Context, name string) (*store.Tag, error)
	LinkSections(ctx context.Context, tagID int64, sectionIDs []int64) error
}

// TopicLinker attaches a document's sections to a research topic.
type TopicLinker interface {
	AddDocument(ctx context.Context, topicID, documentID int64) error
}

// TxRunner runs a function inside one store transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Deps wires the pipeline's collaborators. Tags and Topics are optional.
type Deps struct {
	Fetcher   *Fetcher
	Chunker   *chunk.Chunker
	Registry  *lang.Registry
	Embedder  embed.Embedder
	Documents DocumentStore
	Sections  SectionStore
	Lexical   LexicalIndexer
	Vectors   VectorWriter
	Tags      TagStore
	Topics    TopicLinker
	Tx        TxRunner

	// GenerateEmbeddings toggles the vector channel; lexical indexing
	// always runs.
	GenerateEmbeddings bool
}

// Request describes one document to ingest. Content, when set, is used
// as-is and Source only identifies the document; otherwise Source is
// fetched.
type Request struct {
	Source          string
	Content         string
	Title           string
	Author          string
	Description     string
	Language        string
	PublicationDate *time.Time
	Metadata        map[string]any
	Tags            []string
	TopicID         int64
}

// Report summarizes one completed ingest.
type Report struct {
	JobID      string
	DocumentID int64
	Title      string
	Language   string
	Sections   int
	Embedded   int
	Elapsed    time.Duration
}

// Pipeline executes ingests.
type Pipeline struct {
	deps Deps
}

// NewPipeline creates the ingestion pipeline. Missing Fetcher, Chunker,
// or Registry fall back to defaults.
func NewPipeline(deps Deps) *Pipeline {
	if deps.Fetcher == nil {
		deps.Fetcher = NewFetcher()
	}
	if deps.Chunker == nil {
		deps.Chunker = chunk.New()
	}
	if deps.Registry == nil {
		deps.Registry = lang.NewRegistry(nil)
	}
	return &Pipeline{deps: deps}
}

// Ingest processes one document end to end. The section swap, lexical
// rows, and embeddings commit in one transaction; on any failure after
// the document row exists its state is set to failed.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	jobID := uuid.NewString()
	log := slog.With(slog.String("job_id", jobID), slog.String("source", req.Source))

	content := req.Content
	if content == "" {
		fetched, err := p.deps.Fetcher.Fetch(ctx, req.Source)
		if err != nil {
			log.Error("fetch failed", slog.String("error", err.Error()))
			return nil, err
		}
		content = fetched
	}

	docTitle, chunks := p.deps.Chunker.Split(content)

	title := req.Title
	if title == "" {
		title = docTitle
	}
	if title == "" {
		title = TitleFromSource(req.Source)
	}

	language := lang.NormalizeCode(req.Language)
	if language == "" {
		language = lang.DetectLanguage(content)
	} else if !lang.ValidCode(language) {
		return nil, verr.Newf(verr.ErrCodeInvalidInput, "invalid language code %q", req.Language)
	}

	doc, err := p.deps.Documents.UpsertByURL(ctx, &store.Document{
		Title:           title,
		URL:             req.Source,
		Author:          req.Author,
		PublicationDate: req.PublicationDate,
		Language:        language,
		Description:     req.Description,
		Metadata:        req.Metadata,
	})
	if err != nil {
		log.Error("document upsert failed", slog.String("error", err.Error()))
		return nil, err
	}
	log = log.With(slog.Int64("document_id", doc.ID))

	report, err := p.index(ctx, doc.ID, language, chunks, req)
	if err != nil {
		p.markFailed(ctx, doc.ID)
		log.Error("ingest failed", slog.String("error", err.Error()))
		return nil, err
	}

	if err := p.deps.Documents.SetState(ctx, doc.ID, store.StateCompleted); err != nil {
		log.Error("state transition failed", slog.String("error", err.Error()))
		return nil, err
	}

	report.JobID = jobID
	report.DocumentID = doc.ID
	report.Title = title
	report.Language = language
	report.Elapsed = time.Since(start)
	log.Info("document ingested",
		slog.Int("sections", report.Sections),
		slog.Int("embedded", report.Embedded),
		slog.Duration("elapsed", report.Elapsed))
	return report, nil
}

// index chunks, embeds, and commits the document's retrieval rows.
// Embedding runs before the transaction opens so no network call holds
// a store connection.
func (p *Pipeline) index(ctx context.Context, documentID int64, language string, chunks []chunk.Chunk, req Request) (*Report, error) {
	var vectors [][]float32
	if p.deps.GenerateEmbeddings && len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Content
		}
		embedded, err := p.deps.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		vectors = embedded
	}

	newSections := make([]store.NewSection, len(chunks))
	for i, c := range chunks {
		newSections[i] = store.NewSection{Title: c.Title, Content: c.Content}
	}

	configName := p.deps.Registry.Lookup(ctx, language)
	report := &Report{Sections: len(chunks)}

	err := p.deps.Tx.RunInTx(ctx, func(ctx context.Context) error {
		sections, err := p.deps.Sections.ReplaceForDocument(ctx, documentID, newSections)
		if err != nil {
			return err
		}

		for _, s := range sections {
			if err := p.deps.Lexical.Update(ctx, s.ID, language, configName); err != nil {
				return err
			}
		}

		if len(vectors) > 0 {
			rows := make([]store.SectionVector, len(sections))
			for i, s := range sections {
				rows[i] = store.SectionVector{SectionID: s.ID, Vector: vectors[i]}
			}
			if err := p.deps.Vectors.InsertBatch(ctx, rows); err != nil {
				return err
			}
			report.Embedded = len(rows)
		}

		if err := p.linkTags(ctx, sections, req.Tags); err != nil {
			return err
		}
		if req.TopicID > 0 && p.deps.Topics != nil {
			if err := p.deps.Topics.AddDocument(ctx, req.TopicID, documentID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, verr.Processing("index document", err)
	}
	return report, nil
}

func (p *Pipeline) linkTags(ctx context.Context, sections []store.Section, names []string) error {
	if len(names) == 0 || p.deps.Tags == nil || len(sections) == 0 {
		return nil
	}
	ids := make([]int64, len(sections))
	for i, s := range sections {
		ids[i] = s.ID
	}
	for _, name := range names {
		tag, err := p.deps.Tags.GetOrCreate(ctx, name)
		if err != nil {
			return err
		}
		if err := p.deps.Tags.LinkSections(ctx, tag.ID, ids); err != nil {
			return err
		}
	}
	return nil
}

// markFailed records the failed state without clobbering the original
// error, surviving a cancelled context.
func (p *Pipeline) markFailed(ctx context.Context, documentID int64) {
	if err := p.deps.Documents.SetState(context.WithoutCancel(ctx), documentID, store.StateFailed); err != nil {
		slog.Warn("failed-state transition lost",
			slog.Int64("document_id", documentID),
			slog.String("error", err.Error()))
	}
}
