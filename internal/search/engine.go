package search

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vellumsearch/vellum/internal/embed"
	verr "github.com/vellumsearch/vellum/internal/errors"
	"github.com/vellumsearch/vellum/internal/lang"
	"github.com/vellumsearch/vellum/internal/query"
	"github.com/vellumsearch/vellum/internal/store"
)

// VectorIndex is the vector channel's store dependency.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, limit int, threshold float64, filters *store.Filters) ([]store.VectorHit, error)
}

// LexicalIndex is the full-text channel's store dependency.
type LexicalIndex interface {
	Search(ctx context.Context, queryExpr, language, configName string, limit int, filters *store.Filters) ([]store.LexicalHit, error)
}

// QueryLogger records executed queries. Failures are swallowed by the
// engine; a broken logger never fails a search.
type QueryLogger interface {
	Insert(ctx context.Context, entry *store.SearchLog) error
}

// SectionReader enriches results with section rows.
type SectionReader interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]store.Section, error)
}

// DocumentReader enriches results with document rows.
type DocumentReader interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]store.Document, error)
}

// Summarizer phrases an answer over retrieved passages.
type Summarizer interface {
	Summarize(ctx context.Context, question string, passages []string) (string, error)
}

// Deps wires the engine's collaborators.
type Deps struct {
	Embedder   embed.Embedder
	Vectors    VectorIndex
	Lexical    LexicalIndex
	Registry   *lang.Registry
	Sections   SectionReader
	Documents  DocumentReader
	Logs       QueryLogger
	Summarizer Summarizer // optional
	Limits     query.Limits
	Timeout    time.Duration
}

// Engine runs hybrid searches.
type Engine struct {
	deps Deps
}

// NewEngine creates the retrieval orchestrator.
func NewEngine(deps Deps) *Engine {
	if deps.Limits.Min == 0 && deps.Limits.Max == 0 {
		deps.Limits = query.DefaultLimits()
	}
	return &Engine{deps: deps}
}

// Search executes one query. Every call, including validation failures,
// produces a search log row.
func (e *Engine) Search(ctx context.Context, queryText string, opts Options) (*Response, error) {
	start := time.Now()
	opts.normalize()

	if !opts.SearchType.Valid() {
		err := verr.Newf(verr.ErrCodeInvalidInput, "unknown search type %q", opts.SearchType)
		e.log(ctx, queryText, opts, "", nil, nil, 0)
		return nil, err
	}
	if err := query.Validate(queryText, e.deps.Limits); err != nil {
		e.log(ctx, queryText, opts, "", nil, nil, 0)
		return nil, err
	}

	language := lang.NormalizeCode(opts.Language)
	if language == "" {
		language = lang.DetectLanguage(queryText)
	} else if !lang.ValidCode(language) {
		err := verr.Newf(verr.ErrCodeInvalidInput, "invalid language code %q", opts.Language)
		e.log(ctx, queryText, opts, "", nil, nil, 0)
		return nil, err
	}

	if e.deps.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.deps.Timeout)
		defer cancel()
	}

	pool := retrievalPool(opts.Limit)

	var (
		vecHits  []store.VectorHit
		txtHits  []store.LexicalHit
		queryVec []float32
		vecErr   error
		txtErr   error
	)

	// Channel failures are recorded, not propagated: hybrid degradation
	// needs both outcomes independently.
	g, gctx := errgroup.WithContext(ctx)
	if opts.SearchType != TypeFulltext {
		g.Go(func() error {
			vec, err := e.deps.Embedder.Embed(gctx, queryText)
			if err != nil {
				vecErr = err
				return nil
			}
			queryVec = vec
			hits, err := e.deps.Vectors.Search(gctx, vec, pool, opts.Threshold, opts.Filters)
			if err != nil {
				vecErr = err
				return nil
			}
			vecHits = hits
			return nil
		})
	}
	if opts.SearchType != TypeVector {
		g.Go(func() error {
			hits, err := e.textChannel(gctx, queryText, language, pool, opts.Filters)
			if err != nil {
				txtErr = err
				return nil
			}
			txtHits = hits
			return nil
		})
	}
	_ = g.Wait()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) && len(vecHits) == 0 && len(txtHits) == 0 {
		e.log(context.WithoutCancel(ctx), queryText, opts, language, queryVec, nil, time.Since(start))
		return nil, verr.Timeout("search deadline exceeded")
	}

	var (
		fusedList []fused
		degraded  string
	)
	switch opts.SearchType {
	case TypeVector:
		if vecErr != nil {
			e.log(ctx, queryText, opts, language, queryVec, nil, time.Since(start))
			return nil, vecErr
		}
		fusedList = singleVector(vecHits)
	case TypeFulltext:
		if txtErr != nil {
			e.log(ctx, queryText, opts, language, nil, nil, time.Since(start))
			return nil, txtErr
		}
		fusedList = singleText(txtHits)
	default:
		switch {
		case vecErr != nil && txtErr != nil:
			degraded = "vector channel: " + vecErr.Error() + "; text channel: " + txtErr.Error()
		case vecErr != nil:
			degraded = "vector channel: " + vecErr.Error()
		case txtErr != nil:
			degraded = "text channel: " + txtErr.Error()
		}
		fusedList = fuseRRF(vecHits, txtHits, opts.Alpha, opts.RRFK)
	}

	page := paginate(fusedList, opts.Page, opts.PerPage, opts.Limit)

	results, err := e.enrich(ctx, page, opts)
	if err != nil {
		e.log(ctx, queryText, opts, language, queryVec, nil, time.Since(start))
		return nil, err
	}

	resp := &Response{
		Query:   queryText,
		Results: results,
		Metadata: Metadata{
			TotalCount:        len(fusedList),
			ExecutionTimeMS:   int(time.Since(start).Milliseconds()),
			Language:          language,
			Alpha:             opts.Alpha,
			TextResultCount:   len(txtHits),
			VectorResultCount: len(vecHits),
			Error:             degraded,
		},
	}

	if opts.Answer && e.deps.Summarizer != nil && len(results) > 0 {
		e.answer(ctx, queryText, resp)
	}

	e.log(ctx, queryText, opts, language, queryVec, results, time.Since(start))
	return resp, nil
}

// textChannel parses the query, resolves the tokenizer configuration,
// and runs the full-text search.
func (e *Engine) textChannel(ctx context.Context, queryText, language string, pool int, filters *store.Filters) ([]store.LexicalHit, error) {
	parsed, err := query.Parse(queryText)
	if err != nil {
		return nil, err
	}
	config := e.deps.Registry.Lookup(ctx, language)
	expr, err := query.EmitTsquery(parsed, config)
	if err != nil {
		return nil, err
	}
	return e.deps.Lexical.Search(ctx, expr, language, config, pool, filters)
}

// paginate slices the fused list by page/perPage, then trims to limit.
func paginate(list []fused, page, perPage, limit int) []fused {
	offset := (page - 1) * perPage
	if offset >= len(list) {
		return nil
	}
	end := offset + perPage
	if end > len(list) {
		end = len(list)
	}
	out := list[offset:end]
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// enrich shapes the final results, attaching section and document detail
// per the options.
func (e *Engine) enrich(ctx context.Context, page []fused, opts Options) ([]Result, error) {
	if len(page) == 0 {
		return []Result{}, nil
	}

	ids := make([]int64, len(page))
	for i, f := range page {
		ids[i] = f.sectionID
	}
	sections, err := e.deps.Sections.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	var documents map[int64]store.Document
	if opts.IncludeMetadata {
		docIDs := make([]int64, 0, len(sections))
		seen := make(map[int64]bool, len(sections))
		for _, s := range sections {
			if !seen[s.DocumentID] {
				seen[s.DocumentID] = true
				docIDs = append(docIDs, s.DocumentID)
			}
		}
		documents, err = e.deps.Documents.GetMany(ctx, docIDs)
		if err != nil {
			return nil, err
		}
	}

	results := make([]Result, len(page))
	for i, f := range page {
		r := Result{
			SectionID:    f.sectionID,
			Score:        f.score,
			Rank:         i + 1,
			VectorRank:   f.vectorRank,
			TextRank:     f.textRank,
			Highlight:    f.highlight,
			SectionTitle: f.title,
			DocumentID:   f.documentID,
		}
		if s, ok := sections[f.sectionID]; ok {
			r.SectionTitle = s.Title
			r.DocumentID = s.DocumentID
			if opts.IncludeContent {
				r.Content = s.Content
			}
		}
		if opts.IncludeMetadata {
			if d, ok := documents[r.DocumentID]; ok {
				r.Document = &DocumentMeta{
					ID:              d.ID,
					Title:           d.Title,
					Author:          d.Author,
					PublicationDate: d.PublicationDate,
					Metadata:        d.Metadata,
				}
			}
		}
		results[i] = r
	}
	return results, nil
}

// answer phrases a short answer over the top passages. Summarizer
// failure degrades to plain results.
func (e *Engine) answer(ctx context.Context, question string, resp *Response) {
	const maxPassages = 5

	ids := make([]int64, 0, maxPassages)
	for _, r := range resp.Results {
		if len(ids) == maxPassages {
			break
		}
		ids = append(ids, r.SectionID)
	}
	sections, err := e.deps.Sections.GetMany(ctx, ids)
	if err != nil {
		slog.Warn("answer passages unavailable", slog.String("error", err.Error()))
		return
	}
	passages := make([]string, 0, len(ids))
	for _, id := range ids {
		if s, ok := sections[id]; ok {
			passages = append(passages, s.Content)
		}
	}

	text, err := e.deps.Summarizer.Summarize(ctx, question, passages)
	if err != nil {
		slog.Warn("summarizer failed", slog.String("error", err.Error()))
		return
	}
	resp.Answer = text
}

// log records the query best-effort; the engine never fails a search
// over a logging problem.
func (e *Engine) log(ctx context.Context, queryText string, opts Options, language string, queryVec []float32, results []Result, elapsed time.Duration) {
	if e.deps.Logs == nil {
		return
	}

	entry := &store.SearchLog{
		Query:           queryText,
		SearchType:      string(opts.SearchType),
		Language:        language,
		ExecutionTimeMS: int(elapsed.Milliseconds()),
		ResultsCount:    len(results),
		QueryVector:     queryVec,
		Filters:         opts.Filters.Snapshot(),
	}
	for _, r := range results {
		entry.SectionIDs = append(entry.SectionIDs, r.SectionID)
	}

	if err := e.deps.Logs.Insert(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("search log write failed", slog.String("error", err.Error()))
	}
}
