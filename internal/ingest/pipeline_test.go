package ingest

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verr "github.com/vellumsearch/vellum/internal/errors"
	"github.com/vellumsearch/vellum/internal/store"
)

type fakeDocs struct {
	mu     sync.Mutex
	nextID int64
	states map[int64]store.DownloadState
	last   *store.Document
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{nextID: 1, states: make(map[int64]store.DownloadState)}
}

func (f *fakeDocs) UpsertByURL(_ context.Context, doc *store.Document) (*store.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := *doc
	out.ID = f.nextID
	f.nextID++
	f.states[out.ID] = store.StatePending
	f.last = &out
	return &out, nil
}

func (f *fakeDocs) SetState(_ context.Context, id int64, state store.DownloadState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[id] = state
	return nil
}

type fakeSections struct {
	inserted []store.NewSection
}

func (f *fakeSections) ReplaceForDocument(_ context.Context, documentID int64, sections []store.NewSection) ([]store.Section, error) {
	f.inserted = sections
	out := make([]store.Section, len(sections))
	for i, s := range sections {
		out[i] = store.Section{
			ID:            int64(i + 1),
			DocumentID:    documentID,
			SectionNumber: i,
			Title:         s.Title,
			Content:       s.Content,
		}
	}
	return out, nil
}

type fakeLexical struct {
	updates  []int64
	language string
	config   string
	err      error
}

func (f *fakeLexical) Update(_ context.Context, sectionID int64, language, configName string) error {
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, sectionID)
	f.language = language
	f.config = configName
	return nil
}

type fakeVectors struct {
	rows []store.SectionVector
}

func (f *fakeVectors) InsertBatch(_ context.Context, vectors []store.SectionVector) error {
	f.rows = append(f.rows, vectors...)
	return nil
}

type fakeTags struct {
	created []string
	links   map[int64][]int64
}

func (f *fakeTags) GetOrCreate(_ context.Context, name string) (*store.Tag, error) {
	f.created = append(f.created, name)
	return &store.Tag{ID: int64(len(f.created)), Name: name}, nil
}

func (f *fakeTags) LinkSections(_ context.Context, tagID int64, sectionIDs []int64) error {
	if f.links == nil {
		f.links = make(map[int64][]int64)
	}
	f.links[tagID] = append(f.links[tagID], sectionIDs...)
	return nil
}

type fakeTopics struct {
	linked [][2]int64
}

func (f *fakeTopics) AddDocument(_ context.Context, topicID, documentID int64) error {
	f.linked = append(f.linked, [2]int64{topicID, documentID})
	return nil
}

// fakeTx runs the function directly; rollback is observed through the
// returned error.
type fakeTx struct {
	calls int
}

func (f *fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeEmbedder struct {
	dims  int
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int   { return f.dims }
func (f *fakeEmbedder) ModelName() string { return "fake" }
func (f *fakeEmbedder) Close() error      { return nil }

type pipelineFixture struct {
	docs     *fakeDocs
	sections *fakeSections
	lexical  *fakeLexical
	vectors  *fakeVectors
	tags     *fakeTags
	topics   *fakeTopics
	tx       *fakeTx
	embedder *fakeEmbedder
	pipeline *Pipeline
}

func newPipelineFixture(embeddings bool) *pipelineFixture {
	f := &pipelineFixture{
		docs:     newFakeDocs(),
		sections: &fakeSections{},
		lexical:  &fakeLexical{},
		vectors:  &fakeVectors{},
		tags:     &fakeTags{},
		topics:   &fakeTopics{},
		tx:       &fakeTx{},
		embedder: &fakeEmbedder{dims: 4},
	}
	f.pipeline = NewPipeline(Deps{
		Embedder:           f.embedder,
		Documents:          f.docs,
		Sections:           f.sections,
		Lexical:            f.lexical,
		Vectors:            f.vectors,
		Tags:               f.tags,
		Topics:             f.topics,
		Tx:                 f.tx,
		GenerateEmbeddings: embeddings,
	})
	return f
}

const sampleDoc = "# Relativity\n\nAn overview of the theory.\n\n## Special\n\n" +
	"Special relativity describes motion near light speed.\n\n## General\n\n" +
	"General relativity describes gravity as curved spacetime.\n"

func TestIngestHappyPath(t *testing.T) {
	f := newPipelineFixture(true)

	report, err := f.pipeline.Ingest(context.Background(), Request{
		Source:  "https://example.org/relativity.md",
		Content: sampleDoc,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, report.JobID)
	assert.Equal(t, int64(1), report.DocumentID)
	assert.Equal(t, "Relativity", report.Title)
	assert.Equal(t, "en", report.Language)
	assert.Equal(t, 2, report.Sections)
	assert.Equal(t, 2, report.Embedded)

	assert.Equal(t, store.StateCompleted, f.docs.states[1])
	assert.Equal(t, 1, f.tx.calls)
	assert.Len(t, f.sections.inserted, 2)
	assert.Equal(t, "Special", f.sections.inserted[0].Title)
	assert.Equal(t, []int64{1, 2}, f.lexical.updates)
	assert.Equal(t, "english", f.lexical.config)
	require.Len(t, f.vectors.rows, 2)
	assert.Equal(t, int64(1), f.vectors.rows[0].SectionID)
}

func TestIngestWithoutEmbeddings(t *testing.T) {
	f := newPipelineFixture(false)

	report, err := f.pipeline.Ingest(context.Background(), Request{
		Source:  "file.md",
		Content: sampleDoc,
	})
	require.NoError(t, err)

	assert.Zero(t, report.Embedded)
	assert.Zero(t, f.embedder.calls)
	assert.Empty(t, f.vectors.rows)
	// Lexical indexing still runs.
	assert.Len(t, f.lexical.updates, 2)
}

func TestIngestEmbedFailureMarksFailed(t *testing.T) {
	f := newPipelineFixture(true)
	f.embedder.err = verr.Embedding("embedding failed after 3 attempts", assert.AnError)

	_, err := f.pipeline.Ingest(context.Background(), Request{
		Source:  "doc.md",
		Content: sampleDoc,
	})
	require.Error(t, err)
	assert.Equal(t, store.StateFailed, f.docs.states[1])
	assert.Zero(t, f.tx.calls)
}

func TestIngestLexicalFailureRollsBack(t *testing.T) {
	f := newPipelineFixture(true)
	f.lexical.err = verr.Database(assert.AnError)

	_, err := f.pipeline.Ingest(context.Background(), Request{
		Source:  "doc.md",
		Content: sampleDoc,
	})
	require.Error(t, err)
	assert.Equal(t, verr.ErrCodeDocumentProcessing, verr.GetCode(err))
	assert.Equal(t, store.StateFailed, f.docs.states[1])
}

func TestIngestLinksTagsAndTopic(t *testing.T) {
	f := newPipelineFixture(false)

	_, err := f.pipeline.Ingest(context.Background(), Request{
		Source:  "doc.md",
		Content: sampleDoc,
		Tags:    []string{"physics", "relativity"},
		TopicID: 9,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"physics", "relativity"}, f.tags.created)
	assert.Equal(t, []int64{1, 2}, f.tags.links[1])
	assert.Equal(t, [][2]int64{{9, 1}}, f.topics.linked)
}

func TestIngestDetectsChineseLanguage(t *testing.T) {
	f := newPipelineFixture(false)

	report, err := f.pipeline.Ingest(context.Background(), Request{
		Source:  "zh.md",
		Content: "# 相对论\n\n这是关于相对论的中文介绍文档，包含基本概念。\n",
	})
	require.NoError(t, err)
	assert.Equal(t, "zh", report.Language)
	assert.Equal(t, "zh", f.lexical.language)
	assert.Equal(t, "jieba", f.lexical.config)
}

func TestIngestNormalizesLanguageOverride(t *testing.T) {
	f := newPipelineFixture(false)

	report, err := f.pipeline.Ingest(context.Background(), Request{
		Source:   "doc.md",
		Content:  sampleDoc,
		Language: "zh-CN",
	})
	require.NoError(t, err)
	assert.Equal(t, "zh_cn", report.Language)
	assert.Equal(t, "zh_cn", f.lexical.language)
}

func TestIngestRejectsBadLanguageOverride(t *testing.T) {
	f := newPipelineFixture(false)

	_, err := f.pipeline.Ingest(context.Background(), Request{
		Source:   "doc.md",
		Content:  sampleDoc,
		Language: "not a language code",
	})
	require.Error(t, err)
	assert.Equal(t, verr.ErrCodeInvalidInput, verr.GetCode(err))
	assert.True(t, verr.IsValidation(err))
	// Rejected before any document row is written.
	assert.Empty(t, f.docs.states)
	assert.Zero(t, f.tx.calls)
}

func TestIngestTitleFallsBackToSource(t *testing.T) {
	f := newPipelineFixture(false)

	report, err := f.pipeline.Ingest(context.Background(), Request{
		Source:  "/data/field_notes-2024.md",
		Content: strings.Repeat("Plain text with no headings. ", 4),
	})
	require.NoError(t, err)
	assert.Equal(t, "field notes 2024", report.Title)
}

func TestIngestExplicitTitleWins(t *testing.T) {
	f := newPipelineFixture(false)

	report, err := f.pipeline.Ingest(context.Background(), Request{
		Source:  "doc.md",
		Content: sampleDoc,
		Title:   "Chosen Title",
	})
	require.NoError(t, err)
	assert.Equal(t, "Chosen Title", report.Title)
	assert.Equal(t, "Chosen Title", f.docs.last.Title)
}

func TestIngestBatchCollectsErrors(t *testing.T) {
	f := newPipelineFixture(true)

	reqs := []Request{
		{Source: "a.md", Content: sampleDoc},
		{Source: "missing/nonexistent-file.md"},
		{Source: "c.md", Content: sampleDoc},
	}
	result := f.pipeline.IngestBatch(context.Background(), reqs, 1)

	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, result.Reports, 2)
	require.Contains(t, result.Errors, "missing/nonexistent-file.md")
	assert.Equal(t, verr.ErrCodeDocumentProcessing, verr.GetCode(result.Errors["missing/nonexistent-file.md"]))
}
