package search

import "time"

// Result is one fused hit.
type Result struct {
	SectionID    int64
	Score        float64
	Rank         int // 1-based position in the final list
	VectorRank   int // 1-based rank in the vector channel, 0 when absent
	TextRank     int // 1-based rank in the full-text channel, 0 when absent
	Highlight    string
	SectionTitle string
	DocumentID   int64
	Content      string        // set when IncludeContent
	Document     *DocumentMeta // set when IncludeMetadata
}

// DocumentMeta is the document detail attached when IncludeMetadata.
type DocumentMeta struct {
	ID              int64
	Title           string
	Author          string
	PublicationDate *time.Time
	Metadata        map[string]any
}

// Metadata summarizes one search execution.
type Metadata struct {
	TotalCount        int
	ExecutionTimeMS   int
	Language          string
	Alpha             float64
	TextResultCount   int
	VectorResultCount int
	Error             string // set when a channel degraded
}

// Response is the full answer to one search.
type Response struct {
	Query    string
	Results  []Result
	Answer   string // set when Options.Answer and the summarizer succeeded
	Metadata Metadata
}
