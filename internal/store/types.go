package store

import "time"

// DownloadState tracks the ingestion lifecycle of a document.
type DownloadState int16

const (
	StatePending   DownloadState = 0
	StateCompleted DownloadState = 1
	StateFailed    DownloadState = 2
)

func (s DownloadState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Document is one ingested source.
type Document struct {
	ID              int64
	Title           string
	URL             string
	Author          string
	PublicationDate *time.Time
	Language        string
	Description     string
	DownloadState   DownloadState
	Metadata        map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Section is one retrieval unit of a document.
type Section struct {
	ID            int64
	DocumentID    int64
	SectionNumber int
	Title         string
	Content       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LexicalHit is one full-text channel result.
type LexicalHit struct {
	SectionID int64
	Language  string
	RankScore float64
	Highlight string
}

// VectorHit is one vector channel result. Distance is cosine distance;
// Similarity is 1 - distance.
type VectorHit struct {
	SectionID  int64
	DocumentID int64
	Title      string
	Similarity float64
	Distance   float64
}

// Tag is a free-form label; parent links form a forest.
type Tag struct {
	ID       int64
	Name     string
	ParentID *int64
}

// Topic is a user-defined grouping of sections and tags.
type Topic struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// SearchLog is one recorded query, successful or not.
type SearchLog struct {
	ID              int64
	Query           string
	SearchType      string
	Language        string
	ExecutionTimeMS int
	ResultsCount    int
	QueryVector     []float32
	SectionIDs      []int64
	Filters         map[string]any
	CreatedAt       time.Time
}

// Stats summarizes corpus state for the stats command.
type Stats struct {
	DocumentsByState    map[string]int64
	DocumentsByLanguage map[string]int64
	Sections            int64
	Embeddings          int64
	LexicalRows         int64
	Tags                int64
	Topics              int64
	SearchLogs          int64
}
