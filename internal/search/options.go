// Package search is the retrieval orchestrator: it runs the vector and
// full-text channels in parallel, fuses their rankings with Reciprocal
// Rank Fusion, and shapes the final response.
package search

import (
	"github.com/vellumsearch/vellum/internal/store"
)

// SearchType selects the channels to run.
type SearchType string

const (
	TypeVector   SearchType = "vector"
	TypeFulltext SearchType = "fulltext"
	TypeHybrid   SearchType = "hybrid"
)

// Valid reports whether the search type is one of the three modes.
func (t SearchType) Valid() bool {
	switch t {
	case TypeVector, TypeFulltext, TypeHybrid:
		return true
	}
	return false
}

const (
	// DefaultLimit is the final result count when unspecified.
	DefaultLimit = 10
	// MaxLimit caps the final result count.
	MaxLimit = 100
	// DefaultAlpha is the vector-channel weight.
	DefaultAlpha = 0.7
	// DefaultRRFK is the rank dampening constant.
	DefaultRRFK = 60
	// poolQuantum sizes retrieval pools in multiples of 64.
	poolQuantum = 64
)

// Options configures one search. Zero values mean defaults.
type Options struct {
	SearchType      SearchType
	Limit           int
	Alpha           float64
	RRFK            int
	Language        string // override; empty means auto-detect
	Filters         *store.Filters
	IncludeContent  bool
	IncludeMetadata bool
	Page            int
	PerPage         int
	Threshold       float64 // minimum vector similarity in [0,1]
	Answer          bool    // phrase an answer over the top hits
}

// DefaultOptions returns the documented defaults. Callers adjust fields
// and the engine clamps whatever is out of range.
func DefaultOptions() Options {
	return Options{
		SearchType: TypeHybrid,
		Limit:      DefaultLimit,
		Alpha:      DefaultAlpha,
		RRFK:       DefaultRRFK,
		Page:       1,
	}
}

// normalize clamps out-of-range values in place. An explicit alpha of 0
// or 1 is honored; only missing values fall back to defaults.
func (o *Options) normalize() {
	if o.SearchType == "" {
		o.SearchType = TypeHybrid
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if o.Alpha < 0 {
		o.Alpha = 0
	}
	if o.Alpha > 1 {
		o.Alpha = 1
	}
	if o.RRFK <= 0 {
		o.RRFK = DefaultRRFK
	}
	if o.Page <= 0 {
		o.Page = 1
	}
	if o.PerPage <= 0 {
		o.PerPage = o.Limit
	}
	if o.Threshold < 0 {
		o.Threshold = 0
	}
	if o.Threshold > 1 {
		o.Threshold = 1
	}
}

// retrievalPool sizes each channel's candidate pool: at least 64, rounded
// up to the next multiple of 64 covering the limit.
func retrievalPool(limit int) int {
	if limit <= poolQuantum {
		return poolQuantum
	}
	blocks := (limit + poolQuantum - 1) / poolQuantum
	return poolQuantum * blocks
}
