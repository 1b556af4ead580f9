package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	verr "github.com/vellumsearch/vellum/internal/errors"
)

// VectorRepo persists and searches section embeddings with cosine ANN.
type VectorRepo struct {
	pool       *pgxpool.Pool
	dimensions int
}

// NewVectorRepo creates the vector index repository with the default
// dimension; SetDimensions overrides it at startup.
func NewVectorRepo(pool *pgxpool.Pool) *VectorRepo {
	return &VectorRepo{pool: pool, dimensions: 1024}
}

// SetDimensions fixes the expected vector dimension D.
func (r *VectorRepo) SetDimensions(d int) {
	if d > 0 {
		r.dimensions = d
	}
}

// Dimensions returns the expected vector dimension.
func (r *VectorRepo) Dimensions() int {
	return r.dimensions
}

// SectionVector pairs a section id with its embedding for insertion.
type SectionVector struct {
	SectionID int64
	Vector    []float32
}

// InsertBatch writes one embedding row per section. Every vector is
// dimension-checked before any row is written.
func (r *VectorRepo) InsertBatch(ctx context.Context, vectors []SectionVector) error {
	if len(vectors) == 0 {
		return nil
	}
	for _, v := range vectors {
		if len(v.Vector) != r.dimensions {
			return verr.Newf(verr.ErrCodeDimensionMismatch,
				"vector for section %d has %d dimensions, expected %d",
				v.SectionID, len(v.Vector), r.dimensions)
		}
	}

	batch := &pgx.Batch{}
	for _, v := range vectors {
		batch.Queue(`
			INSERT INTO embeddings (section_id, vector)
			VALUES ($1, $2)
			ON CONFLICT (section_id) DO UPDATE SET vector = EXCLUDED.vector`,
			v.SectionID, pgvector.NewVector(v.Vector))
	}

	results := executor(ctx, r.pool).SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for range vectors {
		if _, err := results.Exec(); err != nil {
			return verr.Database(err)
		}
	}
	return nil
}

// Search runs the vector channel: rows ordered by ascending cosine
// distance, with threshold applied as distance < 1 - threshold. Section
// and document joins ride along so the orchestrator gets metadata without
// a second round trip.
func (r *VectorRepo) Search(ctx context.Context, queryVector []float32, limit int, threshold float64, filters *Filters) ([]VectorHit, error) {
	if len(queryVector) != r.dimensions {
		return nil, verr.Newf(verr.ErrCodeDimensionMismatch,
			"query vector has %d dimensions, expected %d", len(queryVector), r.dimensions)
	}
	if limit <= 0 {
		return nil, verr.Validation("limit must be positive")
	}
	if threshold < 0 || threshold > 1 {
		return nil, verr.Validation("threshold must be in [0,1]")
	}

	filterSQL, filterArgs := buildFilterSQL(filters, 4)
	sql := fmt.Sprintf(`
		SELECT s.id, s.document_id, COALESCE(s.title, ''),
			(e.vector <=> $1)::float8 AS distance
		FROM embeddings e
		JOIN sections s ON s.id = e.section_id
		JOIN documents d ON d.id = s.document_id
		WHERE (e.vector <=> $1) < $3%s
		ORDER BY e.vector <=> $1 ASC, s.id ASC
		LIMIT $2`, filterSQL)

	args := append([]any{pgvector.NewVector(queryVector), limit, 1 - threshold}, filterArgs...)
	rows, err := executor(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, verr.Database(err)
	}
	defer rows.Close()

	var hits []VectorHit
	for rows.Next() {
		var h VectorHit
		if err := rows.Scan(&h.SectionID, &h.DocumentID, &h.Title, &h.Distance); err != nil {
			return nil, verr.Database(err)
		}
		h.Similarity = 1 - h.Distance
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, verr.Database(err)
	}
	return hits, nil
}

// DeleteBySection removes one section's embedding.
func (r *VectorRepo) DeleteBySection(ctx context.Context, sectionID int64) error {
	if _, err := executor(ctx, r.pool).Exec(ctx,
		`DELETE FROM embeddings WHERE section_id = $1`, sectionID); err != nil {
		return verr.Database(err)
	}
	return nil
}

// DeleteOlderThan removes embeddings created more than the given number
// of days ago.
func (r *VectorRepo) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, verr.Validation("days must be positive")
	}
	tag, err := executor(ctx, r.pool).Exec(ctx,
		`DELETE FROM embeddings WHERE created_at < now() - make_interval(days => $1)`, days)
	if err != nil {
		return 0, verr.Database(err)
	}
	return tag.RowsAffected(), nil
}

// CleanupOrphaned deletes embeddings whose section no longer exists.
func (r *VectorRepo) CleanupOrphaned(ctx context.Context) (int64, error) {
	tag, err := executor(ctx, r.pool).Exec(ctx, `
		DELETE FROM embeddings e
		WHERE NOT EXISTS (SELECT 1 FROM sections s WHERE s.id = e.section_id)`)
	if err != nil {
		return 0, verr.Database(err)
	}
	return tag.RowsAffected(), nil
}
