package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	verr "github.com/vellumsearch/vellum/internal/errors"
)

// SectionRepo persists sections.
type SectionRepo struct {
	pool *pgxpool.Pool
}

// NewSectionRepo creates a section repository.
func NewSectionRepo(pool *pgxpool.Pool) *SectionRepo {
	return &SectionRepo{pool: pool}
}

// NewSection is the insert shape for one chunk.
type NewSection struct {
	Title   string
	Content string
}

// ReplaceForDocument deletes the document's current section set and
// inserts the new one in order, returning the inserted rows with their
// ids. Callers run it inside a transaction so readers see either the old
// set or the new set, never a mix. The cascades remove embedding and
// lexical rows with the old sections.
func (r *SectionRepo) ReplaceForDocument(ctx context.Context, documentID int64, sections []NewSection) ([]Section, error) {
	ex := executor(ctx, r.pool)

	if _, err := ex.Exec(ctx, `DELETE FROM sections WHERE document_id = $1`, documentID); err != nil {
		return nil, verr.Database(err)
	}
	if len(sections) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	for i, sec := range sections {
		batch.Queue(`
			INSERT INTO sections (document_id, section_number, title, content)
			VALUES ($1, $2, NULLIF($3, ''), $4)
			RETURNING id, document_id, section_number, COALESCE(title, ''), content, created_at, updated_at`,
			documentID, i, sec.Title, sec.Content)
	}

	results := ex.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	out := make([]Section, 0, len(sections))
	for range sections {
		var s Section
		err := results.QueryRow().Scan(&s.ID, &s.DocumentID, &s.SectionNumber,
			&s.Title, &s.Content, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, verr.Database(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// GetByID fetches one section.
func (r *SectionRepo) GetByID(ctx context.Context, id int64) (*Section, error) {
	var s Section
	err := executor(ctx, r.pool).QueryRow(ctx, `
		SELECT id, document_id, section_number, COALESCE(title, ''), content, created_at, updated_at
		FROM sections WHERE id = $1`, id).
		Scan(&s.ID, &s.DocumentID, &s.SectionNumber, &s.Title, &s.Content, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, verr.NotFound("section", id)
	}
	if err != nil {
		return nil, verr.Database(err)
	}
	return &s, nil
}

// ListByDocument returns a document's sections in order.
func (r *SectionRepo) ListByDocument(ctx context.Context, documentID int64) ([]Section, error) {
	rows, err := executor(ctx, r.pool).Query(ctx, `
		SELECT id, document_id, section_number, COALESCE(title, ''), content, created_at, updated_at
		FROM sections WHERE document_id = $1 ORDER BY section_number ASC`, documentID)
	if err != nil {
		return nil, verr.Database(err)
	}
	defer rows.Close()

	var out []Section
	for rows.Next() {
		var s Section
		if err := rows.Scan(&s.ID, &s.DocumentID, &s.SectionNumber, &s.Title,
			&s.Content, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, verr.Database(err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, verr.Database(err)
	}
	return out, nil
}

// GetMany fetches sections by id, keyed by id. Missing ids are simply
// absent from the map.
func (r *SectionRepo) GetMany(ctx context.Context, ids []int64) (map[int64]Section, error) {
	if len(ids) == 0 {
		return map[int64]Section{}, nil
	}
	rows, err := executor(ctx, r.pool).Query(ctx, `
		SELECT id, document_id, section_number, COALESCE(title, ''), content, created_at, updated_at
		FROM sections WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, verr.Database(err)
	}
	defer rows.Close()

	out := make(map[int64]Section, len(ids))
	for rows.Next() {
		var s Section
		if err := rows.Scan(&s.ID, &s.DocumentID, &s.SectionNumber, &s.Title,
			&s.Content, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, verr.Database(err)
		}
		out[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, verr.Database(err)
	}
	return out, nil
}

// CountByDocument returns the section count for one document.
func (r *SectionRepo) CountByDocument(ctx context.Context, documentID int64) (int64, error) {
	var n int64
	err := executor(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM sections WHERE document_id = $1`, documentID).Scan(&n)
	if err != nil {
		return 0, verr.Database(err)
	}
	return n, nil
}
