package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	verr "github.com/vellumsearch/vellum/internal/errors"
)

// DocumentRepo persists documents.
type DocumentRepo struct {
	pool *pgxpool.Pool
}

// NewDocumentRepo creates a document repository.
func NewDocumentRepo(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

const documentColumns = `id, title, COALESCE(url, ''), COALESCE(author, ''),
	publication_date, language, COALESCE(description, ''), download_state,
	metadata, created_at, updated_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.Title, &d.URL, &d.Author, &d.PublicationDate,
		&d.Language, &d.Description, &d.DownloadState, &d.Metadata,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpsertByURL creates a document keyed by URL or refreshes the metadata
// of the existing row. The download state resets to pending.
func (r *DocumentRepo) UpsertByURL(ctx context.Context, doc *Document) (*Document, error) {
	row := executor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO documents (title, url, author, publication_date, language, description, download_state, metadata)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, NULLIF($6, ''), $7, COALESCE($8, '{}'::jsonb))
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			publication_date = EXCLUDED.publication_date,
			language = EXCLUDED.language,
			description = EXCLUDED.description,
			download_state = EXCLUDED.download_state,
			metadata = EXCLUDED.metadata,
			updated_at = now()
		RETURNING `+documentColumns,
		doc.Title, doc.URL, doc.Author, doc.PublicationDate, doc.Language,
		doc.Description, StatePending, doc.Metadata)

	out, err := scanDocument(row)
	if err != nil {
		return nil, verr.Database(err)
	}
	return out, nil
}

// GetByID fetches one document.
func (r *DocumentRepo) GetByID(ctx context.Context, id int64) (*Document, error) {
	row := executor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, verr.NotFound("document", id)
	}
	if err != nil {
		return nil, verr.Database(err)
	}
	return doc, nil
}

// GetByURL fetches one document by its source URL, or nil when absent.
func (r *DocumentRepo) GetByURL(ctx context.Context, url string) (*Document, error) {
	row := executor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE url = $1`, url)
	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, verr.Database(err)
	}
	return doc, nil
}

// GetMany fetches documents by id, keyed by id.
func (r *DocumentRepo) GetMany(ctx context.Context, ids []int64) (map[int64]Document, error) {
	if len(ids) == 0 {
		return map[int64]Document{}, nil
	}
	rows, err := executor(ctx, r.pool).Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, verr.Database(err)
	}
	defer rows.Close()

	out := make(map[int64]Document, len(ids))
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, verr.Database(err)
		}
		out[doc.ID] = *doc
	}
	if err := rows.Err(); err != nil {
		return nil, verr.Database(err)
	}
	return out, nil
}

// SetState transitions the download state.
func (r *DocumentRepo) SetState(ctx context.Context, id int64, state DownloadState) error {
	tag, err := executor(ctx, r.pool).Exec(ctx,
		`UPDATE documents SET download_state = $2, updated_at = now() WHERE id = $1`,
		id, state)
	if err != nil {
		return verr.Database(err)
	}
	if tag.RowsAffected() == 0 {
		return verr.NotFound("document", id)
	}
	return nil
}

// Delete removes a document; sections, embeddings, and lexical rows go
// with it through the cascades.
func (r *DocumentRepo) Delete(ctx context.Context, id int64) error {
	tag, err := executor(ctx, r.pool).Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return verr.Database(err)
	}
	if tag.RowsAffected() == 0 {
		return verr.NotFound("document", id)
	}
	return nil
}

// List returns documents newest first.
func (r *DocumentRepo) List(ctx context.Context, limit int) ([]*Document, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := executor(ctx, r.pool).Query(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, verr.Database(err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, verr.Database(err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, verr.Database(err)
	}
	return docs, nil
}

// Stats gathers corpus counts for the stats command.
func (r *DocumentRepo) Stats(ctx context.Context) (*Stats, error) {
	ex := executor(ctx, r.pool)
	stats := &Stats{
		DocumentsByState:    make(map[string]int64),
		DocumentsByLanguage: make(map[string]int64),
	}

	rows, err := ex.Query(ctx,
		`SELECT download_state, COUNT(*) FROM documents GROUP BY download_state`)
	if err != nil {
		return nil, verr.Database(err)
	}
	for rows.Next() {
		var state DownloadState
		var n int64
		if err := rows.Scan(&state, &n); err != nil {
			rows.Close()
			return nil, verr.Database(err)
		}
		stats.DocumentsByState[state.String()] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, verr.Database(err)
	}

	rows, err = ex.Query(ctx, `SELECT language, COUNT(*) FROM documents GROUP BY language`)
	if err != nil {
		return nil, verr.Database(err)
	}
	for rows.Next() {
		var lang string
		var n int64
		if err := rows.Scan(&lang, &n); err != nil {
			rows.Close()
			return nil, verr.Database(err)
		}
		stats.DocumentsByLanguage[lang] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, verr.Database(err)
	}

	counts := []struct {
		sql  string
		dest *int64
	}{
		{`SELECT COUNT(*) FROM sections`, &stats.Sections},
		{`SELECT COUNT(*) FROM embeddings`, &stats.Embeddings},
		{`SELECT COUNT(*) FROM lexical_vectors`, &stats.LexicalRows},
		{`SELECT COUNT(*) FROM tags`, &stats.Tags},
		{`SELECT COUNT(*) FROM research_topics`, &stats.Topics},
		{`SELECT COUNT(*) FROM search_logs`, &stats.SearchLogs},
	}
	for _, c := range counts {
		if err := ex.QueryRow(ctx, c.sql).Scan(c.dest); err != nil {
			return nil, verr.Database(err)
		}
	}
	return stats, nil
}
