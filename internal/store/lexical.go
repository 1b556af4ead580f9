package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	verr "github.com/vellumsearch/vellum/internal/errors"
	"github.com/vellumsearch/vellum/internal/lang"
)

// headlineOptions shapes the snippet returned with each full-text hit.
const headlineOptions = "MaxWords=35, MinWords=15, ShortWord=3, MaxFragments=2"

// LexicalRepo maintains and searches the full-text index. One row per
// section: title tokens at weight A, content tokens at weight B, and their
// concatenation as the default search target.
type LexicalRepo struct {
	pool *pgxpool.Pool
}

// NewLexicalRepo creates the lexical index repository.
func NewLexicalRepo(pool *pgxpool.Pool) *LexicalRepo {
	return &LexicalRepo{pool: pool}
}

// Update recomputes the lexical row for one section from its stored title
// and content, tokenized with the named configuration. The upsert is
// atomic; a concurrent update of the same section simply overwrites.
func (r *LexicalRepo) Update(ctx context.Context, sectionID int64, language, configName string) error {
	if sectionID <= 0 {
		return verr.Validation("section id must be positive")
	}
	if !lang.ValidConfigName(configName) {
		return verr.Newf(verr.ErrCodeInvalidInput, "invalid tokenizer configuration %q", configName)
	}

	sql := fmt.Sprintf(`
		INSERT INTO lexical_vectors (section_id, language, title_vec, content_vec, combined_vec, updated_at)
		SELECT s.id, $2,
			setweight(to_tsvector('%[1]s', COALESCE(s.title, '')), 'A'),
			setweight(to_tsvector('%[1]s', s.content), 'B'),
			setweight(to_tsvector('%[1]s', COALESCE(s.title, '')), 'A') ||
				setweight(to_tsvector('%[1]s', s.content), 'B'),
			now()
		FROM sections s
		WHERE s.id = $1
		ON CONFLICT (section_id) DO UPDATE SET
			language = EXCLUDED.language,
			title_vec = EXCLUDED.title_vec,
			content_vec = EXCLUDED.content_vec,
			combined_vec = EXCLUDED.combined_vec,
			updated_at = EXCLUDED.updated_at`, configName)

	tag, err := executor(ctx, r.pool).Exec(ctx, sql, sectionID, language)
	if err != nil {
		return verr.Fulltext(err)
	}
	if tag.RowsAffected() == 0 {
		return verr.NotFound("section", sectionID)
	}
	return nil
}

// Search runs the full-text channel. queryExpr is a tsquery expression
// already emitted and escaped by the query package; configName names the
// tokenizer for snippet highlighting. Results are ranked by relevance
// descending with section id as the deterministic tie-break.
func (r *LexicalRepo) Search(ctx context.Context, queryExpr, language, configName string, limit int, filters *Filters) ([]LexicalHit, error) {
	if queryExpr == "" {
		return nil, verr.Validation("lexical query must not be empty")
	}
	if !lang.ValidConfigName(configName) {
		return nil, verr.Newf(verr.ErrCodeInvalidInput, "invalid tokenizer configuration %q", configName)
	}
	if limit <= 0 {
		return nil, verr.Validation("limit must be positive")
	}

	filterSQL, filterArgs := buildFilterSQL(filters, 3)
	sql := fmt.Sprintf(`
		WITH q AS (SELECT (%s) AS tsq)
		SELECT s.id, lv.language,
			ts_rank(lv.combined_vec, q.tsq)::float8 AS rank,
			ts_headline('%s', s.content, q.tsq, '%s')
		FROM q
		JOIN lexical_vectors lv ON lv.combined_vec @@ q.tsq
		JOIN sections s ON s.id = lv.section_id
		JOIN documents d ON d.id = s.document_id
		WHERE lv.language = $1%s
		ORDER BY rank DESC, s.id ASC
		LIMIT $2`, queryExpr, configName, headlineOptions, filterSQL)

	args := append([]any{language, limit}, filterArgs...)
	rows, err := executor(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, verr.Fulltext(err)
	}
	defer rows.Close()

	var hits []LexicalHit
	for rows.Next() {
		var h LexicalHit
		if err := rows.Scan(&h.SectionID, &h.Language, &h.RankScore, &h.Highlight); err != nil {
			return nil, verr.Fulltext(err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, verr.Fulltext(err)
	}
	return hits, nil
}

// RebuildForDocument recomputes every lexical row of a document, used
// when its language changes.
func (r *LexicalRepo) RebuildForDocument(ctx context.Context, documentID int64, language, configName string) error {
	if !lang.ValidConfigName(configName) {
		return verr.Newf(verr.ErrCodeInvalidInput, "invalid tokenizer configuration %q", configName)
	}

	sql := fmt.Sprintf(`
		INSERT INTO lexical_vectors (section_id, language, title_vec, content_vec, combined_vec, updated_at)
		SELECT s.id, $2,
			setweight(to_tsvector('%[1]s', COALESCE(s.title, '')), 'A'),
			setweight(to_tsvector('%[1]s', s.content), 'B'),
			setweight(to_tsvector('%[1]s', COALESCE(s.title, '')), 'A') ||
				setweight(to_tsvector('%[1]s', s.content), 'B'),
			now()
		FROM sections s
		WHERE s.document_id = $1
		ON CONFLICT (section_id) DO UPDATE SET
			language = EXCLUDED.language,
			title_vec = EXCLUDED.title_vec,
			content_vec = EXCLUDED.content_vec,
			combined_vec = EXCLUDED.combined_vec,
			updated_at = EXCLUDED.updated_at`, configName)

	if _, err := executor(ctx, r.pool).Exec(ctx, sql, documentID, language); err != nil {
		return verr.Fulltext(err)
	}
	return nil
}

// RemoveOrphaned deletes lexical rows whose section no longer exists.
// The cascade normally prevents orphans; this covers rows written by
// older schema versions or manual surgery.
func (r *LexicalRepo) RemoveOrphaned(ctx context.Context) (int64, error) {
	tag, err := executor(ctx, r.pool).Exec(ctx, `
		DELETE FROM lexical_vectors lv
		WHERE NOT EXISTS (SELECT 1 FROM sections s WHERE s.id = lv.section_id)`)
	if err != nil {
		return 0, verr.Fulltext(err)
	}
	return tag.RowsAffected(), nil
}
