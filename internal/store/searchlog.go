package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	verr "github.com/vellumsearch/vellum/internal/errors"
)

// SimilarQueryMaxDistance bounds the cosine distance for the
// similar-queries view.
const SimilarQueryMaxDistance = 0.3

// SearchLogRepo records one row per externally observed query and
// exposes the read views over them. Writes are best-effort at the caller.
type SearchLogRepo struct {
	pool *pgxpool.Pool
}

// NewSearchLogRepo creates a search log repository.
func NewSearchLogRepo(pool *pgxpool.Pool) *SearchLogRepo {
	return &SearchLogRepo{pool: pool}
}

// Insert writes one log row. Query vector and section ids are optional.
func (r *SearchLogRepo) Insert(ctx context.Context, entry *SearchLog) error {
	var qv *pgvector.Vector
	if len(entry.QueryVector) > 0 {
		v := pgvector.NewVector(entry.QueryVector)
		qv = &v
	}

	language := entry.Language
	if language == "" {
		language = "en"
	}
	_, err := executor(ctx, r.pool).Exec(ctx, `
		INSERT INTO search_logs (query, search_type, language, execution_time_ms, results_count, query_vector, section_ids, filters)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.Query, entry.SearchType, language, entry.ExecutionTimeMS, entry.ResultsCount,
		qv, entry.SectionIDs, entry.Filters)
	if err != nil {
		return verr.Database(err)
	}
	return nil
}

const searchLogColumns = `id, query, search_type, language, execution_time_ms, results_count,
	section_ids, filters, created_at`

func (r *SearchLogRepo) scanLogs(ctx context.Context, sql string, args ...any) ([]SearchLog, error) {
	rows, err := executor(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, verr.Database(err)
	}
	defer rows.Close()

	var logs []SearchLog
	for rows.Next() {
		var l SearchLog
		if err := rows.Scan(&l.ID, &l.Query, &l.SearchType, &l.Language, &l.ExecutionTimeMS,
			&l.ResultsCount, &l.SectionIDs, &l.Filters, &l.CreatedAt); err != nil {
			return nil, verr.Database(err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, verr.Database(err)
	}
	return logs, nil
}

// Recent returns the most recent N log rows.
func (r *SearchLogRepo) Recent(ctx context.Context, limit int) ([]SearchLog, error) {
	if limit <= 0 {
		limit = 20
	}
	return r.scanLogs(ctx,
		`SELECT `+searchLogColumns+` FROM search_logs ORDER BY created_at DESC LIMIT $1`, limit)
}

// ByType returns recent log rows of one search type.
func (r *SearchLogRepo) ByType(ctx context.Context, searchType string, limit int) ([]SearchLog, error) {
	if limit <= 0 {
		limit = 20
	}
	return r.scanLogs(ctx,
		`SELECT `+searchLogColumns+` FROM search_logs
		 WHERE search_type = $1 ORDER BY created_at DESC LIMIT $2`,
		searchType, limit)
}

// PopularQuery is one query with its occurrence count.
type PopularQuery struct {
	Query string
	Count int64
}

// Popular returns the most frequent queries over the last 24 hours.
func (r *SearchLogRepo) Popular(ctx context.Context, limit int) ([]PopularQuery, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := executor(ctx, r.pool).Query(ctx, `
		SELECT query, COUNT(*) AS n FROM search_logs
		WHERE created_at >= now() - interval '24 hours'
		GROUP BY query
		ORDER BY n DESC, query ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, verr.Database(err)
	}
	defer rows.Close()

	var out []PopularQuery
	for rows.Next() {
		var p PopularQuery
		if err := rows.Scan(&p.Query, &p.Count); err != nil {
			return nil, verr.Database(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, verr.Database(err)
	}
	return out, nil
}

// AvgExecTimeByType returns the average execution time in milliseconds
// per search type.
func (r *SearchLogRepo) AvgExecTimeByType(ctx context.Context) (map[string]float64, error) {
	rows, err := executor(ctx, r.pool).Query(ctx, `
		SELECT search_type, AVG(execution_time_ms)::float8
		FROM search_logs GROUP BY search_type`)
	if err != nil {
		return nil, verr.Database(err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var t string
		var avg float64
		if err := rows.Scan(&t, &avg); err != nil {
			return nil, verr.Database(err)
		}
		out[t] = avg
	}
	if err := rows.Err(); err != nil {
		return nil, verr.Database(err)
	}
	return out, nil
}

// SimilarByVector finds past queries whose stored vector lies within
// SimilarQueryMaxDistance of the given one.
func (r *SearchLogRepo) SimilarByVector(ctx context.Context, vec []float32, limit int) ([]SearchLog, error) {
	if len(vec) == 0 {
		return nil, verr.Validation("query vector must not be empty")
	}
	if limit <= 0 {
		limit = 10
	}
	qv := pgvector.NewVector(vec)
	return r.scanLogs(ctx, `
		SELECT `+searchLogColumns+` FROM search_logs
		WHERE query_vector IS NOT NULL AND (query_vector <=> $1) < $3
		ORDER BY query_vector <=> $1 ASC
		LIMIT $2`, qv, limit, SimilarQueryMaxDistance)
}

// PruneOlderThan removes log rows older than the given duration,
// returning the number deleted.
func (r *SearchLogRepo) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	tag, err := executor(ctx, r.pool).Exec(ctx,
		`DELETE FROM search_logs WHERE created_at < now() - make_interval(secs => $1)`, age.Seconds())
	if err != nil {
		return 0, verr.Database(err)
	}
	return tag.RowsAffected(), nil
}
