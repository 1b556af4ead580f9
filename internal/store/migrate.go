package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	verr "github.com/vellumsearch/vellum/internal/errors"
	"github.com/vellumsearch/vellum/internal/lang"
)

// migration is one forward-only schema step. Statements are idempotent so
// a partially applied step can be re-run safely.
type migration struct {
	version    int
	name       string
	statements []string
}

// migrations builds the schema for the configured embedding dimension.
func migrations(dimensions int) []migration {
	return []migration{
		{
			version: 1,
			name:    "core tables",
			statements: []string{
				`CREATE EXTENSION IF NOT EXISTS vector`,
				`CREATE TABLE IF NOT EXISTS documents (
					id BIGSERIAL PRIMARY KEY,
					title TEXT NOT NULL DEFAULT '',
					url TEXT UNIQUE,
					author TEXT,
					publication_date DATE,
					language VARCHAR(2) NOT NULL DEFAULT 'en',
					description TEXT,
					download_state SMALLINT NOT NULL DEFAULT 0,
					metadata JSONB NOT NULL DEFAULT '{}',
					created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
				)`,
				`CREATE INDEX IF NOT EXISTS idx_documents_language ON documents (language)`,
				`CREATE INDEX IF NOT EXISTS idx_documents_download_state ON documents (download_state)`,
				`CREATE TABLE IF NOT EXISTS sections (
					id BIGSERIAL PRIMARY KEY,
					document_id BIGINT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
					section_number INTEGER NOT NULL CHECK (section_number >= 0),
					title VARCHAR(500),
					content TEXT NOT NULL CHECK (content <> ''),
					created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
				)`,
				`CREATE INDEX IF NOT EXISTS idx_sections_document_id ON sections (document_id)`,
				`CREATE INDEX IF NOT EXISTS idx_sections_section_number ON sections (section_number)`,
			},
		},
		{
			version: 2,
			name:    "embeddings",
			statements: []string{
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS embeddings (
					id BIGSERIAL PRIMARY KEY,
					section_id BIGINT NOT NULL UNIQUE REFERENCES sections(id) ON DELETE CASCADE,
					vector vector(%d) NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT now()
				)`, dimensions),
				`CREATE INDEX IF NOT EXISTS idx_embeddings_vector
					ON embeddings USING ivfflat (vector vector_cosine_ops) WITH (lists = 100)`,
			},
		},
		{
			version: 3,
			name:    "lexical vectors",
			statements: append([]string{
				`CREATE TABLE IF NOT EXISTS lexical_vectors (
					section_id BIGINT PRIMARY KEY REFERENCES sections(id) ON DELETE CASCADE,
					language VARCHAR(2) NOT NULL DEFAULT 'en',
					title_vec TSVECTOR,
					content_vec TSVECTOR,
					combined_vec TSVECTOR,
					updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
				)`,
				`CREATE INDEX IF NOT EXISTS idx_lexical_combined
					ON lexical_vectors USING gin (combined_vec)`,
			}, partialLexicalIndexes()...),
		},
		{
			version: 4,
			name:    "tags and topics",
			statements: []string{
				`CREATE TABLE IF NOT EXISTS tags (
					id BIGSERIAL PRIMARY KEY,
					name TEXT NOT NULL UNIQUE,
					parent_id BIGINT REFERENCES tags(id) ON DELETE SET NULL
				)`,
				`CREATE TABLE IF NOT EXISTS section_tags (
					section_id BIGINT NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
					tag_id BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
					PRIMARY KEY (section_id, tag_id)
				)`,
				`CREATE TABLE IF NOT EXISTS research_topics (
					id BIGSERIAL PRIMARY KEY,
					name TEXT NOT NULL UNIQUE,
					description TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL DEFAULT now()
				)`,
				`CREATE TABLE IF NOT EXISTS research_topic_sections (
					topic_id BIGINT NOT NULL REFERENCES research_topics(id) ON DELETE CASCADE,
					section_id BIGINT NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
					PRIMARY KEY (topic_id, section_id)
				)`,
				`CREATE TABLE IF NOT EXISTS research_topic_tags (
					topic_id BIGINT NOT NULL REFERENCES research_topics(id) ON DELETE CASCADE,
					tag_id BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
					PRIMARY KEY (topic_id, tag_id)
				)`,
			},
		},
		{
			version: 5,
			name:    "language configs",
			statements: []string{
				`CREATE TABLE IF NOT EXISTS language_configs (
					code VARCHAR(10) PRIMARY KEY,
					config_name TEXT NOT NULL,
					installed BOOLEAN NOT NULL DEFAULT true
				)`,
			},
		},
		{
			version: 6,
			name:    "search logs",
			statements: []string{
				fmt.Sprintf(`CREATE TABLE IF NOT EXISTS search_logs (
					id BIGSERIAL PRIMARY KEY,
					query TEXT NOT NULL,
					search_type VARCHAR(10) NOT NULL,
					language VARCHAR(2) NOT NULL DEFAULT 'en',
					execution_time_ms INTEGER NOT NULL DEFAULT 0,
					results_count INTEGER NOT NULL DEFAULT 0,
					query_vector vector(%d),
					section_ids BIGINT[],
					filters JSONB,
					created_at TIMESTAMPTZ NOT NULL DEFAULT now()
				)`, dimensions),
				`CREATE INDEX IF NOT EXISTS idx_search_logs_created_at ON search_logs (created_at)`,
			},
		},
		{
			version: 7,
			name:    "widen language codes",
			statements: []string{
				`ALTER TABLE documents ALTER COLUMN language TYPE VARCHAR(10)`,
				`ALTER TABLE lexical_vectors ALTER COLUMN language TYPE VARCHAR(10)`,
				`ALTER TABLE search_logs ALTER COLUMN language TYPE VARCHAR(10)`,
			},
		},
	}
}

// partialLexicalIndexes narrows the inverted index per common language so
// the planner can skip foreign-language rows entirely.
func partialLexicalIndexes() []string {
	langs := []string{"en", "zh", "ja", "es", "fr", "de"}
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		out = append(out, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_lexical_combined_%s
				ON lexical_vectors USING gin (combined_vec) WHERE language = '%s'`, l, l))
	}
	return out
}

// Migrate applies pending migrations in order, each inside its own
// transaction, recording applied versions in the ledger. It finishes by
// seeding language_configs rows that are not yet present.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dimensions int) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return verr.New(verr.ErrCodeMigration, "creating migrations ledger", err)
	}

	applied := make(map[int]bool)
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return verr.New(verr.ErrCodeMigration, "reading migrations ledger", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return verr.New(verr.ErrCodeMigration, "scanning migrations ledger", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return verr.New(verr.ErrCodeMigration, "reading migrations ledger", err)
	}

	tm := NewTxManager(pool)
	for _, m := range migrations(dimensions) {
		if applied[m.version] {
			continue
		}
		err := tm.RunInTx(ctx, func(ctx context.Context) error {
			tx := ExtractTx(ctx)
			for _, stmt := range m.statements {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
				}
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version) VALUES ($1)`, m.version)
			return err
		})
		if err != nil {
			return verr.New(verr.ErrCodeMigration, "applying migration", err)
		}
		slog.Info("applied migration", slog.Int("version", m.version), slog.String("name", m.name))
	}

	return seedLanguageConfigs(ctx, pool)
}

// seedLanguageConfigs installs the default tokenizer dispatch rows without
// touching rows an operator has customized.
func seedLanguageConfigs(ctx context.Context, pool *pgxpool.Pool) error {
	for _, cfg := range lang.Seed() {
		_, err := pool.Exec(ctx,
			`INSERT INTO language_configs (code, config_name, installed)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (code) DO NOTHING`,
			cfg.Code, cfg.ConfigName, cfg.Installed)
		if err != nil {
			return verr.New(verr.ErrCodeMigration, "seeding language configs", err)
		}
	}
	return nil
}
