package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	verr "github.com/vellumsearch/vellum/internal/errors"
	"github.com/vellumsearch/vellum/internal/lang"
)

// LangConfigRepo persists tokenizer dispatch rows. It satisfies
// lang.ConfigStore so the registry can warm from and write back to the
// store.
type LangConfigRepo struct {
	pool *pgxpool.Pool
}

var _ lang.ConfigStore = (*LangConfigRepo)(nil)

// NewLangConfigRepo creates a language config repository.
func NewLangConfigRepo(pool *pgxpool.Pool) *LangConfigRepo {
	return &LangConfigRepo{pool: pool}
}

// ListConfigs returns every persisted row.
func (r *LangConfigRepo) ListConfigs(ctx context.Context) ([]lang.Config, error) {
	rows, err := executor(ctx, r.pool).Query(ctx,
		`SELECT code, config_name, installed FROM language_configs ORDER BY code ASC`)
	if err != nil {
		return nil, verr.Database(err)
	}
	defer rows.Close()

	var configs []lang.Config
	for rows.Next() {
		var c lang.Config
		if err := rows.Scan(&c.Code, &c.ConfigName, &c.Installed); err != nil {
			return nil, verr.Database(err)
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, verr.Database(err)
	}
	return configs, nil
}

// UpsertConfig writes one dispatch row.
func (r *LangConfigRepo) UpsertConfig(ctx context.Context, cfg lang.Config) error {
	_, err := executor(ctx, r.pool).Exec(ctx, `
		INSERT INTO language_configs (code, config_name, installed)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET
			config_name = EXCLUDED.config_name,
			installed = EXCLUDED.installed`,
		cfg.Code, cfg.ConfigName, cfg.Installed)
	if err != nil {
		return verr.Database(err)
	}
	return nil
}

// DeleteConfig removes one dispatch row.
func (r *LangConfigRepo) DeleteConfig(ctx context.Context, code string) error {
	_, err := executor(ctx, r.pool).Exec(ctx,
		`DELETE FROM language_configs WHERE code = $1`, code)
	if err != nil {
		return verr.Database(err)
	}
	return nil
}
