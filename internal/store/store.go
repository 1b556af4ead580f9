// Package store holds every adapter over the relational store: the pgx
// connection pool, the transaction manager, forward-only migrations, and
// the repositories for documents, sections, lexical and vector indexes,
// tags, topics, language configs, and search logs.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	verr "github.com/vellumsearch/vellum/internal/errors"
)

// PoolConfig holds tunable parameters for the connection pool.
type PoolConfig struct {
	MaxConns int
	MinConns int
}

// NewPool creates a pgx connection pool with pgvector types registered on
// every connection.
func NewPool(ctx context.Context, dsn string, opts ...PoolConfig) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, verr.New(verr.ErrCodeConfigInvalid, "parsing store DSN", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	if len(opts) > 0 {
		if opts[0].MaxConns > 0 {
			config.MaxConns = int32(opts[0].MaxConns)
		}
		if opts[0].MinConns > 0 {
			config.MinConns = int32(opts[0].MinConns)
		}
	}
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, verr.Database(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, verr.New(verr.ErrCodeStoreTransient, "store unreachable", err)
	}
	return pool, nil
}

// Store bundles the repositories sharing one pool.
type Store struct {
	Pool      *pgxpool.Pool
	Tx        *TxManager
	Documents *DocumentRepo
	Sections  *SectionRepo
	Lexical   *LexicalRepo
	Vectors   *VectorRepo
	Tags      *TagRepo
	Topics    *TopicRepo
	Logs      *SearchLogRepo
	Langs     *LangConfigRepo
}

// New wires the repositories over an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		Pool:      pool,
		Tx:        NewTxManager(pool),
		Documents: NewDocumentRepo(pool),
		Sections:  NewSectionRepo(pool),
		Lexical:   NewLexicalRepo(pool),
		Vectors:   NewVectorRepo(pool),
		Tags:      NewTagRepo(pool),
		Topics:    NewTopicRepo(pool),
		Logs:      NewSearchLogRepo(pool),
		Langs:     NewLangConfigRepo(pool),
	}
}

// Close releases the pool.
func (s *Store) Close() {
	s.Pool.Close()
}
