package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsAreOrdered(t *testing.T) {
	ms := migrations(1024)
	require.NotEmpty(t, ms)

	for i, m := range ms {
		assert.Equal(t, i+1, m.version, "versions must be dense and ascending")
		assert.NotEmpty(t, m.statements)
	}
}

func TestMigrationsCarryDimension(t *testing.T) {
	var ddl strings.Builder
	for _, m := range migrations(768) {
		for _, s := range m.statements {
			ddl.WriteString(s)
			ddl.WriteString("\n")
		}
	}
	all := ddl.String()

	assert.Contains(t, all, "vector(768)")
	assert.NotContains(t, all, "vector(1024)")
	assert.Contains(t, all, "ivfflat (vector vector_cosine_ops) WITH (lists = 100)")
	assert.Contains(t, all, "USING gin (combined_vec)")
}

func TestMigrationsAreIdempotentDDL(t *testing.T) {
	for _, m := range migrations(1024) {
		for _, s := range m.statements {
			trimmed := strings.TrimSpace(s)
			if strings.HasPrefix(trimmed, "CREATE") {
				assert.Contains(t, trimmed, "IF NOT EXISTS", "statement: %s", trimmed)
			}
		}
	}
}

func TestMigrationsWidenLanguageColumns(t *testing.T) {
	ms := migrations(1024)
	last := ms[len(ms)-1]

	// Region-qualified codes like zh_cn need more than two characters.
	require.Len(t, last.statements, 3)
	for _, table := range []string{"documents", "lexical_vectors", "search_logs"} {
		found := false
		for _, s := range last.statements {
			if strings.Contains(s, "ALTER TABLE "+table+" ") && strings.Contains(s, "VARCHAR(10)") {
				found = true
				break
			}
		}
		assert.True(t, found, "missing widen statement for %s", table)
	}
}

func TestPartialLexicalIndexesCoverCommonLanguages(t *testing.T) {
	stmts := partialLexicalIndexes()
	require.Len(t, stmts, 6)
	joined := strings.Join(stmts, "\n")
	for _, l := range []string{"en", "zh", "ja", "es", "fr", "de"} {
		assert.Contains(t, joined, "WHERE language = '"+l+"'")
	}
}
