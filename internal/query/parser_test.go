package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verr "github.com/vellumsearch/vellum/internal/errors"
)

func TestValidate(t *testing.T) {
	limits := DefaultLimits()

	assert.NoError(t, Validate("machine learning", limits))
	assert.NoError(t, Validate("ab", limits))
	assert.NoError(t, Validate(strings.Repeat("a", 1000), limits))

	tests := []struct {
		name string
		raw  string
		code string
	}{
		{"empty", "", verr.ErrCodeQueryEmpty},
		{"whitespace", "   \t ", verr.ErrCodeQueryEmpty},
		{"one below min", "a", verr.ErrCodeQueryTooShort},
		{"one above max", strings.Repeat("a", 1001), verr.ErrCodeQueryTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.raw, limits)
			require.Error(t, err)
			assert.Equal(t, tt.code, verr.GetCode(err))
			assert.True(t, verr.IsValidation(err))
		})
	}
}

func TestParsePlain(t *testing.T) {
	p, err := Parse("machine learning basics")
	require.NoError(t, err)
	assert.Equal(t, KindPlain, p.Kind)
	require.Len(t, p.Tokens, 1)
	assert.Equal(t, TokenText, p.Tokens[0].Type)
	assert.Equal(t, "machine learning basics", p.Tokens[0].Text)
	assert.Empty(t, p.Phrases)
}

func TestParsePhrase(t *testing.T) {
	p, err := Parse(`"exact phrase match"`)
	require.NoError(t, err)
	assert.Equal(t, KindPhrase, p.Kind)
	require.Len(t, p.Tokens, 1)
	assert.Equal(t, TokenPhrase, p.Tokens[0].Type)
	assert.Equal(t, "exact phrase match", p.Tokens[0].Text)
	assert.Equal(t, []string{"exact phrase match"}, p.Phrases)
}

func TestParseAdvanced(t *testing.T) {
	p, err := Parse(`"neural networks" AND (deep OR machine) NOT python`)
	require.NoError(t, err)
	assert.Equal(t, KindAdvanced, p.Kind)

	types := make([]TokenType, len(p.Tokens))
	for i, tok := range p.Tokens {
		types[i] = tok.Type
	}
	assert.Equal(t, []TokenType{
		TokenPhrase, TokenAnd, TokenLParen, TokenText, TokenOr,
		TokenText, TokenRParen, TokenNot, TokenText,
	}, types)

	assert.Equal(t, "neural networks", p.Tokens[0].Text)
	assert.Equal(t, "deep", p.Tokens[3].Text)
	assert.Equal(t, "machine", p.Tokens[5].Text)
	assert.Equal(t, "python", p.Tokens[8].Text)
	assert.Equal(t, []string{"neural networks"}, p.Phrases)
}

func TestParseOperatorsCaseInsensitive(t *testing.T) {
	p, err := Parse("cats and dogs")
	require.NoError(t, err)
	assert.Equal(t, KindAdvanced, p.Kind)
	assert.Equal(t, TokenAnd, p.Tokens[1].Type)
}

func TestParseEmbeddedPhraseIsAdvanced(t *testing.T) {
	p, err := Parse(`intro "getting started" guide`)
	require.NoError(t, err)
	assert.Equal(t, KindAdvanced, p.Kind)
	assert.Equal(t, []string{"getting started"}, p.Phrases)
}

func TestParseRejectsEmptyGroup(t *testing.T) {
	// An empty group would reach the store as the invalid expression "()".
	tests := []string{
		`term AND ( )`,
		`term AND ()`,
		`cats OR (( ))`,
		`("") AND dogs`,
	}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw)
			require.Error(t, err)
			assert.Equal(t, verr.ErrCodeQueryParse, verr.GetCode(err))
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := []string{
		`"unclosed phrase`,
		`(no close`,
		`too) many`,
		`""`,
	}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw)
			if err == nil {
				// `""` parses as advanced with zero tokens -> parse error.
				t.Fatalf("expected error for %q", raw)
			}
			assert.True(t, verr.IsValidation(err))
		})
	}
}
