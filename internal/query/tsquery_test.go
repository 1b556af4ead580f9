package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emit(t *testing.T, raw, config string) string {
	t.Helper()
	p, err := Parse(raw)
	require.NoError(t, err)
	expr, err := EmitTsquery(p, config)
	require.NoError(t, err)
	return expr
}

func TestEmitPlain(t *testing.T) {
	assert.Equal(t,
		"plainto_tsquery('english', 'machine learning')",
		emit(t, "machine learning", "english"))
}

func TestEmitPhrase(t *testing.T) {
	assert.Equal(t,
		"phraseto_tsquery('english', 'neural networks')",
		emit(t, `"neural networks"`, "english"))
}

func TestEmitAdvanced(t *testing.T) {
	expr := emit(t, `"neural networks" AND (deep OR machine) NOT python`, "english")
	assert.Equal(t,
		"phraseto_tsquery('english', 'neural networks') && "+
			"(plainto_tsquery('english', 'deep') || plainto_tsquery('english', 'machine')) && "+
			"!! plainto_tsquery('english', 'python')",
		expr)
}

func TestEmitImplicitAnd(t *testing.T) {
	// Adjacent operands without an explicit operator get an implicit AND.
	expr := emit(t, `intro "getting started" guide`, "english")
	assert.Equal(t,
		"plainto_tsquery('english', 'intro') && "+
			"phraseto_tsquery('english', 'getting started') && "+
			"plainto_tsquery('english', 'guide')",
		expr)
}

func TestEmitEscapesQuotes(t *testing.T) {
	expr := emit(t, "o'reilly books", "english")
	assert.Equal(t, "plainto_tsquery('english', 'o''reilly books')", expr)
}

func TestEmitEscapesBackslashes(t *testing.T) {
	expr := emit(t, `path\to\file`, "english")
	assert.Equal(t, `plainto_tsquery('english', 'path\\to\\file')`, expr)
}

func TestEmitNonEnglishConfig(t *testing.T) {
	assert.Equal(t,
		"plainto_tsquery('jieba', '机器学习')",
		emit(t, "机器学习", "jieba"))
}

func TestEmitRejectsBadConfig(t *testing.T) {
	p, err := Parse("hello world")
	require.NoError(t, err)

	_, err = EmitTsquery(p, "english'; drop table sections; --")
	assert.Error(t, err)

	_, err = EmitTsquery(p, "")
	assert.Error(t, err)
}

func TestEmitRejectsDanglingOperator(t *testing.T) {
	p, err := Parse("cats AND")
	require.NoError(t, err)
	_, err = EmitTsquery(p, "english")
	assert.Error(t, err)

	p, err = Parse("OR cats")
	require.NoError(t, err)
	_, err = EmitTsquery(p, "english")
	assert.Error(t, err)
}

func TestEmitNotWithoutLeadingOperand(t *testing.T) {
	expr := emit(t, "NOT python", "english")
	assert.Equal(t, "!! plainto_tsquery('english', 'python')", expr)
}
