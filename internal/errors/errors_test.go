package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesCategory(t *testing.T) {
	tests := []struct {
		code     string
		category Category
		retry    bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, false},
		{ErrCodeEmbedderUnavailable, CategoryNetwork, true},
		{ErrCodeStoreTransient, CategoryNetwork, true},
		{ErrCodeQueryParse, CategoryValidation, false},
		{ErrCodeDatabase, CategoryStore, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.retry, err.Retryable)
		})
	}
}

func TestErrorUnwrapChain(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Database(cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeDatabase, GetCode(err))

	// Wrapping with %w keeps the code reachable.
	wrapped := fmt.Errorf("query failed: %w", err)
	assert.Equal(t, ErrCodeDatabase, GetCode(wrapped))
	assert.True(t, stderrors.Is(wrapped, New(ErrCodeDatabase, "", nil)))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(Timeout("deadline hit")))
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(fmt.Errorf("op: %w", context.Canceled)))
	assert.False(t, IsTimeout(Validation("nope")))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(Validation("empty query")))
	assert.True(t, IsValidation(QueryParse("unbalanced quotes")))
	assert.False(t, IsValidation(Database(stderrors.New("x"))))
	assert.False(t, IsValidation(nil))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"validation", Validation("bad"), ExitUsage},
		{"parse", QueryParse("bad"), ExitUsage},
		{"not found", NotFound("document", 7), ExitNotFound},
		{"database", Database(stderrors.New("x")), ExitUpstream},
		{"embedding", Embedding("x", nil), ExitUpstream},
		{"timeout", Timeout("x"), ExitCancelled},
		{"raw context", context.DeadlineExceeded, ExitCancelled},
		{"foreign", stderrors.New("x"), ExitUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
