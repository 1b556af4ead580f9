package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"content": "  The answer.  "},
			"done":    true,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "qwen2.5:7b")
	answer, err := c.Summarize(context.Background(), "What is it?", []string{"passage one", "passage two"})
	require.NoError(t, err)

	assert.Equal(t, "The answer.", answer)
	assert.Equal(t, "qwen2.5:7b", captured.Model)
	assert.False(t, captured.Stream)
	require.Len(t, captured.Messages, 1)
	assert.Contains(t, captured.Messages[0].Content, "Passage 1:\npassage one")
	assert.Contains(t, captured.Messages[0].Content, "Passage 2:\npassage two")
	assert.Contains(t, captured.Messages[0].Content, "Question: What is it?")
}

func TestSummarizeBearerAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]string{"content": "ok"}})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "secret", "m").Summarize(context.Background(), "q", nil)
	require.NoError(t, err)
}

func TestSummarizeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", "m").Summarize(context.Background(), "q", []string{"p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestBuildPromptTruncatesPassages(t *testing.T) {
	long := strings.Repeat("x", maxPassageChars+500)
	prompt := buildPrompt("q", []string{long})
	assert.Less(t, len(prompt), maxPassageChars+300)
}
