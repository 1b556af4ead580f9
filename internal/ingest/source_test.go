package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verr "github.com/vellumsearch/vellum/internal/errors"
)

func TestFetchLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes\n\nbody\n"), 0o644))

	content, err := NewFetcher().Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "# Notes\n\nbody\n", content)
}

func TestFetchMissingFile(t *testing.T) {
	_, err := NewFetcher().Fetch(context.Background(), "/nonexistent/void.md")
	require.Error(t, err)
	assert.Equal(t, verr.ErrCodeDocumentProcessing, verr.GetCode(err))
}

func TestFetchURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# Remote\n"))
	}))
	defer srv.Close()

	content, err := NewFetcher().Fetch(context.Background(), srv.URL+"/doc.md")
	require.NoError(t, err)
	assert.Equal(t, "# Remote\n", content)
}

func TestFetchURLNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewFetcher().Fetch(context.Background(), srv.URL+"/gone.md")
	require.Error(t, err)
	assert.Equal(t, verr.ErrCodeDocumentProcessing, verr.GetCode(err))
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.org/a.md"))
	assert.True(t, IsURL("http://example.org/a.md"))
	assert.False(t, IsURL("/var/data/a.md"))
	assert.False(t, IsURL("a.md"))
}

func TestTitleFromSource(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"https://example.org/deep_learning-basics.md", "deep learning basics"},
		{"/data/notes.markdown", "notes"},
		{"report.md", "report"},
		{"", "Untitled"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TitleFromSource(tt.source), "source %q", tt.source)
	}
}
