package ingest

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	verr "github.com/vellumsearch/vellum/internal/errors"
)

const (
	fetchTimeout = 30 * time.Second

	// maxSourceBytes caps a single fetched document.
	maxSourceBytes = 16 << 20
)

// Fetcher resolves an ingest source to markdown text. A source is either
// an http(s) URL or a local file path.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher with a bounded HTTP client.
func NewFetcher() *Fetcher {
	return &Fetcher{client: &http.Client{Timeout: fetchTimeout}}
}

// IsURL reports whether the source is a remote URL.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Fetch returns the markdown content of the source.
func (f *Fetcher) Fetch(ctx context.Context, source string) (string, error) {
	if IsURL(source) {
		return f.fetchURL(ctx, source)
	}
	return f.fetchFile(source)
}

func (f *Fetcher) fetchURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", verr.Processing("build request for "+url, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", verr.Processing("fetch "+url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", verr.Newf(verr.ErrCodeDocumentProcessing, "fetch %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return "", verr.Processing("read "+url, err)
	}
	return string(data), nil
}

func (f *Fetcher) fetchFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", verr.Processing("read "+path, err)
	}
	if len(data) > maxSourceBytes {
		return "", verr.Newf(verr.ErrCodeDocumentProcessing, "file %s exceeds %d bytes", path, maxSourceBytes)
	}
	return string(data), nil
}

// TitleFromSource derives a fallback title from a URL or file path when
// the document itself carries none: the base name without extension,
// underscores and hyphens as spaces.
func TitleFromSource(source string) string {
	base := filepath.Base(strings.TrimSuffix(source, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	base = strings.TrimSpace(base)
	if base == "" || base == "." {
		return "Untitled"
	}
	return base
}
