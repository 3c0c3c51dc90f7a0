// Package fetch downloads extension packages over HTTP so they can be
// installed from a URL instead of a local path.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/heliumweb/helium/backend/internal/shared/types"
)

// DefaultMaxSize caps downloaded packages at 256 MB
const DefaultMaxSize = 256 << 20

// Fetcher downloads packages into a staging directory
type Fetcher struct {
	client  *retryablehttp.Client
	dir     string
	maxSize int64
}

// New creates a fetcher staging downloads under dir
func New(dir string) *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 30 * time.Second
	client.HTTPClient.Timeout = 2 * time.Minute
	client.Logger = nil

	return &Fetcher{
		client:  client,
		dir:     dir,
		maxSize: DefaultMaxSize,
	}
}

// SetMaxSize overrides the download size cap
func (f *Fetcher) SetMaxSize(n int64) {
	f.maxSize = n
}

// Fetch downloads rawURL into the staging directory and returns the local
// file path. Non-2xx responses and oversized bodies are reported as
// network errors so the recovery manager retries them.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", types.E(types.KindInvalidPackage, "invalid package url: %s", rawURL)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", types.E(types.KindNetworkError, "network error: %v", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", types.E(types.KindNetworkError, "network error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", types.E(types.KindNetworkError, "network error: unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	dest := filepath.Join(f.dir, stagingName(u))
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create staging file: %w", err)
	}

	n, err := io.Copy(out, io.LimitReader(resp.Body, f.maxSize+1))
	closeErr := out.Close()
	if err != nil {
		os.Remove(dest)
		return "", types.E(types.KindNetworkError, "network error: %v", err)
	}
	if closeErr != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to write staging file: %w", closeErr)
	}
	if n > f.maxSize {
		os.Remove(dest)
		return "", types.E(types.KindInvalidPackage, "package exceeds %d byte limit", f.maxSize)
	}

	return dest, nil
}

// stagingName derives a safe local filename from the URL, defaulting the
// extension to .crx when the path has none.
func stagingName(u *url.URL) string {
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		base = "package"
	}
	base = sanitize(base)
	if filepath.Ext(base) == "" {
		base += ".crx"
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), base)
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
