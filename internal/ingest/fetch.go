package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fr0stylo/venuecal/internal/extract"
)

const (
	// DefaultFetchTimeout bounds every outbound page and image request.
	DefaultFetchTimeout = 10 * time.Second
	maxPageBytes        = 5 << 20
	userAgent           = "venuecal-import/1.0 (+https://github.com/fr0stylo/venuecal)"
)

// PageFetcher loads and parses one event page.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*extract.Page, error)
}

// HTTPPageFetcher fetches pages over HTTP with a bounded body size.
type HTTPPageFetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// NewHTTPPageFetcher builds a fetcher with a traced transport.
func NewHTTPPageFetcher(timeout time.Duration) *HTTPPageFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPPageFetcher{
		client:   newTracedClient(),
		timeout:  timeout,
		maxBytes: maxPageBytes,
	}
}

func newTracedClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// Fetch performs one GET. Non-2xx responses are errors; oversized bodies are
// truncated at the cap.
func (f *HTTPPageFetcher) Fetch(ctx context.Context, rawURL string) (*extract.Page, error) {
	target, err := parseHTTPURL(rawURL)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, err
	}
	return extract.ParsePage(body, resp.Request.URL), nil
}

func parseHTTPURL(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("url %q has no host", rawURL)
	}
	return parsed, nil
}
