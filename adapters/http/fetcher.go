// Package http provides the HTTP adapters: the OpenAPI description fetcher
// and the router that serves persisted schema documents.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/artpar/neris-schemas/ports"
)

// DefaultUserAgent identifies the fetcher to the description host.
const DefaultUserAgent = "neris-schemas"

// Fetcher downloads the remote OpenAPI description.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// FetcherConfig contains configuration for the fetcher.
type FetcherConfig struct {
	Timeout   time.Duration // zero waits until ctx is done
	UserAgent string
	Client    *http.Client // optional, overrides Timeout
}

// NewFetcher creates a new description fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Fetcher{client: client, userAgent: userAgent}
}

// Fetch performs a GET request and returns the response body. Any status
// outside 2xx is an error.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/yaml, application/x-yaml, text/yaml, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// Ensure interface compliance.
var _ ports.SpecFetcher = (*Fetcher)(nil)
