package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/YaPengJi1/pachong/pkg/utils"
)

// Getter fetches the raw body of a URL. The prober uses it for plain HTTP
// probes where no browser rendering is needed.
type Getter interface {
	Get(ctx context.Context, url string) (string, error)
}

// HTTPGetter is the production Getter backed by an *http.Client.
type HTTPGetter struct {
	client    *http.Client
	userAgent string
}

// NewHTTPGetter wraps an HTTP client with the configured User-Agent.
func NewHTTPGetter(client *http.Client, userAgent string) *HTTPGetter {
	return &HTTPGetter{client: client, userAgent: userAgent}
}

// Get performs one GET request and returns the full response body. Non-2xx
// statuses are returned as transport errors; the prober treats them as
// invalid identifiers rather than failures.
func (g *HTTPGetter) Get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w: %v", url, utils.ErrMalformedInput, err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w: %v", url, utils.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetching %s: %w: unexpected status %d", url, utils.ErrTransport, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body of %s: %w: %v", url, utils.ErrTransport, err)
	}
	return string(body), nil
}
