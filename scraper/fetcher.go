// scraper/fetcher.go
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxPageBytes caps how much of a response body is read.
const maxPageBytes = 10 << 20

// Fetcher retrieves the raw HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) ([]byte, error)
}

// FetchError describes a failed page request. Transport failures and
// non-2xx responses are retryable; a request that cannot be built or a
// canceled context is not.
type FetchError struct {
	URL        string
	StatusCode int // 0 for transport-level failures
	Retryable  bool
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status code %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is worth another attempt. Unknown errors
// are treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return !errors.Is(err, ErrParse)
}

// HTTPFetcher issues GET requests with a fixed User-Agent.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher builds a fetcher whose client enforces timeout on every request.
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// NewHTTPFetcherWithClient uses an existing client, e.g. an httptest server's.
func NewHTTPFetcherWithClient(client *http.Client, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{client: client, userAgent: userAgent}
}

// Fetch returns the page body for any 2xx response.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("build request: %w", err)}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Retryable: ctx.Err() == nil, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageBytes))
		return nil, &FetchError{
			URL:        pageURL,
			StatusCode: resp.StatusCode,
			Retryable:  true,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, &FetchError{URL: pageURL, Retryable: true, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}
