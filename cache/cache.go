// Package cache provides HTTP caching interfaces and a retrying fetch
// helper shared by the platform adapters.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// UserAgent is the standard browser User-Agent string for all fetchers.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxBodySize bounds response reads; comment payloads are well under this.
const maxBodySize = 10 << 20

// HTTPCache defines the interface for caching HTTP responses.
type HTTPCache interface {
	Get(ctx context.Context, url string) (data []byte, found bool)
	SetAsync(ctx context.Context, url string, data []byte) error
}

// HTTPError represents a non-200 HTTP response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// FetchURL fetches a URL with caching support and a single retry for
// transient failures. If cache is non-nil and contains the URL, the cached
// body is returned without a network call. Successful (HTTP 200) responses
// are cached asynchronously. Non-200 statuses return *HTTPError and are
// retried only for 429/5xx.
// The caller must set all necessary headers on the request beforehand.
func FetchURL(ctx context.Context, cache HTTPCache, client *http.Client, req *http.Request, logger *slog.Logger) ([]byte, error) {
	url := req.URL.String()

	if cache != nil {
		if data, found := cache.Get(ctx, url); found {
			if logger != nil {
				logger.Debug("cache hit", "url", url)
			}
			return data, nil
		}
	}

	body, err := retry.DoWithData(
		func() ([]byte, error) {
			return doFetch(client, req)
		},
		retry.Context(ctx),
		retry.Attempts(2), // single retry
		retry.Delay(200*time.Millisecond),
		retry.MaxJitter(100*time.Millisecond),
		retry.RetryIf(IsRetryableError),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if logger != nil {
				logger.Debug("retrying HTTP request", "attempt", n+1, "url", url, "error", err)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		_ = cache.SetAsync(ctx, url, body) //nolint:errcheck // cache errors are non-critical
	}
	return body, nil
}

func doFetch(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // error ignored intentionally

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: req.URL.String()}
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
}

// IsRetryableError returns true for transient errors worth retrying.
// Context cancellation and deadline expiry are final.
func IsRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false // other 4xx/3xx are definitive upstream answers
		}
	}
	// Network errors, timeouts, etc. are retryable.
	return true
}
