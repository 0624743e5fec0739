// Package proxyfetch retrieves resources through an unreliable, bot-hostile
// channel. A fetch walks a fixed ladder of attempts: a direct request
// first, then a chain of public CORS proxies, each bounded by its own
// timeout. Because the channel is adversarial rather than merely flaky,
// acceptance is content-aware: a proxy answer counts only if it is not an
// HTML error page and parses as the expected format.
package proxyfetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/codeGROOVE-dev/threadsift/cache"
	"github.com/codeGROOVE-dev/threadsift/htmlutil"
)

// Stage identifies which attempt of the fallback ladder produced a result.
type Stage int

// Attempt stages, in ladder order.
const (
	StageDirect Stage = iota
	StageProxy1
	StageProxy2
	StageProxy3
	StageProxy4
	StageExhausted
)

func (s Stage) String() string {
	switch s {
	case StageDirect:
		return "direct"
	case StageProxy1, StageProxy2, StageProxy3, StageProxy4:
		return fmt.Sprintf("proxy_%d", int(s-StageProxy1)+1)
	case StageExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ErrNotJSON means the upstream answered 200 but the body was not the
// structured format the caller asked for.
var ErrNotJSON = errors.New("response is not valid JSON")

// Proxy describes one relay in the fallback chain.
type Proxy struct {
	Name string
	// Wrap turns a target URL into the proxy request URL.
	Wrap func(target string) string
	// Decode unwraps the proxy's envelope, if it has one. Nil means the
	// body is passed through as-is.
	Decode func(body []byte) ([]byte, error)
}

// DefaultProxies returns the proxy chain in priority order (fastest first).
func DefaultProxies() []Proxy {
	return []Proxy{
		{
			Name: "corsproxy",
			Wrap: func(target string) string {
				return "https://corsproxy.io/?" + url.QueryEscape(target)
			},
		},
		{
			Name: "allorigins-raw",
			Wrap: func(target string) string {
				return "https://api.allorigins.win/raw?url=" + url.QueryEscape(target)
			},
		},
		{
			Name: "allorigins-get",
			Wrap: func(target string) string {
				return "https://api.allorigins.win/get?url=" + url.QueryEscape(target)
			},
			Decode: decodeAllOrigins,
		},
		{
			Name: "codetabs",
			Wrap: func(target string) string {
				return "https://api.codetabs.com/v1/proxy?quest=" + url.QueryEscape(target)
			},
		},
	}
}

// decodeAllOrigins unwraps the allorigins /get JSON envelope.
func decodeAllOrigins(body []byte) ([]byte, error) {
	var envelope struct {
		Contents string `json:"contents"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode allorigins envelope: %w", err)
	}
	if envelope.Contents == "" {
		return nil, errors.New("allorigins envelope has no contents")
	}
	return []byte(envelope.Contents), nil
}

// Fetcher is the retrieval capability adapters compose over. It exists so
// tests can substitute a canned transport.
type Fetcher interface {
	// FetchJSON retrieves a URL whose body must parse as JSON.
	FetchJSON(ctx context.Context, rawURL string, header http.Header) ([]byte, Stage, error)
	// FetchHTML retrieves a URL without requiring JSON; HTML is acceptable.
	FetchHTML(ctx context.Context, rawURL string, header http.Header) ([]byte, Stage, error)
}

// Client implements Fetcher over HTTP with the proxy fallback ladder.
type Client struct {
	httpClient    *http.Client
	proxies       []Proxy
	limiter       *hostLimiter
	logger        *slog.Logger
	directTimeout time.Duration
	proxyTimeout  time.Duration
}

// Option configures a Client.
type Option func(*config)

type config struct {
	httpClient    *http.Client
	proxies       []Proxy
	logger        *slog.Logger
	directTimeout time.Duration
	proxyTimeout  time.Duration
}

// WithHTTPClient sets the client used for direct attempts (for cookie jars
// and tests). Proxy attempts share the same transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.httpClient = client }
}

// WithProxies replaces the default proxy chain.
func WithProxies(proxies []Proxy) Option {
	return func(c *config) { c.proxies = proxies }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithDirectTimeout bounds the direct attempt.
func WithDirectTimeout(d time.Duration) Option {
	return func(c *config) { c.directTimeout = d }
}

// WithProxyTimeout bounds each proxy attempt.
func WithProxyTimeout(d time.Duration) Option {
	return func(c *config) { c.proxyTimeout = d }
}

// New creates a Client with the default proxy chain.
func New(opts ...Option) *Client {
	cfg := &config{
		httpClient:    &http.Client{},
		proxies:       DefaultProxies(),
		logger:        slog.Default(),
		directTimeout: 8 * time.Second,
		proxyTimeout:  25 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		httpClient:    cfg.httpClient,
		proxies:       cfg.proxies,
		limiter:       newHostLimiter(1, 2),
		logger:        cfg.logger,
		directTimeout: cfg.directTimeout,
		proxyTimeout:  cfg.proxyTimeout,
	}
}

// FetchJSON retrieves rawURL; the body must be valid, non-HTML JSON.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, header http.Header) ([]byte, Stage, error) {
	return c.fetch(ctx, rawURL, header, true)
}

// FetchHTML retrieves rawURL without the JSON requirement.
func (c *Client) FetchHTML(ctx context.Context, rawURL string, header http.Header) ([]byte, Stage, error) {
	return c.fetch(ctx, rawURL, header, false)
}

func (c *Client) fetch(ctx context.Context, rawURL string, header http.Header, wantJSON bool) ([]byte, Stage, error) {
	body, directErr := c.direct(ctx, rawURL, header)
	if directErr == nil {
		if err := validate(body, wantJSON); err != nil {
			// A 200 that decodes as an HTML block page is still a block;
			// fall through to the proxy chain.
			c.logger.DebugContext(ctx, "direct response failed validation", "url", rawURL, "error", err)
			directErr = err
		} else {
			return body, StageDirect, nil
		}
	}

	if ctx.Err() != nil {
		return nil, StageDirect, ctx.Err()
	}

	// A definitive upstream answer (404, 429, ...) must not be retried;
	// only a block or a transport failure earns the proxy chain.
	var httpErr *cache.HTTPError
	if errors.As(directErr, &httpErr) && httpErr.StatusCode != http.StatusForbidden {
		return nil, StageDirect, directErr
	}

	c.logger.InfoContext(ctx, "direct fetch failed, walking proxy chain", "url", rawURL, "error", directErr)

	for i, p := range c.proxies {
		if ctx.Err() != nil {
			return nil, proxyStage(i), ctx.Err()
		}

		body, err := c.viaProxy(ctx, p, rawURL, wantJSON)
		if err != nil {
			c.logger.DebugContext(ctx, "proxy attempt failed", "proxy", p.Name, "stage", proxyStage(i).String(), "error", err)
			continue
		}

		c.logger.InfoContext(ctx, "proxy fetch succeeded", "proxy", p.Name, "stage", proxyStage(i).String())
		return body, proxyStage(i), nil
	}

	// Surface the original direct outcome so the caller can produce an
	// accurate diagnostic, not a generic proxy error.
	return nil, StageExhausted, directErr
}

func proxyStage(i int) Stage { return StageProxy1 + Stage(i) }

func (c *Client) direct(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.directTimeout)
	defer cancel()

	return retry.DoWithData(
		func() ([]byte, error) {
			if err := c.limiter.Wait(ctx, rawURL); err != nil {
				return nil, err
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
			if err != nil {
				return nil, err
			}
			for k, vs := range header {
				for _, v := range vs {
					req.Header.Add(k, v)
				}
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return nil, err
			}
			defer func() { _ = resp.Body.Close() }() //nolint:errcheck // error ignored intentionally

			if resp.StatusCode != http.StatusOK {
				return nil, &cache.HTTPError{StatusCode: resp.StatusCode, URL: rawURL}
			}

			return io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		},
		retry.Context(ctx),
		retry.Attempts(2), // single retry for transient transport failures
		retry.Delay(200*time.Millisecond),
		retry.MaxJitter(100*time.Millisecond),
		retry.RetryIf(func(err error) bool {
			var httpErr *cache.HTTPError
			// HTTP statuses are answers, not transport failures; the
			// ladder handles them.
			return !errors.As(err, &httpErr) && !errors.Is(err, context.Canceled)
		}),
		retry.LastErrorOnly(true),
	)
}

const maxBodySize = 10 << 20

func (c *Client) viaProxy(ctx context.Context, p Proxy, rawURL string, wantJSON bool) ([]byte, error) {
	proxyURL := p.Wrap(rawURL)

	ctx, cancel := context.WithTimeout(ctx, c.proxyTimeout)
	defer cancel()

	if err := c.limiter.Wait(ctx, proxyURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, proxyURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", cache.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // error ignored intentionally

	if resp.StatusCode != http.StatusOK {
		return nil, &cache.HTTPError{StatusCode: resp.StatusCode, URL: proxyURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	if p.Decode != nil {
		if body, err = p.Decode(body); err != nil {
			return nil, err
		}
	}

	if err := validate(body, wantJSON); err != nil {
		return nil, err
	}
	return body, nil
}

// validate rejects HTML masquerading as data and, when wantJSON is set,
// anything that does not parse as JSON.
func validate(body []byte, wantJSON bool) error {
	if htmlutil.IsHTML(body) {
		if wantJSON {
			return fmt.Errorf("%w: got HTML document", ErrNotJSON)
		}
		return nil
	}
	if wantJSON && !json.Valid(body) {
		return ErrNotJSON
	}
	return nil
}
