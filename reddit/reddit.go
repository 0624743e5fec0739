// Package reddit fetches comment threads from Reddit posts.
//
// Reddit's public JSON endpoints are bot-hostile: direct requests are
// often answered with 403 block pages, and share shortlinks hide the
// real post URL behind a redirect that blocked clients cannot follow.
// The client leans on proxyfetch's fallback ladder for retrieval and
// carries three independent strategies for shortlink resolution.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/codeGROOVE-dev/threadsift/auth"
	"github.com/codeGROOVE-dev/threadsift/cache"
	"github.com/codeGROOVE-dev/threadsift/comment"
	"github.com/codeGROOVE-dev/threadsift/htmlutil"
	"github.com/codeGROOVE-dev/threadsift/proxyfetch"
)

// Match returns true if the URL points to a Reddit post or shortlink.
func Match(rawURL string) bool {
	return strings.Contains(strings.ToLower(rawURL), "reddit.com")
}

// Client fetches Reddit comment threads.
type Client struct {
	fetcher proxyfetch.Fetcher
	logger  *slog.Logger
}

// Option configures the Client.
type Option func(*config)

type config struct {
	fetcher        proxyfetch.Fetcher
	logger         *slog.Logger
	cookies        map[string]string
	browserCookies bool
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithFetcher replaces the retrieval transport (for tests).
func WithFetcher(f proxyfetch.Fetcher) Option {
	return func(c *config) { c.fetcher = f }
}

// WithCookies sets explicit session cookies for direct requests.
func WithCookies(cookies map[string]string) Option {
	return func(c *config) { c.cookies = cookies }
}

// WithBrowserCookies enables reading Reddit session cookies from
// installed browsers when none are set explicitly.
func WithBrowserCookies(enabled bool) Option {
	return func(c *config) { c.browserCookies = enabled }
}

// New creates a Reddit client. Cookies are optional; without them the
// client still works through the proxy fallback chain.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.fetcher == nil {
		fetchOpts := []proxyfetch.Option{proxyfetch.WithLogger(cfg.logger)}

		cookies, err := resolveCookies(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if len(cookies) > 0 {
			jar, err := auth.NewCookieJar("reddit.com", cookies)
			if err != nil {
				return nil, fmt.Errorf("build cookie jar: %w", err)
			}
			fetchOpts = append(fetchOpts, proxyfetch.WithHTTPClient(&http.Client{Jar: jar}))
			cfg.logger.DebugContext(ctx, "reddit session cookies loaded", "count", len(cookies))
		}

		cfg.fetcher = proxyfetch.New(fetchOpts...)
	}

	return &Client{fetcher: cfg.fetcher, logger: cfg.logger}, nil
}

func resolveCookies(ctx context.Context, cfg *config) (map[string]string, error) {
	if len(cfg.cookies) > 0 {
		return cfg.cookies, nil
	}

	sources := []auth.Source{auth.EnvSource{}}
	if cfg.browserCookies {
		sources = append(sources, auth.NewBrowserSource(cfg.logger))
	}
	return auth.ChainSources(ctx, "reddit", sources...)
}

// Normalize rewrites a Reddit URL to its canonical www form: https
// scheme, www.reddit.com host, no query, no fragment, no trailing slash.
func Normalize(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse reddit URL: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: no host in %q", comment.ErrUnsupportedSource, rawURL)
	}

	host := strings.ToLower(parsed.Host)
	switch host {
	case "reddit.com", "old.reddit.com", "np.reddit.com", "new.reddit.com", "m.reddit.com":
		host = "www.reddit.com"
	}

	path := strings.TrimSuffix(parsed.Path, "/")
	return "https://" + host + path, nil
}

// IsShortlink reports whether the URL is a share shortlink
// (reddit.com/r/<sub>/s/<id>), which must be resolved before fetching.
func IsShortlink(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(parsed.Path, "/s/")
}

// ResolveShortlink resolves a share shortlink to the full post URL.
// Three strategies run in order; the first that yields a /comments/ URL
// wins:
//
//  1. append .json to the shortlink and read the post permalink
//  2. fetch the HTML with minimal headers and read the canonical link
//     or JSON-LD url
//  3. fetch the HTML with full browser headers and read the canonical
//     link
func (c *Client) ResolveShortlink(ctx context.Context, shortURL string) (string, error) {
	if resolved := c.resolveViaJSON(ctx, shortURL); resolved != "" {
		return resolved, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if resolved := c.resolveViaHTML(ctx, shortURL, minimalHeaders()); resolved != "" {
		return resolved, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if resolved := c.resolveViaHTML(ctx, shortURL, browserHeaders()); resolved != "" {
		return resolved, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%w: could not resolve shortlink %s", comment.ErrSourceUnavailable, shortURL)
}

func (c *Client) resolveViaJSON(ctx context.Context, shortURL string) string {
	body, stage, err := c.fetcher.FetchJSON(ctx, shortURL+".json", browserHeaders())
	if err != nil {
		c.logger.DebugContext(ctx, "shortlink JSON strategy failed", "url", shortURL, "error", err)
		return ""
	}
	c.logger.DebugContext(ctx, "shortlink JSON strategy answered", "stage", stage.String())

	var listings []listing
	if err := json.Unmarshal(body, &listings); err != nil || len(listings) == 0 {
		return ""
	}
	children := listings[0].Data.Children
	if len(children) == 0 {
		return ""
	}

	var post struct {
		Permalink string `json:"permalink"`
	}
	if err := json.Unmarshal(children[0].Data, &post); err != nil || post.Permalink == "" {
		return ""
	}
	return validateResolved("https://www.reddit.com" + strings.TrimSuffix(post.Permalink, "/"))
}

func (c *Client) resolveViaHTML(ctx context.Context, shortURL string, header http.Header) string {
	body, stage, err := c.fetcher.FetchHTML(ctx, shortURL, header)
	if err != nil {
		c.logger.DebugContext(ctx, "shortlink HTML strategy failed", "url", shortURL, "error", err)
		return ""
	}
	c.logger.DebugContext(ctx, "shortlink HTML strategy answered", "stage", stage.String())

	html := string(body)
	if link := htmlutil.CanonicalLink(html); link != "" {
		if resolved := validateResolved(link); resolved != "" {
			return resolved
		}
	}
	return validateResolved(htmlutil.StructuredDataURL(html))
}

// validateResolved accepts only full post URLs; anything else means the
// strategy landed on an interstitial or error page.
func validateResolved(resolved string) string {
	if resolved == "" || !strings.Contains(resolved, "/comments/") {
		return ""
	}
	normalized, err := Normalize(resolved)
	if err != nil {
		return ""
	}
	return normalized
}

// FetchComments retrieves and flattens the comment tree of a Reddit post.
// Shortlinks are resolved first. Deleted and removed comments are
// dropped, as are non-comment nodes such as "load more" stubs.
func (c *Client) FetchComments(ctx context.Context, postURL string) ([]comment.Comment, error) {
	normalized, err := Normalize(postURL)
	if err != nil {
		return nil, err
	}

	if IsShortlink(normalized) {
		resolved, err := c.ResolveShortlink(ctx, normalized)
		if err != nil {
			return nil, err
		}
		c.logger.InfoContext(ctx, "resolved reddit shortlink", "short", normalized, "full", resolved)
		normalized = resolved
	}

	if !strings.Contains(normalized, "/comments/") {
		return nil, fmt.Errorf("%w: not a reddit post URL: %s", comment.ErrUnsupportedSource, normalized)
	}

	body, stage, err := c.fetcher.FetchJSON(ctx, normalized+".json", browserHeaders())
	if err != nil {
		return nil, statusError(err)
	}
	c.logger.InfoContext(ctx, "fetched reddit thread", "url", normalized, "stage", stage.String())

	return parseThread(body)
}

// parseThread decodes the two-listing post response and flattens the
// comment tree depth-first, parents before children.
func parseThread(body []byte) ([]comment.Comment, error) {
	var listings []listing
	if err := json.Unmarshal(body, &listings); err != nil {
		return nil, fmt.Errorf("%w: %v", comment.ErrMalformedResponse, err)
	}
	// [0] is the post itself, [1] is the comment forest.
	if len(listings) < 2 {
		return nil, fmt.Errorf("%w: expected post and comment listings, got %d", comment.ErrMalformedResponse, len(listings))
	}

	return flatten(listings[1].Data.Children), nil
}

type listing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type commentData struct {
	Author string `json:"author"`
	Body   string `json:"body"`
	// Replies is a nested listing, or "" when the comment is a leaf.
	Replies json.RawMessage `json:"replies"`
}

// flatten walks the comment forest iteratively with an explicit stack.
// Children are pushed in reverse so output order matches the rendered
// thread.
func flatten(roots []thing) []comment.Comment {
	comments := []comment.Comment{}

	stack := make([]thing, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		// t1 is a comment; everything else ("more" stubs, the post
		// itself) carries no usable text.
		if node.Kind != "t1" {
			continue
		}

		var data commentData
		if err := json.Unmarshal(node.Data, &data); err != nil {
			continue
		}

		if keep(data) {
			comments = append(comments, comment.Comment{
				Username: data.Author,
				Text:     data.Body,
			})
		}

		// Replies of a filtered comment are still real comments.
		children := replyChildren(data.Replies)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return comments
}

func keep(data commentData) bool {
	switch data.Author {
	case "", "[deleted]", "[removed]":
		return false
	}
	switch data.Body {
	case "", "[deleted]", "[removed]":
		return false
	}
	return true
}

func replyChildren(raw json.RawMessage) []thing {
	// Leaf comments have replies set to the empty string.
	if len(raw) == 0 || string(raw) == `""` || string(raw) == "null" {
		return nil
	}
	var nested listing
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil
	}
	return nested.Data.Children
}

// statusError maps retrieval failures to the shared error taxonomy with
// actionable messages. Cancellation is not a retrieval outcome and
// passes through untouched.
func statusError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var httpErr *cache.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("%w: reddit blocked the request (HTTP 403) and all proxies failed; set %s or try again later",
				comment.ErrSourceUnavailable, strings.Join(auth.EnvVarsForPlatform("reddit"), " and "))
		case http.StatusNotFound:
			return fmt.Errorf("%w: reddit post not found (HTTP 404); it may be deleted or private", comment.ErrSourceUnavailable)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: reddit rate limit hit (HTTP 429); wait before retrying", comment.ErrSourceUnavailable)
		default:
			return fmt.Errorf("%w: reddit returned HTTP %d", comment.ErrSourceUnavailable, httpErr.StatusCode)
		}
	}
	return fmt.Errorf("%w: %v", comment.ErrSourceUnavailable, err)
}

// browserHeaders returns the full header set a real browser would send.
func browserHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", cache.UserAgent)
	h.Set("Accept", "application/json, text/html;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Cache-Control", "no-cache")
	return h
}

// minimalHeaders returns a deliberately sparse header set. Some block
// rules trigger on browser-looking requests and let plain clients pass.
func minimalHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", "curl/8.4.0")
	h.Set("Accept", "*/*")
	return h
}
