// Package facebook fetches post comments through the Graph API.
//
// The Graph API needs a page access token, and most installs will not
// have one. Construction therefore never fails: without a token the
// client degrades to returning no comments so the rest of the pipeline
// keeps working.
package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/codeGROOVE-dev/threadsift/cache"
	"github.com/codeGROOVE-dev/threadsift/comment"
)

const defaultBaseURL = "https://graph.facebook.com/v18.0"

// Match returns true if the URL points to a Facebook post.
func Match(rawURL string) bool {
	return strings.Contains(strings.ToLower(rawURL), "facebook.com")
}

var (
	postPathRe  = regexp.MustCompile(`/posts/([A-Za-z0-9]+)`)
	videoPathRe = regexp.MustCompile(`/videos/(\d+)`)
	groupPostRe = regexp.MustCompile(`/groups/(\d+)/posts/(\d+)`)
)

// PostID extracts the Graph API object ID from a Facebook post URL.
// Group posts compose the group and post IDs with an underscore, which
// is how the Graph API addresses them.
func PostID(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse facebook URL: %w", err)
	}

	if strings.Contains(parsed.Path, "permalink.php") {
		if id := parsed.Query().Get("story_fbid"); id != "" {
			return id, nil
		}
	}
	if m := groupPostRe.FindStringSubmatch(parsed.Path); len(m) == 3 {
		return m[1] + "_" + m[2], nil
	}
	if m := postPathRe.FindStringSubmatch(parsed.Path); len(m) == 2 {
		return m[1], nil
	}
	if m := videoPathRe.FindStringSubmatch(parsed.Path); len(m) == 2 {
		return m[1], nil
	}

	return "", fmt.Errorf("%w: no post ID in %q", comment.ErrUnsupportedSource, rawURL)
}

// Client fetches Facebook comments via the Graph API.
type Client struct {
	pageToken  string
	baseURL    string
	httpClient *http.Client
	cache      cache.HTTPCache
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*config)

type config struct {
	pageToken  string
	httpClient *http.Client
	cache      cache.HTTPCache
	logger     *slog.Logger
}

// WithPageToken sets the Graph API page access token. Optional; without
// it FetchComments returns an empty slice.
func WithPageToken(token string) Option {
	return func(c *config) { c.pageToken = token }
}

// WithHTTPCache sets an HTTP response cache.
func WithHTTPCache(hc cache.HTTPCache) Option {
	return func(c *config) { c.cache = hc }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.httpClient = client }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// New creates a Facebook client. A missing token is not an error.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{httpClient: &http.Client{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		pageToken:  cfg.pageToken,
		baseURL:    defaultBaseURL,
		httpClient: cfg.httpClient,
		cache:      cfg.cache,
		logger:     cfg.logger,
	}, nil
}

type commentsResponse struct {
	Data []struct {
		From struct {
			Name string `json:"name"`
			ID   string `json:"id"`
		} `json:"from"`
		Message string `json:"message"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// FetchComments retrieves the comments on a post. Without a page token
// it logs a warning and returns no comments rather than failing.
func (c *Client) FetchComments(ctx context.Context, postURL string) ([]comment.Comment, error) {
	postID, err := PostID(postURL)
	if err != nil {
		return nil, err
	}

	if c.pageToken == "" {
		c.logger.WarnContext(ctx, "no facebook page token configured, returning no comments", "post_id", postID)
		return []comment.Comment{}, nil
	}

	query := url.Values{}
	query.Set("fields", "from,message")
	query.Set("access_token", c.pageToken)
	endpoint := c.baseURL + "/" + postID + "/comments?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", cache.UserAgent)
	req.Header.Set("Accept", "application/json")

	body, err := cache.FetchURL(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		return nil, statusError(err)
	}

	var resp commentsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", comment.ErrMalformedResponse, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: graph API error %d: %s", comment.ErrSourceUnavailable, resp.Error.Code, resp.Error.Message)
	}

	comments := make([]comment.Comment, 0, len(resp.Data))
	for _, item := range resp.Data {
		if item.From.Name == "" || item.Message == "" {
			continue
		}
		comments = append(comments, comment.Comment{
			Username:       item.From.Name,
			Text:           item.Message,
			PlatformUserID: item.From.ID,
		})
	}

	c.logger.InfoContext(ctx, "fetched facebook comments", "post_id", postID, "count", len(comments))
	return comments, nil
}

// statusError maps Graph API failures to the shared error taxonomy.
// Cancellation passes through untouched.
func statusError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var httpErr *cache.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized:
			return fmt.Errorf("%w: graph API rejected the access token (HTTP %d)", comment.ErrConfigMissing, httpErr.StatusCode)
		case http.StatusForbidden:
			return fmt.Errorf("%w: token lacks permission to read this post (HTTP 403)", comment.ErrSourceUnavailable)
		case http.StatusNotFound:
			return fmt.Errorf("%w: post not found or not public (HTTP 404)", comment.ErrSourceUnavailable)
		default:
			return fmt.Errorf("%w: graph API returned HTTP %d", comment.ErrSourceUnavailable, httpErr.StatusCode)
		}
	}
	return fmt.Errorf("%w: %v", comment.ErrSourceUnavailable, err)
}
