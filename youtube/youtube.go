// Package youtube fetches video comments through the YouTube Data API v3.
//
// This is the well-behaved source: an official API with an API key. A
// missing key fails fast at construction rather than mid-pipeline.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/codeGROOVE-dev/threadsift/cache"
	"github.com/codeGROOVE-dev/threadsift/comment"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

// maxResults is the largest page the commentThreads endpoint allows.
const maxResults = 100

// Match returns true if the URL points to a YouTube video.
func Match(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.Contains(lower, "youtube.com") || strings.Contains(lower, "youtu.be")
}

// VideoID extracts the video ID from any of the URL shapes YouTube
// serves: watch pages, share links, shorts, and embeds.
func VideoID(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse youtube URL: %w", err)
	}

	host := strings.ToLower(strings.TrimPrefix(parsed.Host, "www."))
	path := strings.Trim(parsed.Path, "/")

	switch {
	case host == "youtu.be":
		if id, _, ok := strings.Cut(path, "/"); ok || id != "" {
			return id, nil
		}
	case strings.HasSuffix(host, "youtube.com"):
		if id := parsed.Query().Get("v"); id != "" {
			return id, nil
		}
		for _, prefix := range []string{"shorts/", "embed/", "live/"} {
			if rest, ok := strings.CutPrefix(path, prefix); ok {
				if id, _, _ := strings.Cut(rest, "/"); id != "" {
					return id, nil
				}
			}
		}
	}

	return "", fmt.Errorf("%w: no video ID in %q", comment.ErrUnsupportedSource, rawURL)
}

// Client fetches YouTube comments via the Data API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      cache.HTTPCache
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*config)

type config struct {
	apiKey     string
	httpClient *http.Client
	cache      cache.HTTPCache
	logger     *slog.Logger
}

// WithAPIKey sets the Data API key. Required.
func WithAPIKey(key string) Option {
	return func(c *config) { c.apiKey = key }
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

// New creates a YouTube client. It fails immediately when no API key is
// configured; there is no degraded mode for this source.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{httpClient: &http.Client{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.apiKey == "" {
		return nil, fmt.Errorf("%w: YOUTUBE_API_KEY is required", comment.ErrConfigMissing)
	}

	return &Client{
		apiKey:     cfg.apiKey,
		baseURL:    defaultBaseURL,
		httpClient: cfg.httpClient,
		cache:      cfg.cache,
		logger:     cfg.logger,
	}, nil
}

type threadsResponse struct {
	Items []struct {
		Snippet struct {
			TopLevelComment struct {
				Snippet struct {
					AuthorDisplayName string `json:"authorDisplayName"`
					AuthorChannelID   struct {
						Value string `json:"value"`
					} `json:"authorChannelId"`
					TextOriginal string `json:"textOriginal"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
}

// FetchComments retrieves the top-level comment threads for a video.
func (c *Client) FetchComments(ctx context.Context, videoURL string) ([]comment.Comment, error) {
	videoID, err := VideoID(videoURL)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("part", "snippet")
	query.Set("videoId", videoID)
	query.Set("maxResults", fmt.Sprint(maxResults))
	query.Set("key", c.apiKey)
	endpoint := c.baseURL + "/commentThreads?" + query.Encode()

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

	var resp threadsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", comment.ErrMalformedResponse, err)
	}

	comments := make([]comment.Comment, 0, len(resp.Items))
	for _, item := range resp.Items {
		snippet := item.Snippet.TopLevelComment.Snippet
		if snippet.AuthorDisplayName == "" {
			continue
		}
		comments = append(comments, comment.Comment{
			Username:       snippet.AuthorDisplayName,
			Text:           snippet.TextOriginal,
			PlatformUserID: snippet.AuthorChannelID.Value,
		})
	}

	c.logger.InfoContext(ctx, "fetched youtube comments", "video_id", videoID, "count", len(comments))
	return comments, nil
}

// statusError maps API failures to the shared error taxonomy.
// Cancellation passes through untouched.
func statusError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var httpErr *cache.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("%w: youtube API rejected the key or the quota is exhausted (HTTP 403)", comment.ErrSourceUnavailable)
		case http.StatusNotFound:
			return fmt.Errorf("%w: video not found or comments disabled (HTTP 404)", comment.ErrSourceUnavailable)
		case http.StatusBadRequest:
			return fmt.Errorf("%w: youtube API rejected the request (HTTP 400); check the API key", comment.ErrConfigMissing)
		default:
			return fmt.Errorf("%w: youtube API returned HTTP %d", comment.ErrSourceUnavailable, httpErr.StatusCode)
		}
	}
	return fmt.Errorf("%w: %v", comment.ErrSourceUnavailable, err)
}
