// Package threadsift ingests public comment threads and extracts
// contact signals from them.
//
// Supported sources are YouTube videos, Reddit posts, and Facebook
// posts. Analyze classifies the URL, fetches and flattens the thread
// through the matching adapter, and aggregates the comments into
// per-participant results with ranked email signals.
package threadsift

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/codeGROOVE-dev/threadsift/aggregate"
	"github.com/codeGROOVE-dev/threadsift/cache"
	"github.com/codeGROOVE-dev/threadsift/comment"
	"github.com/codeGROOVE-dev/threadsift/facebook"
	"github.com/codeGROOVE-dev/threadsift/proxyfetch"
	"github.com/codeGROOVE-dev/threadsift/reddit"
	"github.com/codeGROOVE-dev/threadsift/youtube"
)

// Detect classifies a URL to its source platform. Classification is
// pure string inspection; no network calls.
func Detect(rawURL string) (comment.Platform, bool) {
	switch {
	case youtube.Match(rawURL):
		return comment.PlatformYouTube, true
	case reddit.Match(rawURL):
		return comment.PlatformReddit, true
	case facebook.Match(rawURL):
		return comment.PlatformFacebook, true
	default:
		return "", false
	}
}

// Option configures an analysis run.
type Option func(*config)

type config struct {
	cache             cache.HTTPCache
	logger            *slog.Logger
	youtubeAPIKey     string
	facebookPageToken string
	redditCookies     map[string]string
	browserCookies    bool
	rng               *rand.Rand
	fetcher           proxyfetch.Fetcher
}

// WithHTTPCache sets an HTTP response cache shared by the API-backed
// adapters.
func WithHTTPCache(hc cache.HTTPCache) Option {
	return func(c *config) { c.cache = hc }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithYouTubeAPIKey sets the YouTube Data API key.
func WithYouTubeAPIKey(key string) Option {
	return func(c *config) { c.youtubeAPIKey = key }
}

// WithFacebookPageToken sets the Graph API page access token.
func WithFacebookPageToken(token string) Option {
	return func(c *config) { c.facebookPageToken = token }
}

// WithRedditCookies sets explicit Reddit session cookies.
func WithRedditCookies(cookies map[string]string) Option {
	return func(c *config) { c.redditCookies = cookies }
}

// WithBrowserCookies enables reading Reddit cookies from installed
// browsers.
func WithBrowserCookies(enabled bool) Option {
	return func(c *config) { c.browserCookies = enabled }
}

// WithRand sets the randomness source used for inferred signals. Tests
// pass a seeded source for deterministic output.
func WithRand(rng *rand.Rand) Option {
	return func(c *config) { c.rng = rng }
}

// WithFetcher replaces the resilient retrieval transport used for
// Reddit (for tests).
func WithFetcher(f proxyfetch.Fetcher) Option {
	return func(c *config) { c.fetcher = f }
}

// Analyze runs the full pipeline for one URL: classify, fetch, flatten,
// extract, aggregate. An unsupported URL fails with ErrUnsupportedSource
// before any network activity.
func Analyze(ctx context.Context, rawURL string, opts ...Option) (*comment.Outcome, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.rng == nil {
		cfg.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	platform, ok := Detect(rawURL)
	if !ok {
		return nil, fmt.Errorf("%w: %s", comment.ErrUnsupportedSource, rawURL)
	}
	cfg.logger.InfoContext(ctx, "analyzing thread", "url", rawURL, "platform", platform)

	comments, err := fetchComments(ctx, platform, rawURL, cfg)
	if err != nil {
		return nil, err
	}

	participants := aggregate.Results(aggregate.Fold(comments), platform, cfg.rng)

	signals := 0
	for i := range participants {
		signals += len(participants[i].Signals)
	}

	cfg.logger.InfoContext(ctx, "analysis complete",
		"url", rawURL, "comments", len(comments), "participants", len(participants), "signals", signals)

	return &comment.Outcome{
		SourceURL:    rawURL,
		Platform:     platform,
		Comments:     len(comments),
		Participants: participants,
		SignalsFound: signals,
	}, nil
}

func fetchComments(ctx context.Context, platform comment.Platform, rawURL string, cfg *config) ([]comment.Comment, error) {
	switch platform {
	case comment.PlatformYouTube:
		c, err := youtube.New(ctx,
			youtube.WithAPIKey(cfg.youtubeAPIKey),
			youtube.WithHTTPCache(cfg.cache),
			youtube.WithLogger(cfg.logger))
		if err != nil {
			return nil, err
		}
		return c.FetchComments(ctx, rawURL)

	case comment.PlatformReddit:
		opts := []reddit.Option{
			reddit.WithLogger(cfg.logger),
			reddit.WithCookies(cfg.redditCookies),
			reddit.WithBrowserCookies(cfg.browserCookies),
		}
		if cfg.fetcher != nil {
			opts = append(opts, reddit.WithFetcher(cfg.fetcher))
		}
		c, err := reddit.New(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return c.FetchComments(ctx, rawURL)

	case comment.PlatformFacebook:
		c, err := facebook.New(ctx,
			facebook.WithPageToken(cfg.facebookPageToken),
			facebook.WithHTTPCache(cfg.cache),
			facebook.WithLogger(cfg.logger))
		if err != nil {
			return nil, err
		}
		return c.FetchComments(ctx, rawURL)

	default:
		return nil, fmt.Errorf("%w: %s", comment.ErrUnsupportedSource, rawURL)
	}
}
