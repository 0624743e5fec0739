// Command threadsift extracts contact signals from public comment threads.
//
// Usage:
//
//	threadsift https://www.youtube.com/watch?v=dQw4w9WgXcQ   # requires YOUTUBE_API_KEY
//	threadsift https://www.reddit.com/r/golang/comments/abc/title/
//	threadsift https://www.facebook.com/page/posts/123       # requires FACEBOOK_PAGE_TOKEN
//	threadsift -list
//	threadsift -get <session-id>
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/codeGROOVE-dev/threadsift"
	"github.com/codeGROOVE-dev/threadsift/cache"
	"github.com/codeGROOVE-dev/threadsift/session"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	verbose := flag.Bool("v", false, "verbose logging (same as -debug)")
	noBrowser := flag.Bool("no-browser", false, "disable reading Reddit cookies from browser stores")
	noCache := flag.Bool("no-cache", false, "disable HTTP caching (enabled by default with 24h TTL)")
	cacheTTL := flag.Duration("cache-ttl", 24*time.Hour, "cache time-to-live")
	dbPath := flag.String("db", defaultDBPath(), "session database path (empty for in-memory)")
	list := flag.Bool("list", false, "list stored sessions")
	get := flag.String("get", "", "print a stored session by ID")
	del := flag.String("delete", "", "delete a stored session by ID")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug || *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	store := openStore(*dbPath, logger)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close session store", "error", err)
		}
	}()

	ctx := context.Background()

	switch {
	case *list:
		records, err := store.List(ctx)
		if err != nil {
			fatal(err)
		}
		for _, rec := range records {
			fmt.Printf("%s  %-10s  %s\n", rec.ID, rec.Status, rec.URL)
		}
		return
	case *get != "":
		rec, err := store.Get(ctx, *get)
		if err != nil {
			fatal(err)
		}
		if err := outputJSON(rec); err != nil {
			fatal(err)
		}
		return
	case *del != "":
		if err := store.Delete(ctx, *del); err != nil {
			fatal(err)
		}
		return
	}

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: threadsift [options] <url>")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr, "\nSupported sources:")
		fmt.Fprintln(os.Stderr, "  - YouTube videos (requires YOUTUBE_API_KEY)")
		fmt.Fprintln(os.Stderr, "  - Reddit posts and shortlinks (no auth; browser cookies help)")
		fmt.Fprintln(os.Stderr, "  - Facebook posts (FACEBOOK_PAGE_TOKEN optional)")
		os.Exit(1)
	}
	input := flag.Arg(0)

	var httpCache cache.HTTPCache
	if !*noCache {
		sfc, err := cache.New(*cacheTTL)
		if err != nil {
			logger.Warn("failed to initialize cache, continuing without cache", "error", err)
		} else {
			defer func() {
				if err := sfc.Close(); err != nil {
					logger.Warn("failed to close cache", "error", err)
				}
			}()
			httpCache = sfc
			logger.Debug("HTTP cache initialized", "ttl", cacheTTL.String())
		}
	}

	opts := []threadsift.Option{
		threadsift.WithLogger(logger),
		threadsift.WithYouTubeAPIKey(os.Getenv("YOUTUBE_API_KEY")),
		threadsift.WithFacebookPageToken(os.Getenv("FACEBOOK_PAGE_TOKEN")),
		threadsift.WithBrowserCookies(!*noBrowser),
	}
	if httpCache != nil {
		opts = append(opts, threadsift.WithHTTPCache(httpCache))
	}

	rec, err := store.Create(ctx, input)
	if err != nil {
		fatal(err)
	}

	outcome, err := threadsift.Analyze(ctx, input, opts...)
	if err != nil {
		if failErr := store.Fail(ctx, rec.ID, err.Error()); failErr != nil {
			logger.Warn("failed to record session failure", "error", failErr)
		}
		fatal(err) //nolint:gocritic // exitAfterDefer is acceptable in main
	}

	if err := store.Complete(ctx, rec.ID, outcome); err != nil {
		logger.Warn("failed to store session results", "session", rec.ID, "error", err)
	}

	if err := outputJSON(outcome); err != nil {
		fatal(err)
	}
}

func openStore(path string, logger *slog.Logger) session.Store {
	if path == "" {
		return session.NewMemory()
	}
	store, err := session.OpenSQLite(path)
	if err != nil {
		logger.Warn("failed to open session database, using in-memory store", "path", path, "error", err)
		return session.NewMemory()
	}
	return store
}

func defaultDBPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	base := filepath.Join(dir, "threadsift")
	if err := os.MkdirAll(base, 0o700); err != nil {
		return ""
	}
	return filepath.Join(base, "sessions.db")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
