// Package comment defines the common types for comment-thread ingestion
// and contact-signal extraction.
package comment

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Common errors returned by platform packages and the pipeline.
var (
	// ErrUnsupportedSource means the URL matched no supported platform.
	// It is returned before any network activity.
	ErrUnsupportedSource = errors.New("unsupported source URL")

	// ErrConfigMissing means a required platform credential is absent.
	ErrConfigMissing = errors.New("source credential not configured")

	// ErrSourceUnavailable means the upstream gave a definitive error or
	// every fallback strategy was exhausted.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedResponse means the upstream body did not decode as the
	// expected structured format.
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// Platform identifies a supported comment source.
type Platform string

// Supported platforms.
const (
	PlatformYouTube  Platform = "youtube"
	PlatformReddit   Platform = "reddit"
	PlatformFacebook Platform = "facebook"
)

// Comment is a minimally-normalized comment as produced by an adapter.
// It is never mutated after creation.
type Comment struct {
	Username       string `json:"username"`
	Text           string `json:"text"`
	PlatformUserID string `json:"platform_user_id,omitempty"` // optional; platform-internal author ID
}

// SignalKind is the kind of contact signal.
type SignalKind string

// KindEmail is the only signal kind currently produced.
const KindEmail SignalKind = "email"

// SignalSource says how a signal was obtained.
type SignalSource string

// Signal sources.
const (
	// SourceExplicit means the value was extracted from comment text.
	SourceExplicit SignalSource = "explicit"
	// SourceInferred means the value was synthesized from the username.
	SourceInferred SignalSource = "inferred"
)

// Signal is one contact candidate for a participant.
type Signal struct {
	Value      string       `json:"value"`
	Kind       SignalKind   `json:"kind"`
	Source     SignalSource `json:"source"`
	Confidence int          `json:"confidence"` // 0-100
	Primary    bool         `json:"primary"`
}

// Participant is the aggregated result for one commenter.
// Signals is ordered; exactly one entry has Primary=true and it is first.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Participant struct {
	Username       string   `json:"username"`
	DisplayName    string   `json:"display_name"`
	ProfileURL     string   `json:"profile_url"`
	CommentSnippet string   `json:"comment_snippet"` // first comment, bounded length
	CommentCount   int      `json:"comment_count"`
	Signals        []Signal `json:"signals"`
}

// PrimarySignal returns the participant's primary signal.
func (p *Participant) PrimarySignal() Signal {
	for _, s := range p.Signals {
		if s.Primary {
			return s
		}
	}
	return Signal{}
}

// Outcome is the result of one pipeline run.
type Outcome struct {
	SourceURL    string        `json:"source_url"`
	Platform     Platform      `json:"platform"`
	Comments     int           `json:"comments"`
	Participants []Participant `json:"participants"`
	SignalsFound int           `json:"signals_found"`
}

var profileNameRe = regexp.MustCompile(`[^a-z0-9._-]`)

// ProfileURL builds a best-effort public profile URL for a participant.
// When the platform exposes a stable user ID, it is preferred over the
// display username.
func ProfileURL(platform Platform, username, platformUserID string) string {
	clean := profileNameRe.ReplaceAllString(strings.ToLower(username), "")

	switch platform {
	case PlatformYouTube:
		if platformUserID != "" {
			return fmt.Sprintf("https://youtube.com/channel/%s", platformUserID)
		}
		return fmt.Sprintf("https://youtube.com/@%s", clean)
	case PlatformReddit:
		return fmt.Sprintf("https://reddit.com/user/%s", clean)
	case PlatformFacebook:
		if platformUserID != "" {
			return fmt.Sprintf("https://facebook.com/profile.php?id=%s", platformUserID)
		}
		return fmt.Sprintf("https://facebook.com/%s", clean)
	default:
		return ""
	}
}
