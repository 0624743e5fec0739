// Package infer synthesizes low-confidence contact candidates from
// usernames when no explicit signal was found.
//
// Domain choice is intentionally randomized for non-video platforms, so
// every function takes an explicit *rand.Rand; tests seed it, production
// callers pass an entropy-seeded source.
package infer

import (
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/codeGROOVE-dev/threadsift/comment"
)

// Priority providers get a 75% share of inferred domains; the rest is
// spread uniformly over secondary providers.
var (
	priorityDomains = []string{"gmail.com", "yahoo.com", "outlook.com"}
	otherDomains    = []string{"hotmail.com", "icloud.com", "protonmail.com", "zoho.com", "yandex.com", "aol.com"}
)

const priorityShare = 0.75

// Confidence bounds for inferred signals. The range must stay below the
// explicit-signal confidence of 95 so explicit always outranks inferred.
const (
	ConfidenceMin = 55
	ConfidenceMax = 75
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]`)

// Email derives a synthetic address from a username. For the video
// platform the domain is always gmail.com; otherwise it is drawn from a
// weighted choice over the provider tiers.
func Email(username string, platform comment.Platform, rng *rand.Rand) string {
	local := nonAlnumRe.ReplaceAllString(strings.ToLower(username), "")

	if platform == comment.PlatformYouTube {
		return local + "@gmail.com"
	}
	return local + "@" + pickDomain(rng)
}

// Confidence returns a uniformly random confidence in [ConfidenceMin, ConfidenceMax].
func Confidence(rng *rand.Rand) int {
	return ConfidenceMin + rng.IntN(ConfidenceMax-ConfidenceMin+1)
}

func pickDomain(rng *rand.Rand) string {
	if rng.Float64() < priorityShare {
		return priorityDomains[rng.IntN(len(priorityDomains))]
	}
	return otherDomains[rng.IntN(len(otherDomains))]
}
