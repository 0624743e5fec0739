// Package aggregate folds a flat comment list into per-participant
// results with ranked contact signals.
package aggregate

import (
	"math/rand/v2"
	"strings"
	"unicode"

	"github.com/codeGROOVE-dev/threadsift/comment"
	"github.com/codeGROOVE-dev/threadsift/extract"
	"github.com/codeGROOVE-dev/threadsift/infer"
)

// snippetMax bounds the stored comment excerpt.
const snippetMax = 200

// explicitConfidence is the fixed confidence of extracted signals. It
// must exceed infer.ConfidenceMax so explicit always beats inferred.
const explicitConfidence = 95

// Group is one commenter's collected activity, in thread order.
type Group struct {
	Username       string
	PlatformUserID string
	Comments       []comment.Comment
}

// Fold groups comments by author, preserving the order in which each
// author first appeared. The first non-empty platform user ID seen for
// an author wins.
func Fold(comments []comment.Comment) []Group {
	var groups []Group
	index := make(map[string]int)

	for _, c := range comments {
		if c.Username == "" {
			continue
		}
		i, ok := index[c.Username]
		if !ok {
			i = len(groups)
			index[c.Username] = i
			groups = append(groups, Group{Username: c.Username})
		}
		groups[i].Comments = append(groups[i].Comments, c)
		if groups[i].PlatformUserID == "" && c.PlatformUserID != "" {
			groups[i].PlatformUserID = c.PlatformUserID
		}
	}

	return groups
}

// Results builds one Participant per group. Explicit email addresses
// found anywhere in the author's comments become explicit signals,
// ranked by provider tier; an author with none gets a single inferred
// signal instead. Every participant ends up with exactly one primary
// signal, and it is first.
func Results(groups []Group, platform comment.Platform, rng *rand.Rand) []comment.Participant {
	participants := make([]comment.Participant, 0, len(groups))
	for _, g := range groups {
		participants = append(participants, participant(g, platform, rng))
	}
	return participants
}

func participant(g Group, platform comment.Platform, rng *rand.Rand) comment.Participant {
	p := comment.Participant{
		Username:     g.Username,
		DisplayName:  displayName(g.Username),
		ProfileURL:   comment.ProfileURL(platform, g.Username, g.PlatformUserID),
		CommentCount: len(g.Comments),
	}

	if len(g.Comments) > 0 {
		p.CommentSnippet = snippet(g.Comments[0].Text)
	}

	emails := explicitEmails(g.Comments)
	if len(emails) > 0 {
		for i, e := range emails {
			p.Signals = append(p.Signals, comment.Signal{
				Value:      e,
				Kind:       comment.KindEmail,
				Source:     comment.SourceExplicit,
				Confidence: explicitConfidence,
				Primary:    i == 0,
			})
		}
		return p
	}

	p.Signals = []comment.Signal{{
		Value:      infer.Email(g.Username, platform, rng),
		Kind:       comment.KindEmail,
		Source:     comment.SourceInferred,
		Confidence: infer.Confidence(rng),
		Primary:    true,
	}}
	return p
}

// explicitEmails unions the addresses found across all of an author's
// comments, deduplicated in discovery order, then ranked.
func explicitEmails(comments []comment.Comment) []string {
	var all []string
	seen := make(map[string]bool)
	for _, c := range comments {
		for _, e := range extract.Emails(c.Text) {
			if seen[e] {
				continue
			}
			seen[e] = true
			all = append(all, e)
		}
	}
	return extract.Rank(all)
}

func snippet(text string) string {
	if len(text) <= snippetMax {
		return text
	}
	// Cut on a rune boundary.
	cut := snippetMax
	for cut > 0 && !utf8RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }

func displayName(username string) string {
	runes := []rune(strings.TrimSpace(username))
	if len(runes) == 0 {
		return username
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
