// Package extract finds explicit email addresses in comment text and
// ranks them by provider priority.
package extract

import (
	"regexp"
	"strings"
)

// emailRe matches token sequences shaped like local@domain.tld.
var emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// priorityDomains are the major consumer providers ranked ahead of all
// other domains.
var priorityDomains = map[string]bool{
	"gmail.com":   true,
	"yahoo.com":   true,
	"outlook.com": true,
}

// imageExts are filename extensions that mark a match as an image artifact
// rather than a real address.
var imageExts = []string{".png", ".jpg", ".gif", ".svg"}

// minLength is the shortest plausible real address; anything at or below
// this (like t@e.co) is noise.
const minLength = 6

// Emails returns the email addresses found in text, lowercased and
// deduplicated, in discovery order. Placeholder addresses and image
// filename artifacts are filtered out.
func Emails(text string) []string {
	if text == "" {
		return nil
	}

	var emails []string
	seen := make(map[string]bool)
	for _, m := range emailRe.FindAllString(text, -1) {
		email := strings.ToLower(strings.TrimSpace(m))
		if !valid(email) || seen[email] {
			continue
		}
		seen[email] = true
		emails = append(emails, email)
	}
	return emails
}

func valid(email string) bool {
	if len(email) <= minLength {
		return false
	}
	if strings.Contains(email, "example.com") {
		return false
	}
	if strings.HasPrefix(email, "test@") || strings.HasPrefix(email, "example@") {
		return false
	}

	local, domain, ok := strings.Cut(email, "@")
	if !ok || !strings.Contains(domain, ".") {
		return false
	}
	for _, ext := range imageExts {
		if strings.HasSuffix(email, ext) || strings.HasSuffix(local, ext) {
			return false
		}
	}
	return true
}

// Rank orders emails so that priority-provider addresses come first.
// Relative order within each tier is preserved.
func Rank(emails []string) []string {
	if len(emails) < 2 {
		return emails
	}

	ranked := make([]string, 0, len(emails))
	for _, e := range emails {
		if priorityDomains[domainOf(e)] {
			ranked = append(ranked, e)
		}
	}
	for _, e := range emails {
		if !priorityDomains[domainOf(e)] {
			ranked = append(ranked, e)
		}
	}
	return ranked
}

// IsPriorityDomain reports whether domain is one of the priority consumer
// mail providers.
func IsPriorityDomain(domain string) bool {
	return priorityDomains[strings.ToLower(domain)]
}

func domainOf(email string) string {
	_, domain, _ := strings.Cut(email, "@")
	return domain
}
