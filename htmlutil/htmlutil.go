// Package htmlutil extracts canonical URLs and structured metadata from
// raw HTML using regex-based parsing.
package htmlutil

import (
	"bytes"
	"encoding/json"
	"regexp"
)

var (
	canonicalRe = regexp.MustCompile(`(?i)<link[^>]*rel=["']canonical["'][^>]*href=["']([^"']+)["']`)
	// href-before-rel attribute order.
	canonicalAltRe = regexp.MustCompile(`(?i)<link[^>]*href=["']([^"']+)["'][^>]*rel=["']canonical["']`)
	jsonLdRe       = regexp.MustCompile(`(?is)<script[^>]*type=["']application/ld\+json["'][^>]*>(.*?)</script>`)
)

// CanonicalLink returns the href of the page's canonical link tag, or "".
func CanonicalLink(html string) string {
	if m := canonicalRe.FindStringSubmatch(html); len(m) > 1 {
		return m[1]
	}
	if m := canonicalAltRe.FindStringSubmatch(html); len(m) > 1 {
		return m[1]
	}
	return ""
}

// StructuredDataURL returns the url field of the page's first JSON-LD
// block, or "".
func StructuredDataURL(html string) string {
	m := jsonLdRe.FindStringSubmatch(html)
	if len(m) < 2 {
		return ""
	}

	var data struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
		return ""
	}
	return data.URL
}

// IsHTML reports whether body looks like an HTML document. Proxies have a
// habit of returning HTML error pages with status 200.
func IsHTML(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return false
	}
	lower := bytes.ToLower(trimmed[:min(len(trimmed), 64)])
	return bytes.HasPrefix(lower, []byte("<!doctype")) || bytes.HasPrefix(lower, []byte("<html"))
}
