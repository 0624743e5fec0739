package htmlutil

import "testing"

func TestCanonicalLink(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			"rel before href",
			`<head><link rel="canonical" href="https://www.reddit.com/r/golang/comments/abc/title/"></head>`,
			"https://www.reddit.com/r/golang/comments/abc/title/",
		},
		{
			"href before rel",
			`<link href="https://example.org/page" rel="canonical">`,
			"https://example.org/page",
		},
		{
			"single quotes",
			`<link rel='canonical' href='https://example.org/q'>`,
			"https://example.org/q",
		},
		{"no canonical", `<link rel="stylesheet" href="/main.css">`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalLink(tt.html); got != tt.want {
				t.Errorf("CanonicalLink() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStructuredDataURL(t *testing.T) {
	html := `<script type="application/ld+json">{"@type":"DiscussionForumPosting","url":"https://www.reddit.com/r/golang/comments/xyz/post/"}</script>`
	if got := StructuredDataURL(html); got != "https://www.reddit.com/r/golang/comments/xyz/post/" {
		t.Errorf("StructuredDataURL() = %q", got)
	}

	if got := StructuredDataURL(`<script type="application/ld+json">not json</script>`); got != "" {
		t.Errorf("StructuredDataURL() on invalid JSON = %q, want empty", got)
	}
	if got := StructuredDataURL("<p>no scripts</p>"); got != "" {
		t.Errorf("StructuredDataURL() without JSON-LD = %q, want empty", got)
	}
}

func TestIsHTML(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"doctype", "<!DOCTYPE html><html></html>", true},
		{"html tag", "<html><body>blocked</body></html>", true},
		{"leading whitespace", "\n\t <!doctype html>", true},
		{"json", `{"kind":"Listing"}`, false},
		{"json array", `[{"kind":"Listing"}]`, false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHTML([]byte(tt.body)); got != tt.want {
				t.Errorf("IsHTML(%q) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}
