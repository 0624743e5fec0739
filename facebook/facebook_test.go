package facebook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/threadsift/comment"
)

func TestPostID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"page post", "https://www.facebook.com/somepage/posts/pfbid0abc123", "pfbid0abc123", false},
		{"permalink", "https://www.facebook.com/permalink.php?story_fbid=123456&id=789", "123456", false},
		{"video", "https://www.facebook.com/somepage/videos/123456789/", "123456789", false},
		{"group post", "https://www.facebook.com/groups/111/posts/222/", "111_222", false},
		{"profile page", "https://www.facebook.com/somepage/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PostID(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PostID(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("PostID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestFetchCommentsWithoutToken(t *testing.T) {
	c, err := New(context.Background())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := c.FetchComments(context.Background(), "https://www.facebook.com/page/posts/abc123")
	if err != nil {
		t.Fatalf("FetchComments() without token error = %v, want graceful empty result", err)
	}
	if len(got) != 0 {
		t.Errorf("FetchComments() without token = %d comments, want 0", len(got))
	}
}

const graphJSON = `{"data":[
  {"from":{"name":"Alice Smith","id":"100001"},"message":"contact me: alice@yahoo.com"},
  {"from":{"name":"Bob Jones","id":"100002"},"message":"nice post"},
  {"from":{"name":"","id":"100003"},"message":"anonymous"}
]}`

func TestFetchComments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/abc123/comments" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("access_token") != "test-token" {
			t.Errorf("missing access token in %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(graphJSON))
	}))
	defer srv.Close()

	c, err := New(context.Background(), WithPageToken("test-token"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.baseURL = srv.URL

	got, err := c.FetchComments(context.Background(), "https://www.facebook.com/page/posts/abc123")
	if err != nil {
		t.Fatalf("FetchComments() error = %v", err)
	}

	want := []comment.Comment{
		{Username: "Alice Smith", Text: "contact me: alice@yahoo.com", PlatformUserID: "100001"},
		{Username: "Bob Jones", Text: "nice post", PlatformUserID: "100002"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FetchComments() mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchCommentsGraphError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[],"error":{"message":"Unsupported get request","code":100}}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), WithPageToken("test-token"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.baseURL = srv.URL

	_, err = c.FetchComments(context.Background(), "https://www.facebook.com/page/posts/abc123")
	if !errors.Is(err, comment.ErrSourceUnavailable) {
		t.Errorf("FetchComments() error = %v, want ErrSourceUnavailable", err)
	}
}

func TestFetchCommentsBadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := New(context.Background(), WithPageToken("expired"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.baseURL = srv.URL

	_, err = c.FetchComments(context.Background(), "https://www.facebook.com/page/posts/abc123")
	if !errors.Is(err, comment.ErrConfigMissing) {
		t.Errorf("FetchComments() error = %v, want ErrConfigMissing", err)
	}
}
