package proxyfetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codeGROOVE-dev/threadsift/cache"
)

func testProxyFor(name string, srv *httptest.Server) Proxy {
	return Proxy{
		Name: name,
		Wrap: func(string) string { return srv.URL },
	}
}

func TestFetchJSONDirect(t *testing.T) {
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"kind":"Listing"}`))
	}))
	defer direct.Close()

	c := New(WithProxies(nil))
	body, stage, err := c.FetchJSON(context.Background(), direct.URL, nil)
	if err != nil {
		t.Fatalf("FetchJSON() error = %v", err)
	}
	if stage != StageDirect {
		t.Errorf("stage = %v, want direct", stage)
	}
	if string(body) != `{"kind":"Listing"}` {
		t.Errorf("body = %q", body)
	}
}

func TestFetchJSONBlockedThenProxySucceeds(t *testing.T) {
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer direct.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"kind":"Listing"}]`))
	}))
	defer good.Close()

	var laterCalls int
	later := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		laterCalls++
		_, _ = w.Write([]byte(`{"unexpected":true}`))
	}))
	defer later.Close()

	c := New(WithProxies([]Proxy{
		testProxyFor("good", good),
		testProxyFor("later", later),
	}))

	body, stage, err := c.FetchJSON(context.Background(), direct.URL, nil)
	if err != nil {
		t.Fatalf("FetchJSON() error = %v", err)
	}
	if stage != StageProxy1 {
		t.Errorf("stage = %v, want proxy_1", stage)
	}
	if string(body) != `[{"kind":"Listing"}]` {
		t.Errorf("body = %q", body)
	}
	if laterCalls != 0 {
		t.Errorf("later proxy called %d times, want 0 (first valid answer wins)", laterCalls)
	}
}

func TestFetchJSONExhaustedSurfacesOriginalBlock(t *testing.T) {
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer direct.Close()

	htmlProxy1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<!DOCTYPE html><html>proxy error page</html>"))
	}))
	defer htmlProxy1.Close()

	htmlProxy2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>another error page</html>"))
	}))
	defer htmlProxy2.Close()

	c := New(WithProxies([]Proxy{
		testProxyFor("p1", htmlProxy1),
		testProxyFor("p2", htmlProxy2),
	}))

	_, stage, err := c.FetchJSON(context.Background(), direct.URL, nil)
	if stage != StageExhausted {
		t.Errorf("stage = %v, want exhausted", stage)
	}

	var httpErr *cache.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("error = %v, want *cache.HTTPError carrying the original block", err)
	}
	if httpErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", httpErr.StatusCode)
	}
}

func TestFetchJSONDefinitiveAnswerSkipsProxies(t *testing.T) {
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer direct.Close()

	var proxyCalls int
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		proxyCalls++
		_, _ = w.Write([]byte(`{}`))
	}))
	defer proxy.Close()

	c := New(WithProxies([]Proxy{testProxyFor("p", proxy)}))

	_, _, err := c.FetchJSON(context.Background(), direct.URL, nil)
	var httpErr *cache.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		t.Fatalf("error = %v, want HTTP 404", err)
	}
	if proxyCalls != 0 {
		t.Errorf("proxy called %d times for a definitive 404, want 0", proxyCalls)
	}
}

func TestFetchHTMLAcceptsHTML(t *testing.T) {
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><link rel="canonical" href="https://x/comments/1/"></html>`))
	}))
	defer direct.Close()

	c := New(WithProxies(nil))
	body, stage, err := c.FetchHTML(context.Background(), direct.URL, nil)
	if err != nil {
		t.Fatalf("FetchHTML() error = %v", err)
	}
	if stage != StageDirect {
		t.Errorf("stage = %v, want direct", stage)
	}
	if len(body) == 0 {
		t.Error("FetchHTML() returned empty body")
	}
}

func TestProxyDecodeEnvelope(t *testing.T) {
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer direct.Close()

	envelope := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"contents":"{\"kind\":\"Listing\"}"}`))
	}))
	defer envelope.Close()

	c := New(WithProxies([]Proxy{{
		Name:   "allorigins-get",
		Wrap:   func(string) string { return envelope.URL },
		Decode: decodeAllOrigins,
	}}))

	body, _, err := c.FetchJSON(context.Background(), direct.URL, nil)
	if err != nil {
		t.Fatalf("FetchJSON() error = %v", err)
	}
	if string(body) != `{"kind":"Listing"}` {
		t.Errorf("decoded body = %q", body)
	}
}

func TestFetchJSONCanceledContext(t *testing.T) {
	var proxyCalls int
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		proxyCalls++
		_, _ = w.Write([]byte(`{}`))
	}))
	defer proxy.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(WithProxies([]Proxy{testProxyFor("p", proxy)}))
	_, _, err := c.FetchJSON(ctx, "http://127.0.0.1:1/unreachable", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("FetchJSON() with canceled ctx error = %v, want context.Canceled", err)
	}
	if proxyCalls != 0 {
		t.Errorf("proxy called %d times after cancellation, want 0", proxyCalls)
	}
}

func TestStageString(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageDirect, "direct"},
		{StageProxy1, "proxy_1"},
		{StageProxy4, "proxy_4"},
		{StageExhausted, "exhausted"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("Stage(%d).String() = %q, want %q", int(tt.stage), got, tt.want)
		}
	}
}
