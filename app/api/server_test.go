package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/lysyi3m/board-feeds/app/dispatch"
)

type mockResolver struct {
	mu       sync.Mutex
	docs     map[string]string
	err      error
	requests []dispatch.Request
}

func (m *mockResolver) Resolve(ctx context.Context, req dispatch.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	if m.err != nil {
		return "", m.err
	}
	doc, ok := m.docs[req.Key()]
	if !ok {
		return "", fmt.Errorf("%w: %s", dispatch.ErrNotFound, req.Key())
	}
	return doc, nil
}

type mockCache struct{ n int }

func (m mockCache) Len() int { return m.n }

func newTestServer(t *testing.T, resolver *mockResolver) http.Handler {
	t.Helper()

	staticDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(staticDir, stylesheetFile), []byte("rss { display: block; }"), 0644); err != nil {
		t.Fatal(err)
	}

	handler := NewHandler(resolver, mockCache{n: 3}, "test")
	return NewServer(handler, staticDir)
}

func doGet(server http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestBoardFeedRoute(t *testing.T) {
	resolver := &mockResolver{docs: map[string]string{"a-": "<rss>board</rss>"}}
	server := newTestServer(t, resolver)

	rec := doGet(server, "/a")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != xmlContentType {
		t.Errorf("Expected content type %q, got %q", xmlContentType, ct)
	}
	if rec.Body.String() != "<rss>board</rss>" {
		t.Errorf("Unexpected body: %s", rec.Body.String())
	}
	if len(resolver.requests) != 1 || resolver.requests[0] != dispatch.BoardRequest("a") {
		t.Errorf("Expected a single board request, got %+v", resolver.requests)
	}
}

func TestThreadFeedRoute(t *testing.T) {
	resolver := &mockResolver{docs: map[string]string{"a-42": "<rss>thread</rss>"}}
	server := newTestServer(t, resolver)

	rec := doGet(server, "/a/42")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "<rss>thread</rss>" {
		t.Errorf("Unexpected body: %s", rec.Body.String())
	}
	if resolver.requests[0] != dispatch.ThreadRequest("a", "42") {
		t.Errorf("Expected thread request, got %+v", resolver.requests[0])
	}
}

func TestSitemapRoute(t *testing.T) {
	resolver := &mockResolver{docs: map[string]string{dispatch.SitemapKey: "<sitemapindex/>"}}
	server := newTestServer(t, resolver)

	rec := doGet(server, "/sitemap.xml")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "<sitemapindex/>" {
		t.Errorf("Unexpected body: %s", rec.Body.String())
	}
	if !resolver.requests[0].Sitemap {
		t.Error("Expected sitemap request")
	}
}

func TestNotFound(t *testing.T) {
	tests := []struct {
		name string
		path string
		err  error
	}{
		{"missing board", "/missing", nil},
		{"missing thread", "/a/999", nil},
		{"sitemap failure", "/sitemap.xml", nil},
		{"unexpected error", "/a", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &mockResolver{docs: map[string]string{}, err: tt.err}
			server := newTestServer(t, resolver)

			rec := doGet(server, tt.path)

			if rec.Code != http.StatusNotFound {
				t.Errorf("Expected status 404, got %d", rec.Code)
			}
			if rec.Body.String() != "Not found" {
				t.Errorf("Expected body 'Not found', got %q", rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/xml") {
				t.Errorf("Expected XML content type on 404, got %q", ct)
			}
		})
	}
}

func TestStylesheetRoute(t *testing.T) {
	resolver := &mockResolver{docs: map[string]string{}}
	server := newTestServer(t, resolver)

	rec := doGet(server, "/xml-styles.css")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "display: block") {
		t.Errorf("Unexpected stylesheet body: %s", rec.Body.String())
	}
	if len(resolver.requests) != 0 {
		t.Error("Stylesheet request should not reach the resolver")
	}
}

func TestHealthRoute(t *testing.T) {
	server := newTestServer(t, &mockResolver{})

	rec := doGet(server, "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if body["cache_entries"] != float64(3) {
		t.Errorf("Expected cache_entries 3, got %v", body["cache_entries"])
	}
	if body["version"] != "test" {
		t.Errorf("Expected version 'test', got %v", body["version"])
	}
}

func TestMetricsRoute(t *testing.T) {
	resolver := &mockResolver{docs: map[string]string{"a-": "<rss/>"}}
	server := newTestServer(t, resolver)

	doGet(server, "/a")
	rec := doGet(server, "/metrics")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `http_requests_total{method="GET",path="/:board",status="200"}`) {
		t.Error("Metrics should count requests by route pattern")
	}
}

func TestFavicon(t *testing.T) {
	server := newTestServer(t, &mockResolver{})

	rec := doGet(server, "/favicon.ico")

	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rec.Code)
	}
}
