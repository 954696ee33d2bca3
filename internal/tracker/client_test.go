package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestNewClient verifies the constructor creates a properly configured client.
func TestNewClient(t *testing.T) {
	t.Parallel()

	client := NewClient("test-token", "rust-lang", "rust")

	if client.Token != "test-token" {
		t.Errorf("Token = %q, want %q", client.Token, "test-token")
	}
	if client.Owner != "rust-lang" || client.Repo != "rust" {
		t.Errorf("Owner/Repo = %q/%q, want rust-lang/rust", client.Owner, client.Repo)
	}
	if client.BaseURL != DefaultAPIEndpoint {
		t.Errorf("BaseURL = %q, want %q", client.BaseURL, DefaultAPIEndpoint)
	}
	if client.HTTPClient == nil {
		t.Error("HTTPClient is nil, want non-nil default client")
	}
}

// TestClientWithBaseURL verifies custom base URL setting.
func TestClientWithBaseURL(t *testing.T) {
	t.Parallel()

	client := NewClient("token", "owner", "repo").WithBaseURL("https://github.example.com/api/v3")
	if client.BaseURL != "https://github.example.com/api/v3" {
		t.Errorf("BaseURL = %q, want custom URL", client.BaseURL)
	}
}

func TestClientWithHTTPClient(t *testing.T) {
	t.Parallel()

	custom := &http.Client{Timeout: 60 * time.Second}
	client := NewClient("token", "owner", "repo").WithHTTPClient(custom)
	if client.HTTPClient != custom {
		t.Error("HTTPClient not set to custom client")
	}
}

// issuePayload builds a GitHub issues response entry.
func issuePayload(number uint64, isPR bool) map[string]any {
	m := map[string]any{"number": number}
	if isPR {
		m["pull_request"] = map[string]any{"url": "https://example.com/pr"}
	}
	return m
}

func TestFetchOpenIssues_Pagination(t *testing.T) {
	t.Parallel()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/repos/rust-lang/rust/issues") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("state"); got != "open" {
			t.Errorf("state param = %q, want open", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q, want Bearer tok", got)
		}

		var body []map[string]any
		switch r.URL.Query().Get("page") {
		case "", "1":
			// Page one includes a pull request which must be excluded.
			body = []map[string]any{
				issuePayload(100, false),
				issuePayload(101, true),
				issuePayload(102, false),
			}
			w.Header().Set("Link", fmt.Sprintf(`<%s/repos/rust-lang/rust/issues?page=2>; rel="next"`, srv.URL))
		case "2":
			body = []map[string]any{issuePayload(200, false)}
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	client := NewClient("tok", "rust-lang", "rust").WithBaseURL(srv.URL)
	open, pages, err := client.FetchOpenIssues(context.Background())
	if err != nil {
		t.Fatalf("FetchOpenIssues failed: %v", err)
	}

	if pages != 2 {
		t.Errorf("pages = %d, want 2", pages)
	}
	want := []uint64{100, 102, 200}
	if len(open) != len(want) {
		t.Fatalf("open set = %v, want %v", open, want)
	}
	for _, n := range want {
		if _, ok := open[n]; !ok {
			t.Errorf("issue %d missing from open set", n)
		}
	}
	if _, ok := open[101]; ok {
		t.Error("pull request 101 leaked into the open issue set")
	}
}

func TestFetchOpenIssues_Unauthenticated(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization = %q, want no header without token", got)
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{issuePayload(7, false)})
	}))
	defer srv.Close()

	client := NewClient("", "rust-lang", "rust").WithBaseURL(srv.URL)
	open, _, err := client.FetchOpenIssues(context.Background())
	if err != nil {
		t.Fatalf("FetchOpenIssues failed: %v", err)
	}
	if _, ok := open[7]; !ok {
		t.Errorf("open set = %v, want issue 7", open)
	}
}

func TestFetchOpenIssues_ErrorIncludesPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient("tok", "rust-lang", "rust").WithBaseURL(srv.URL)
	_, _, err := client.FetchOpenIssues(context.Background())
	if err == nil {
		t.Fatal("FetchOpenIssues = nil error, want failure")
	}
	if !strings.Contains(err.Error(), "page 1") {
		t.Errorf("error %q does not identify the failing page", err)
	}
}

func TestHasNextPage(t *testing.T) {
	t.Parallel()

	h := http.Header{}
	if hasNextPage(h) {
		t.Error("hasNextPage = true for empty headers")
	}

	h.Set("Link", `<https://api.github.com/repos/o/r/issues?page=2>; rel="next", <https://api.github.com/repos/o/r/issues?page=50>; rel="last"`)
	if !hasNextPage(h) {
		t.Error("hasNextPage = false with a next relation present")
	}

	h.Set("Link", `<https://api.github.com/repos/o/r/issues?page=1>; rel="prev"`)
	if hasNextPage(h) {
		t.Error("hasNextPage = true with only a prev relation")
	}
}
