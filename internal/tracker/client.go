// Package tracker fetches the set of currently open issue numbers from the
// GitHub REST API.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"crashaudit/internal/log"
)

const (
	// DefaultAPIEndpoint is the public GitHub REST API base URL.
	DefaultAPIEndpoint = "https://api.github.com"

	// DefaultTimeout applies to individual HTTP requests.
	DefaultTimeout = 30 * time.Second

	// MaxPageSize is the largest per_page value GitHub accepts.
	MaxPageSize = 100

	// MaxPages caps pagination as a safety net against a looping Link header.
	MaxPages = 2000

	// MaxRetries is the number of retries after a rate-limited request.
	MaxRetries = 3

	// RetryDelay is the base delay between retries, doubled per attempt.
	RetryDelay = time.Second
)

// Client talks to the issue tracker of a single repository.
type Client struct {
	Token      string
	Owner      string
	Repo       string
	BaseURL    string
	HTTPClient *http.Client
}

// issue is the subset of the GitHub issue payload the audit needs.
// The issues endpoint also returns pull requests; those carry a
// pull_request key and are excluded.
type issue struct {
	Number      uint64           `json:"number"`
	PullRequest *json.RawMessage `json:"pull_request,omitempty"`
}

// NewClient creates a new tracker client. token may be empty, in which
// case requests are unauthenticated and subject to the low rate limit.
func NewClient(token, owner, repo string) *Client {
	return &Client{
		Token:   token,
		Owner:   owner,
		Repo:    repo,
		BaseURL: DefaultAPIEndpoint,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// WithBaseURL returns a new client with a custom base URL (for testing or
// GitHub Enterprise).
func (c *Client) WithBaseURL(baseURL string) *Client {
	out := *c
	out.BaseURL = baseURL
	return &out
}

// WithHTTPClient returns a new client with a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	out := *c
	out.HTTPClient = httpClient
	return &out
}

// repoPath returns the "owner/repo" path segment.
func (c *Client) repoPath() string {
	return c.Owner + "/" + c.Repo
}

// buildURL constructs a full API URL.
func (c *Client) buildURL(path string, params map[string]string) string {
	u := c.BaseURL + path

	if len(params) > 0 {
		values := url.Values{}
		for k, v := range params {
			values.Set(k, v)
		}
		u += "?" + values.Encode()
	}

	return u
}

// doGet performs a GET with authentication and rate-limit retry.
func (c *Client) doGet(ctx context.Context, urlStr string) ([]byte, http.Header, error) {
	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create request: %w", err)
		}

		if c.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.Token)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", attempt+1, MaxRetries+1, err)
			continue
		}

		const maxResponseSize = 50 * 1024 * 1024
		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response (attempt %d/%d): %w", attempt+1, MaxRetries+1, err)
			continue
		}

		// GitHub signals rate limiting with 429, or 403 plus an exhausted
		// X-RateLimit-Remaining.
		if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0") {
			delay := RetryDelay * time.Duration(1<<attempt)
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				if seconds, err := strconv.Atoi(retryAfter); err == nil {
					delay = time.Duration(seconds) * time.Second
				}
			}
			lastErr = fmt.Errorf("rate limited (attempt %d/%d)", attempt+1, MaxRetries+1)
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(delay):
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, nil, fmt.Errorf("API error: %s (status %d)", string(respBody), resp.StatusCode)
		}

		return respBody, resp.Header, nil
	}

	return nil, nil, fmt.Errorf("max retries (%d) exceeded: %w", MaxRetries+1, lastErr)
}

// linkNextPattern matches the "next" relation in GitHub Link headers.
var linkNextPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// hasNextPage checks the Link header for a next page URL.
func hasNextPage(headers http.Header) bool {
	link := headers.Get("Link")
	if link == "" {
		return false
	}
	return linkNextPattern.MatchString(link)
}

// FetchOpenIssues retrieves the numbers of all currently open issues.
// Pull requests returned by the issues endpoint are excluded. Returns the
// set of issue numbers and the number of pages fetched.
func (c *Client) FetchOpenIssues(ctx context.Context) (map[uint64]struct{}, int, error) {
	l := log.FromContext(ctx)

	if c.Token == "" {
		l.Debug("unauthenticated tracker fetch", "limit", "60 requests/hour",
			"hint", "set GITHUB_TOKEN for 5000 requests/hour")
	}

	open := make(map[uint64]struct{})
	page := 1

	for {
		select {
		case <-ctx.Done():
			return nil, page, ctx.Err()
		default:
		}

		params := map[string]string{
			"state":    "open",
			"per_page": strconv.Itoa(MaxPageSize),
			"page":     strconv.Itoa(page),
		}

		urlStr := c.buildURL("/repos/"+c.repoPath()+"/issues", params)
		respBody, headers, err := c.doGet(ctx, urlStr)
		if err != nil {
			return nil, page, fmt.Errorf("failed to fetch open issues (page %d): %w", page, err)
		}

		var issues []issue
		if err := json.Unmarshal(respBody, &issues); err != nil {
			return nil, page, fmt.Errorf("failed to parse issues response (page %d): %w", page, err)
		}

		for i := range issues {
			if issues[i].PullRequest == nil {
				open[issues[i].Number] = struct{}{}
			}
		}

		l.Debug("fetched issue page", "page", page, "issues", len(issues), "total", len(open))

		if !hasNextPage(headers) {
			break
		}
		page++

		if page > MaxPages {
			return nil, page, fmt.Errorf("pagination limit exceeded: stopped after %d pages", MaxPages)
		}
	}

	return open, page, nil
}
