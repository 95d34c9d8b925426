// Package github is a minimal client for the GitHub Issues REST API covering
// the operations a sync run needs: listing, creating, updating and closing
// issues, plus wiring sub-issue relationships. Every call is at-most-once;
// failures are surfaced to the caller without retries.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// githubBaseURL can be overridden in tests to point at a httptest server.
var githubBaseURL string

const apiVersion = "2022-11-28"

const perPage = 100
const maxIssues = 10000

// ErrUnauthorized marks an authentication failure. It is fatal for the whole
// run: no further operations are attempted once it is seen.
var ErrUnauthorized = errors.New("github authentication failed")

// APIError is a non-2xx response from the API, kept typed so callers can
// branch on the status (the sub-issue endpoint signals an existing
// relationship with a 422).
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github API returned status %d: %s", e.Status, e.Body)
}

// Client talks to the Issues API of a single repository.
type Client struct {
	owner string
	repo  string
	token string
	http  *http.Client
}

// NewClient builds a client for owner/repo. An empty token is rejected here
// so a run aborts before any remote call is made.
func NewClient(owner, repo, token string) (*Client, error) {
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(repo) == "" {
		return nil, fmt.Errorf("github repository owner and name cannot be empty")
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: GITHUB_TOKEN is not set", ErrUnauthorized)
	}
	return &Client{
		owner: owner,
		repo:  repo,
		token: token,
		http:  http.DefaultClient,
	}, nil
}

// Repo returns the owner/name the client targets.
func (c *Client) Repo() string {
	return c.owner + "/" + c.repo
}

func (c *Client) issuesURL() string {
	base := githubBaseURL
	if base == "" {
		base = "https://api.github.com"
	}
	return fmt.Sprintf("%s/repos/%s/%s/issues", base, c.owner, c.repo)
}

// do performs one API request and returns the response body when the status
// matches want. 401 maps to ErrUnauthorized; a 403 that exhausted the rate
// limit is reported as such.
func (c *Client) do(ctx context.Context, method, url string, payload any, want int) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal github request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create github request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach github: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read github response: %w", err)
	}

	switch {
	case resp.StatusCode == want:
		return respBody, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, strings.TrimSpace(string(respBody)))
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return nil, fmt.Errorf("github rate limit exhausted (resets at X-RateLimit-Reset=%s)", resp.Header.Get("X-RateLimit-Reset"))
	default:
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
}
