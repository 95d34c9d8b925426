package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Issue is the relevant subset of a GitHub issue object.
type Issue struct {
	ID      int64   `json:"id"`
	Number  int     `json:"number"`
	Title   string  `json:"title"`
	Body    string  `json:"body"`
	State   string  `json:"state"`
	HTMLURL string  `json:"html_url"`
	Labels  []Label `json:"labels"`

	// PullRequest is set by the list endpoint for PRs, which share the
	// issue number space. Issues with it set are skipped.
	PullRequest json.RawMessage `json:"pull_request,omitempty"`
}

type Label struct {
	Name string `json:"name"`
}

// LabelNames returns the issue's label names in API order.
func (i *Issue) LabelNames() []string {
	names := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		names = append(names, l.Name)
	}
	return names
}

// IssueRequest is the body for issue create and edit calls. Zero fields are
// omitted so an edit only touches what it sets; Labels distinguishes nil
// (leave alone) from empty (clear).
type IssueRequest struct {
	Title  string   `json:"title,omitempty"`
	Body   string   `json:"body,omitempty"`
	Labels []string `json:"labels,omitempty"`
	State  string   `json:"state,omitempty"`
}

// ListIssues returns every issue of the repository in any state, following
// pagination and skipping pull requests.
func (c *Client) ListIssues(ctx context.Context) ([]Issue, error) {
	var all []Issue

	for page := 1; ; page++ {
		url := fmt.Sprintf("%s?state=all&per_page=%d&page=%d", c.issuesURL(), perPage, page)
		body, err := c.do(ctx, http.MethodGet, url, nil, http.StatusOK)
		if err != nil {
			return nil, fmt.Errorf("failed to list issues for %s: %w", c.Repo(), err)
		}

		var batch []Issue
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, fmt.Errorf("failed to parse issue listing: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, issue := range batch {
			if issue.PullRequest != nil {
				continue
			}
			all = append(all, issue)
		}
		slog.Debug("GitHub issue pagination", "page", page, "issuesSoFar", len(all))

		if len(all) >= maxIssues {
			break
		}
	}

	slog.Debug("GitHub issues listed", "repo", c.Repo(), "count", len(all))
	return all, nil
}

// CreateIssue opens a new issue and returns the created object.
func (c *Client) CreateIssue(ctx context.Context, req IssueRequest) (*Issue, error) {
	body, err := c.do(ctx, http.MethodPost, c.issuesURL(), req, http.StatusCreated)
	if err != nil {
		return nil, fmt.Errorf("failed to create issue %q: %w", req.Title, err)
	}

	var issue Issue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, fmt.Errorf("failed to parse created issue: %w", err)
	}
	slog.Debug("Issue created", "number", issue.Number, "url", issue.HTMLURL)
	return &issue, nil
}

// UpdateIssue patches an existing issue and returns the updated object.
func (c *Client) UpdateIssue(ctx context.Context, number int, req IssueRequest) (*Issue, error) {
	url := fmt.Sprintf("%s/%d", c.issuesURL(), number)
	body, err := c.do(ctx, http.MethodPatch, url, req, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("failed to update issue #%d: %w", number, err)
	}

	var issue Issue
	if err := json.Unmarshal(body, &issue); err != nil {
		return nil, fmt.Errorf("failed to parse updated issue: %w", err)
	}
	slog.Debug("Issue updated", "number", issue.Number)
	return &issue, nil
}

// CloseIssue moves an issue to the closed state.
func (c *Client) CloseIssue(ctx context.Context, number int) error {
	_, err := c.UpdateIssue(ctx, number, IssueRequest{State: "closed"})
	return err
}

// AddSubIssue attaches the issue with internal ID childID as a sub-issue of
// parentNumber, so the child shows up in the tracker's sub-issue panel. A
// 422 means the relationship already exists and is reported as linked=false
// with no error.
func (c *Client) AddSubIssue(ctx context.Context, parentNumber int, childID int64) (linked bool, err error) {
	url := fmt.Sprintf("%s/%d/sub_issues", c.issuesURL(), parentNumber)
	payload := map[string]int64{"sub_issue_id": childID}

	_, err = c.do(ctx, http.MethodPost, url, payload, http.StatusCreated)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
			slog.Debug("Sub-issue relationship already exists", "parent", parentNumber, "child", childID)
			return false, nil
		}
		return false, fmt.Errorf("failed to link sub-issue %d to #%d: %w", childID, parentNumber, err)
	}

	slog.Debug("Sub-issue linked", "parent", parentNumber, "child", childID)
	return true, nil
}
