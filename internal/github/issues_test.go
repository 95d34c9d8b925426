package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	old := githubBaseURL
	githubBaseURL = server.URL
	t.Cleanup(func() { githubBaseURL = old })

	client, err := NewClient("acme", "palimpsest", "test-token")
	require.NoError(t, err)
	return client
}

func TestNewClient_EmptyToken(t *testing.T) {
	t.Parallel()
	_, err := NewClient("acme", "palimpsest", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestNewClient_EmptyRepo(t *testing.T) {
	t.Parallel()
	_, err := NewClient("acme", "", "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")
}

func TestListIssues_PaginatesAndSkipsPRs(t *testing.T) {
	pages := map[string][]map[string]any{
		"1": {
			{"id": 101, "number": 1, "title": "[PALI-E1] One"},
			{"id": 102, "number": 2, "title": "A pull request", "pull_request": map[string]any{"url": "x"}},
		},
		"2": {
			{"id": 103, "number": 3, "title": "[PALI-E2] Two"},
		},
		"3": {},
	}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		assert.Equal(t, apiVersion, r.Header.Get("X-GitHub-Api-Version"))
		assert.Equal(t, "all", r.URL.Query().Get("state"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(pages[r.URL.Query().Get("page")])
	}))

	issues, err := client.ListIssues(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, 1, issues[0].Number)
	assert.Equal(t, 3, issues[1].Number)
}

func TestListIssues_Unauthorized(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "Bad credentials"}`)
	}))

	_, err := client.ListIssues(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "Bad credentials")
}

func TestListIssues_RateLimited(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", "1700000000")
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := client.ListIssues(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exhausted")
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestCreateIssue(t *testing.T) {
	var got IssueRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/palimpsest/issues", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 900, "number": 7, "title": "[PALI-E1] One", "html_url": "https://github.com/acme/palimpsest/issues/7"}`)
	}))

	issue, err := client.CreateIssue(context.Background(), IssueRequest{
		Title:  "[PALI-E1] One",
		Body:   "body",
		Labels: []string{"Epics", "E1", "P0"},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, issue.Number)
	assert.Equal(t, int64(900), issue.ID)
	assert.Equal(t, []string{"Epics", "E1", "P0"}, got.Labels)
}

func TestUpdateIssue(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/repos/acme/palimpsest/issues/7", r.URL.Path)
		fmt.Fprint(w, `{"id": 900, "number": 7, "title": "[PALI-E1] Renamed"}`)
	}))

	issue, err := client.UpdateIssue(context.Background(), 7, IssueRequest{Title: "[PALI-E1] Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "[PALI-E1] Renamed", issue.Title)
}

func TestCloseIssue(t *testing.T) {
	var got IssueRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"id": 900, "number": 7, "state": "closed"}`)
	}))

	require.NoError(t, client.CloseIssue(context.Background(), 7))
	assert.Equal(t, "closed", got.State)
}

func TestAddSubIssue(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/palimpsest/issues/7/sub_issues", r.URL.Path)

		var payload map[string]int64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, int64(900), payload["sub_issue_id"])

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{}`)
	}))

	linked, err := client.AddSubIssue(context.Background(), 7, 900)
	require.NoError(t, err)
	assert.True(t, linked)
}

func TestAddSubIssue_AlreadyLinked(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "Validation Failed"}`)
	}))

	linked, err := client.AddSubIssue(context.Background(), 7, 900)
	require.NoError(t, err)
	assert.False(t, linked)
}

func TestAddSubIssue_OtherError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	}))

	_, err := client.AddSubIssue(context.Background(), 7, 900)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestLabelNames(t *testing.T) {
	t.Parallel()
	issue := Issue{Labels: []Label{{Name: "Epics"}, {Name: "P0"}}}
	assert.Equal(t, []string{"Epics", "P0"}, issue.LabelNames())
}
