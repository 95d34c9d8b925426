package github

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vishnusurya11/itemsync/internal/testutil"
)

// Integration test against the real API. Needs ITEMSYNC_TEST_REPO
// (owner/name) and GITHUB_TOKEN, via env or ~/.config/itemsync/.env.integ-test.
func TestListIssues_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	repo := testutil.IntegEnv("ITEMSYNC_TEST_REPO")
	token := testutil.IntegEnv("GITHUB_TOKEN")
	if repo == "" || token == "" {
		t.Skip("ITEMSYNC_TEST_REPO or GITHUB_TOKEN not set")
	}

	owner, name, ok := strings.Cut(repo, "/")
	require.True(t, ok && owner != "" && name != "", "ITEMSYNC_TEST_REPO must be owner/name")

	client, err := NewClient(owner, name, token)
	require.NoError(t, err)

	_, err = client.ListIssues(context.Background())
	require.NoError(t, err)
}
