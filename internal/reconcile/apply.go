package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vishnusurya11/itemsync/internal/config"
	"github.com/vishnusurya11/itemsync/internal/github"
)

// API is the slice of the tracker client Apply needs.
type API interface {
	ListIssues(ctx context.Context) ([]github.Issue, error)
	CreateIssue(ctx context.Context, req github.IssueRequest) (*github.Issue, error)
	UpdateIssue(ctx context.Context, number int, req github.IssueRequest) (*github.Issue, error)
	CloseIssue(ctx context.Context, number int) error
	AddSubIssue(ctx context.Context, parentNumber int, childID int64) (bool, error)
}

// Outcome is the per-item result of an applied operation.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeClosed    Outcome = "closed"
	OutcomeLinked    Outcome = "linked"
	OutcomeFailed    Outcome = "failed"
)

// Result records what happened to one operation.
type Result struct {
	ID          string
	Kind        config.Kind
	Outcome     Outcome
	IssueNumber int
	URL         string
	Err         error

	// Issue is the remote object after a create or update, used to keep
	// the run's index current without re-listing.
	Issue *github.Issue
}

// Apply executes the plan sequentially in order. A failing operation is
// recorded and the batch continues; authentication failure aborts the run
// and returns the results gathered so far alongside the error.
func Apply(ctx context.Context, api API, ops []Operation) ([]Result, error) {
	results := make([]Result, 0, len(ops))

	for _, op := range ops {
		res := applyOne(ctx, api, op)
		results = append(results, res)

		if res.Err != nil && errors.Is(res.Err, github.ErrUnauthorized) {
			return results, fmt.Errorf("aborting sync: %w", res.Err)
		}
	}
	return results, nil
}

func applyOne(ctx context.Context, api API, op Operation) Result {
	res := Result{ID: op.ID, Kind: op.Kind}
	if op.Issue != nil {
		res.IssueNumber = op.Issue.Number
		res.URL = op.Issue.HTMLURL
	}

	switch op.Action {
	case ActionReject:
		res.Outcome = OutcomeFailed
		res.Err = op.Err

	case ActionNone:
		res.Outcome = OutcomeUnchanged

	case ActionCreate:
		issue, err := api.CreateIssue(ctx, op.Request)
		if err != nil {
			res.Outcome = OutcomeFailed
			res.Err = err
			break
		}
		res.Outcome = OutcomeCreated
		res.IssueNumber = issue.Number
		res.URL = issue.HTMLURL
		res.Issue = issue

	case ActionUpdate:
		issue, err := api.UpdateIssue(ctx, op.Issue.Number, op.Request)
		if err != nil {
			res.Outcome = OutcomeFailed
			res.Err = err
			break
		}
		res.Outcome = OutcomeUpdated
		res.Issue = issue

	case ActionClose:
		if err := api.CloseIssue(ctx, op.Issue.Number); err != nil {
			res.Outcome = OutcomeFailed
			res.Err = err
			break
		}
		res.Outcome = OutcomeClosed

	case ActionLink:
		linked, err := api.AddSubIssue(ctx, op.ParentNumber, op.ChildID)
		if err != nil {
			res.Outcome = OutcomeFailed
			res.Err = err
			break
		}
		if linked {
			res.Outcome = OutcomeLinked
		} else {
			res.Outcome = OutcomeUnchanged
		}

	default:
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("unknown operation action %q", op.Action)
	}

	if res.Err != nil {
		slog.Debug("Operation failed", "id", op.ID, "action", op.Action, "error", res.Err)
	}
	return res
}

// Summary aggregates per-outcome counts for a run.
type Summary struct {
	Created   int
	Updated   int
	Unchanged int
	Closed    int
	Linked    int
	Failed    int
}

// Add folds one result into the summary.
func (s *Summary) Add(r Result) {
	switch r.Outcome {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeUnchanged:
		s.Unchanged++
	case OutcomeClosed:
		s.Closed++
	case OutcomeLinked:
		s.Linked++
	case OutcomeFailed:
		s.Failed++
	}
}

// Summarize folds a result list into counts.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		s.Add(r)
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("created=%d updated=%d unchanged=%d closed=%d linked=%d failed=%d",
		s.Created, s.Updated, s.Unchanged, s.Closed, s.Linked, s.Failed)
}
