package reconcile

import (
	"context"
	"log/slog"

	"github.com/vishnusurya11/itemsync/internal/config"
)

// Options control one sync run.
type Options struct {
	// Prune closes remote issues of the selected kinds that are no longer
	// configured.
	Prune bool
	// DryRun plans every operation but performs no remote writes.
	DryRun bool
	// Links wires parent/child sub-issue relationships after the kinds
	// have been synced. Only meaningful when every kind is selected,
	// since links need both ends to exist.
	Links bool
}

// Runner executes a sync run against one repository.
type Runner struct {
	API API
	// Prefix is the project ID prefix (e.g. "PALI").
	Prefix string
	// ConfigPath is named in managed issue bodies.
	ConfigPath string
}

// Sync reconciles the given kinds, in the given order, against the remote
// tracker. The remote listing is fetched once up front; issues created
// during the run are folded into the index so the link phase sees them.
// Results preserve plan order. The returned error is fatal (listing failure
// or authentication); per-operation failures live in the results.
func (r *Runner) Sync(ctx context.Context, kinds []config.Kind, items []config.Item, opts Options) ([]Result, error) {
	issues, err := r.API.ListIssues(ctx)
	if err != nil {
		return nil, err
	}

	planner := &Planner{Prefix: r.Prefix, ConfigPath: r.ConfigPath}
	index := planner.BuildIndex(issues)
	seen := make(map[string]bool)

	var results []Result
	for _, kind := range kinds {
		ops := planner.PlanKind(kind, items, index, opts.Prune, seen)
		slog.Debug("Kind planned", "kind", kind, "operations", len(ops))

		kindResults, err := r.run(ctx, ops, opts.DryRun)
		results = append(results, kindResults...)
		if err != nil {
			return results, err
		}

		for _, res := range kindResults {
			if res.Issue != nil {
				index[res.ID] = res.Issue
			}
		}
	}

	if opts.Links {
		ops := planner.PlanLinks(items, index)
		slog.Debug("Links planned", "operations", len(ops))

		linkResults, err := r.run(ctx, ops, opts.DryRun)
		results = append(results, linkResults...)
		if err != nil {
			return results, err
		}
	}

	return results, nil
}

// run applies a plan, or simulates it when dry-running.
func (r *Runner) run(ctx context.Context, ops []Operation, dryRun bool) ([]Result, error) {
	if !dryRun {
		return Apply(ctx, r.API, ops)
	}

	results := make([]Result, 0, len(ops))
	for _, op := range ops {
		res := Result{ID: op.ID, Kind: op.Kind}
		if op.Issue != nil {
			res.IssueNumber = op.Issue.Number
			res.URL = op.Issue.HTMLURL
		}
		switch op.Action {
		case ActionCreate:
			res.Outcome = OutcomeCreated
		case ActionUpdate:
			res.Outcome = OutcomeUpdated
		case ActionNone:
			res.Outcome = OutcomeUnchanged
		case ActionClose:
			res.Outcome = OutcomeClosed
		case ActionLink:
			res.Outcome = OutcomeLinked
		case ActionReject:
			res.Outcome = OutcomeFailed
			res.Err = op.Err
		}
		results = append(results, res)
	}
	return results, nil
}
