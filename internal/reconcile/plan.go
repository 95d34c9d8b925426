// Package reconcile diffs the configured items against the remote issue
// tracker and turns the difference into an ordered list of operations:
// create, update, close, link, or nothing. Planning is pure; Apply performs
// the remote calls.
package reconcile

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/vishnusurya11/itemsync/internal/config"
	"github.com/vishnusurya11/itemsync/internal/github"
)

// Action is the remote effect an operation would have.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	// ActionNone marks an item already in sync.
	ActionNone Action = "none"
	// ActionClose prunes an orphaned remote issue.
	ActionClose Action = "close"
	// ActionLink wires a parent/child sub-issue relationship.
	ActionLink Action = "link"
	// ActionReject marks an item that failed validation and is skipped.
	ActionReject Action = "reject"
)

// Operation is one planned step. Fields beyond Action/ID/Kind are populated
// per action: Request for creates and updates, Issue for anything touching
// an existing issue, ParentNumber/ChildID for links, Err for rejects.
type Operation struct {
	Action Action
	ID     string
	Kind   config.Kind

	Item    config.Item
	Issue   *github.Issue
	Request github.IssueRequest

	ParentNumber int
	ChildID      int64

	Err error
}

// Planner folds configuration items and the remote listing into operations.
type Planner struct {
	// Prefix is the project ID prefix items must carry.
	Prefix string
	// ConfigPath is named in managed issue bodies.
	ConfigPath string
}

// Index maps item IDs to the remote issue currently carrying them.
type Index map[string]*github.Issue

// BuildIndex extracts the identifying key from every remote issue title and
// maps it to the issue. The first-listed issue wins when several carry the
// same key; later ones are logged and ignored.
func (p *Planner) BuildIndex(issues []github.Issue) Index {
	index := make(Index)
	for i := range issues {
		issue := &issues[i]
		id := ExtractID(issue.Title, p.Prefix)
		if id == "" {
			continue
		}
		if prev, ok := index[id]; ok {
			slog.Warn("Multiple issues carry the same item ID, keeping the first",
				"id", id, "kept", prev.Number, "ignored", issue.Number)
			continue
		}
		index[id] = issue
	}
	return index
}

// PlanKind produces the operations for one kind, preserving item
// configuration order. seen carries IDs already planned in this run so
// duplicates across the whole config are rejected; pass the same map for
// every kind of a run.
func (p *Planner) PlanKind(kind config.Kind, items []config.Item, index Index, prune bool, seen map[string]bool) []Operation {
	pattern := segmentPattern(p.Prefix)
	kindPattern := config.IDPattern(kind, p.Prefix)

	var ops []Operation
	for _, it := range items {
		if it.Kind != kind {
			continue
		}

		op := Operation{ID: it.ID, Kind: kind, Item: it}

		if err := it.Validate(p.Prefix); err != nil {
			op.Action = ActionReject
			op.Err = err
			ops = append(ops, op)
			continue
		}
		if seen[it.ID] {
			op.Action = ActionReject
			op.Err = fmt.Errorf("duplicate item ID %s in configuration", it.ID)
			ops = append(ops, op)
			continue
		}
		seen[it.ID] = true

		issue, exists := index[it.ID]
		if !exists {
			op.Action = ActionCreate
			op.Request = github.IssueRequest{
				Title:  DesiredTitle(it),
				Body:   DesiredBody(it, p.ConfigPath),
				Labels: desiredLabels(nil, it, pattern),
			}
			ops = append(ops, op)
			continue
		}

		op.Issue = issue
		title := DesiredTitle(it)
		body := DesiredBody(it, p.ConfigPath)
		labels := desiredLabels(issue.LabelNames(), it, pattern)

		if issue.Title == title && issue.Body == body && sameLabelSet(issue.LabelNames(), labels) {
			op.Action = ActionNone
		} else {
			op.Action = ActionUpdate
			op.Request = github.IssueRequest{Title: title, Body: body, Labels: labels}
		}
		ops = append(ops, op)
	}

	if prune {
		ops = append(ops, p.planPrune(kind, kindPattern, items, index)...)
	}
	return ops
}

// planPrune closes remote issues that match the kind's ID pattern but are no
// longer configured. Orphans are emitted in sorted ID order so the plan is
// deterministic.
func (p *Planner) planPrune(kind config.Kind, kindPattern *regexp.Regexp, items []config.Item, index Index) []Operation {
	configured := make(map[string]bool)
	for _, it := range items {
		if it.Kind == kind {
			configured[it.ID] = true
		}
	}

	var orphans []string
	for id, issue := range index {
		if !kindPattern.MatchString(id) || configured[id] {
			continue
		}
		if issue.State == "closed" {
			continue
		}
		orphans = append(orphans, id)
	}
	sort.Strings(orphans)

	ops := make([]Operation, 0, len(orphans))
	for _, id := range orphans {
		ops = append(ops, Operation{
			Action: ActionClose,
			ID:     id,
			Kind:   kind,
			Issue:  index[id],
		})
	}
	return ops
}

// PlanLinks produces sub-issue link operations for every item whose parent
// and self both exist remotely. Items or parents missing from the index are
// skipped with a warning; running `sync all` first guarantees they exist.
func (p *Planner) PlanLinks(items []config.Item, index Index) []Operation {
	var ops []Operation
	for _, it := range items {
		parentID := it.ParentID()
		if parentID == "" {
			continue
		}

		issue, ok := index[it.ID]
		if !ok {
			continue
		}
		parent, ok := index[parentID]
		if !ok {
			slog.Warn("No parent issue found for item", "item", it.ID, "parent", parentID)
			continue
		}

		ops = append(ops, Operation{
			Action:       ActionLink,
			ID:           it.ID,
			Kind:         it.Kind,
			Issue:        issue,
			ParentNumber: parent.Number,
			ChildID:      issue.ID,
		})
	}
	return ops
}
