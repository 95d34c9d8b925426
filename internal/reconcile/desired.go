package reconcile

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/vishnusurya11/itemsync/internal/config"
)

// priorityLabels are the labels managed exclusively by the sync: exactly one
// of them survives on an issue, matching the item's current priority.
var priorityLabels = map[string]bool{"P0": true, "P1": true, "P2": true}

var kindWord = map[config.Kind]string{
	config.KindEpic:    "Epic",
	config.KindStory:   "Story",
	config.KindTask:    "Task",
	config.KindSubtask: "Sub-task",
}

// DesiredTitle renders the issue title carrying the identifying key,
// e.g. "[PALI-E1] Codex Ingestion Backbone".
func DesiredTitle(it config.Item) string {
	return fmt.Sprintf("[%s] %s", it.ID, it.Title)
}

// DesiredBody renders the managed markdown body for an item. configPath is
// named in the footer so readers know where the source of truth lives.
func DesiredBody(it config.Item, configPath string) string {
	desc := it.Description
	if desc == "" {
		desc = "TODO: add a clear goal / description for this item."
	}

	lines := []string{
		fmt.Sprintf("# %s – %s", it.ID, it.Title),
		"",
		fmt.Sprintf("**ID:** %s  ", it.ID),
		fmt.Sprintf("**Kind:** %s  ", kindWord[it.Kind]),
		fmt.Sprintf("**Phase:** %s  ", it.Phase),
		fmt.Sprintf("**Priority:** %s  ", it.Priority),
	}

	if it.EpicID != "" {
		lines = append(lines, fmt.Sprintf("**Epic:** %s  ", it.EpicID))
	}
	if it.StoryID != "" {
		lines = append(lines, fmt.Sprintf("**Story:** %s  ", it.StoryID))
	}
	if it.TaskID != "" {
		lines = append(lines, fmt.Sprintf("**Task:** %s  ", it.TaskID))
	}

	lines = append(lines,
		"",
		"**Goal / Description**  ",
		desc,
		"",
		"---",
		"",
		fmt.Sprintf("This issue is fully managed by `%s`.", configPath),
		"Edit the YAML, then rerun `itemsync sync`.",
	)

	return strings.Join(lines, "\n")
}

// ExtractID pulls the identifying key out of a remote issue title. It
// prefers the "[ID] Title" convention and falls back to a first token that
// carries the project prefix. Returns "" when the title is not managed.
func ExtractID(title, prefix string) string {
	title = strings.TrimSpace(title)

	if strings.HasPrefix(title, "[") {
		if closing := strings.Index(title, "]"); closing != -1 {
			return strings.TrimSpace(title[1:closing])
		}
	}

	first, _, _ := strings.Cut(title, " ")
	if strings.HasPrefix(first, prefix+"-") {
		return first
	}
	return ""
}

// segmentPattern matches a full item ID and captures its hierarchy segments.
func segmentPattern(prefix string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `-(E\d+)(?:-(S\d+))?(?:-(T\d+))?(?:-(ST\d+))?$`)
}

// segmentLabels turns "PALI-E1-S5-T3-ST2" into ["E1", "S5", "T3", "ST2"].
func segmentLabels(id string, pattern *regexp.Regexp) []string {
	m := pattern.FindStringSubmatch(id)
	if m == nil {
		return nil
	}
	var segs []string
	for _, g := range m[1:] {
		if g != "" {
			segs = append(segs, g)
		}
	}
	return segs
}

// desiredLabels computes the label set for an item on top of whatever labels
// the issue already carries: the kind label and ID segment labels are added
// if missing, and the managed priority labels are replaced by the item's
// current priority. Unmanaged labels are preserved.
func desiredLabels(current []string, it config.Item, pattern *regexp.Regexp) []string {
	labels := make([]string, 0, len(current)+2)
	for _, l := range current {
		if !priorityLabels[l] {
			labels = append(labels, l)
		}
	}

	if kindLabel := it.Kind.Label(); !contains(labels, kindLabel) {
		labels = append(labels, kindLabel)
	}
	for _, seg := range segmentLabels(it.ID, pattern) {
		if !contains(labels, seg) {
			labels = append(labels, seg)
		}
	}

	if priorityLabels[it.Priority] {
		labels = append(labels, it.Priority)
	} else {
		slog.Warn("Unknown priority, label not applied", "item", it.ID, "priority", it.Priority)
	}
	return labels
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// sameLabelSet compares two label lists ignoring order.
func sameLabelSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, l := range a {
		seen[l]++
	}
	for _, l := range b {
		seen[l]--
		if seen[l] < 0 {
			return false
		}
	}
	return true
}
