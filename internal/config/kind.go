package config

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind identifies one level of the item hierarchy.
type Kind string

const (
	KindEpic    Kind = "epic"
	KindStory   Kind = "story"
	KindTask    Kind = "task"
	KindSubtask Kind = "subtask"
	// KindAll selects every kind, in hierarchy order.
	KindAll Kind = "all"
)

// kindMeta carries the per-kind tracker label and the ID shape appended to
// the project prefix. The shape is interpolated into a full anchored pattern
// by IDPattern.
var kindMeta = map[Kind]struct {
	label string
	shape string
}{
	KindEpic:    {label: "Epics", shape: `E\d+`},
	KindStory:   {label: "Stories", shape: `E\d+-S\d+`},
	KindTask:    {label: "Tasks", shape: `E\d+-S\d+-T\d+`},
	KindSubtask: {label: "Sub-tasks", shape: `E\d+-S\d+-T\d+-ST\d+`},
}

// Kinds returns the syncable kinds in hierarchy order (parents before
// children). KindAll is not included.
func Kinds() []Kind {
	return []Kind{KindEpic, KindStory, KindTask, KindSubtask}
}

// ParseKind validates a user-supplied kind selector.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindEpic, KindStory, KindTask, KindSubtask, KindAll:
		return k, nil
	}
	return "", fmt.Errorf("invalid kind %q: use one of epic, story, task, subtask, all", s)
}

// Label returns the tracker label applied to every issue of this kind.
func (k Kind) Label() string {
	return kindMeta[k].label
}

// IDPattern returns the anchored pattern an ID of this kind must match under
// the given project prefix, e.g. ^PALI-E\d+-S\d+$ for stories.
func IDPattern(k Kind, prefix string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `-` + kindMeta[k].shape + `$`)
}
