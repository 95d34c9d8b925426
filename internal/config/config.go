// Package config loads and flattens the YAML item configuration that drives
// a sync run. The file describes a hierarchy of epics, stories, tasks and
// subtasks; Flatten walks it depth-first into the ordered item list the
// reconciler consumes.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPrefix is used when the config file does not set project.prefix.
const DefaultPrefix = "ITEM"

// Project holds the repository-level settings of a config file.
type Project struct {
	// Repository is the target in owner/name form.
	Repository string `yaml:"repository"`
	// Prefix is the leading segment of every item ID (e.g. "PALI").
	Prefix string `yaml:"prefix"`
}

// Config is the root of the items YAML document.
type Config struct {
	Project Project `yaml:"project"`
	Epics   []Epic  `yaml:"epics"`
}

// Epic is a top-level item. Phase and priority set here cascade to children
// that leave them empty.
type Epic struct {
	ID          string  `yaml:"id"`
	Phase       string  `yaml:"phase"`
	Priority    string  `yaml:"priority"`
	Title       string  `yaml:"title"`
	Description string  `yaml:"description"`
	Stories     []Story `yaml:"stories"`
}

type Story struct {
	ID          string `yaml:"id"`
	Phase       string `yaml:"phase"`
	Priority    string `yaml:"priority"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Tasks       []Task `yaml:"tasks"`
}

type Task struct {
	ID          string    `yaml:"id"`
	Phase       string    `yaml:"phase"`
	Priority    string    `yaml:"priority"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Subtasks    []Subtask `yaml:"subtasks"`
}

type Subtask struct {
	ID          string `yaml:"id"`
	Phase       string `yaml:"phase"`
	Priority    string `yaml:"priority"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Item is one flattened configuration record. Parent IDs are set for the
// levels above the item's own kind and empty otherwise.
type Item struct {
	ID          string
	Kind        Kind
	Phase       string
	Priority    string
	Title       string
	Description string
	EpicID      string
	StoryID     string
	TaskID      string
}

// ParentID returns the ID of the item's immediate parent, or "" for epics.
func (it Item) ParentID() string {
	switch it.Kind {
	case KindStory:
		return it.EpicID
	case KindTask:
		return it.StoryID
	case KindSubtask:
		return it.TaskID
	}
	return ""
}

// Validate checks the fields a record needs before it can be synced. A
// failing item is reported individually; it never aborts the batch.
func (it Item) Validate(prefix string) error {
	if it.ID == "" {
		return fmt.Errorf("%s item is missing an id", it.Kind)
	}
	if it.Title == "" {
		return fmt.Errorf("item %s is missing a title", it.ID)
	}
	if !IDPattern(it.Kind, prefix).MatchString(it.ID) {
		return fmt.Errorf("item %s does not match the %s ID pattern for prefix %s", it.ID, it.Kind, prefix)
	}
	return nil
}

// Load reads and parses the items config file. A missing or malformed file
// is fatal for the run.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Prefix returns the configured ID prefix, falling back to DefaultPrefix.
func (c *Config) Prefix() string {
	if p := strings.TrimSpace(c.Project.Prefix); p != "" {
		return p
	}
	return DefaultPrefix
}

// Repository returns the configured owner/name target split in two. An
// empty repository is allowed here; the caller decides whether a flag
// override fills it in.
func (c *Config) Repository() (owner, repo string, err error) {
	full := strings.TrimSpace(c.Project.Repository)
	if full == "" {
		return "", "", nil
	}
	owner, repo, ok := strings.Cut(full, "/")
	if !ok || owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid project.repository %q: expected owner/name", full)
	}
	return owner, repo, nil
}

// Flatten walks the hierarchy depth-first and returns items in document
// order: each epic, then its stories, their tasks, and their subtasks.
// Phase and priority inherit from the nearest ancestor that sets them.
func (c *Config) Flatten() []Item {
	var flat []Item

	for _, e := range c.Epics {
		epic := Item{
			ID:          strings.TrimSpace(e.ID),
			Kind:        KindEpic,
			Phase:       strings.TrimSpace(e.Phase),
			Priority:    strings.TrimSpace(e.Priority),
			Title:       strings.TrimSpace(e.Title),
			Description: strings.TrimSpace(e.Description),
		}
		flat = append(flat, epic)

		for _, s := range e.Stories {
			story := Item{
				ID:          strings.TrimSpace(s.ID),
				Kind:        KindStory,
				Phase:       inherit(s.Phase, epic.Phase),
				Priority:    inherit(s.Priority, epic.Priority),
				Title:       strings.TrimSpace(s.Title),
				Description: strings.TrimSpace(s.Description),
				EpicID:      epic.ID,
			}
			flat = append(flat, story)

			for _, t := range s.Tasks {
				task := Item{
					ID:          strings.TrimSpace(t.ID),
					Kind:        KindTask,
					Phase:       inherit(t.Phase, story.Phase),
					Priority:    inherit(t.Priority, story.Priority),
					Title:       strings.TrimSpace(t.Title),
					Description: strings.TrimSpace(t.Description),
					EpicID:      epic.ID,
					StoryID:     story.ID,
				}
				flat = append(flat, task)

				for _, st := range t.Subtasks {
					flat = append(flat, Item{
						ID:          strings.TrimSpace(st.ID),
						Kind:        KindSubtask,
						Phase:       inherit(st.Phase, task.Phase),
						Priority:    inherit(st.Priority, task.Priority),
						Title:       strings.TrimSpace(st.Title),
						Description: strings.TrimSpace(st.Description),
						EpicID:      epic.ID,
						StoryID:     story.ID,
						TaskID:      task.ID,
					})
				}
			}
		}
	}
	return flat
}

func inherit(own, parent string) string {
	if v := strings.TrimSpace(own); v != "" {
		return v
	}
	return parent
}
