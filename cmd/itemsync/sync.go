package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vishnusurya11/itemsync/internal/config"
	"github.com/vishnusurya11/itemsync/internal/github"
	"github.com/vishnusurya11/itemsync/internal/reconcile"
)

var (
	configPath string
	repoFlag   string
	prune      bool
	dryRun     bool
)

var syncCmd = &cobra.Command{
	Use:   "sync <kind>",
	Short: "Reconcile configured items of one kind (or all) with the tracker",
	Long: `Reconcile the items config against the repository's issue tracker.

kind is one of: epic, story, task, subtask, all.

Each configured item is matched to a remote issue by the [ID] prefix of the
issue title. Missing issues are created, drifted ones are updated, matching
ones are left alone. "sync all" runs every kind in hierarchy order and then
wires parent/child sub-issue relationships.

Use --prune to close remote issues that are no longer in the config.
Use --dry-run to see the plan without touching the remote.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVarP(&configPath, "config", "c", "config/items.yaml", "path to the items YAML config")
	syncCmd.Flags().StringVarP(&repoFlag, "repo", "r", "", "owner/name target repository (overrides the config file)")
	syncCmd.Flags().BoolVar(&prune, "prune", false, "close remote issues no longer present in the config")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan operations without performing remote writes")
}

func runSync(cmd *cobra.Command, args []string) error {
	kind, err := config.ParseKind(args[0])
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	owner, repo, err := resolveRepo(cfg)
	if err != nil {
		return err
	}

	client, err := github.NewClient(owner, repo, os.Getenv("GITHUB_TOKEN"))
	if err != nil {
		return err
	}

	kinds := []config.Kind{kind}
	links := false
	if kind == config.KindAll {
		kinds = config.Kinds()
		links = true
	}

	if dryRun {
		fmt.Println(headerStyle.Render(fmt.Sprintf("Dry run against %s (no remote writes)", client.Repo())))
	}

	runner := &reconcile.Runner{
		API:        client,
		Prefix:     cfg.Prefix(),
		ConfigPath: configPath,
	}
	results, runErr := runner.Sync(cmd.Context(), kinds, cfg.Flatten(), reconcile.Options{
		Prune:  prune,
		DryRun: dryRun,
		Links:  links,
	})

	printResults(results)
	if runErr != nil {
		return runErr
	}

	summary := reconcile.Summarize(results)
	fmt.Println(headerStyle.Render("Summary: " + summary.String()))

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d operations failed", summary.Failed, len(results))
	}
	return nil
}

// resolveRepo picks the target repository from the --repo flag or the config
// file, in that order.
func resolveRepo(cfg *config.Config) (owner, repo string, err error) {
	if repoFlag != "" {
		o, r, ok := splitRepo(repoFlag)
		if !ok {
			return "", "", fmt.Errorf("invalid --repo %q: expected owner/name", repoFlag)
		}
		return o, r, nil
	}

	owner, repo, err = cfg.Repository()
	if err != nil {
		return "", "", err
	}
	if owner == "" {
		return "", "", fmt.Errorf("no target repository: set project.repository in %s or pass --repo", configPath)
	}
	return owner, repo, nil
}

func splitRepo(s string) (owner, repo string, ok bool) {
	owner, repo, ok = strings.Cut(s, "/")
	ok = ok && owner != "" && repo != ""
	return
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	createStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	updateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	closeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	linkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	skipStyle   = lipgloss.NewStyle().Faint(true)
)

func printResults(results []reconcile.Result) {
	for _, res := range results {
		switch res.Outcome {
		case reconcile.OutcomeCreated:
			fmt.Println(createStyle.Render(fmt.Sprintf("[CREATE] %s: #%d → %s", res.ID, res.IssueNumber, res.URL)))
		case reconcile.OutcomeUpdated:
			fmt.Println(updateStyle.Render(fmt.Sprintf("[UPDATE] %s: issue #%d updated", res.ID, res.IssueNumber)))
		case reconcile.OutcomeUnchanged:
			fmt.Println(skipStyle.Render(fmt.Sprintf("[SKIP] %s: no changes", res.ID)))
		case reconcile.OutcomeClosed:
			fmt.Println(closeStyle.Render(fmt.Sprintf("[CLOSE] %s: orphan issue #%d closed", res.ID, res.IssueNumber)))
		case reconcile.OutcomeLinked:
			fmt.Println(linkStyle.Render(fmt.Sprintf("[LINK] %s: issue #%d linked to its parent", res.ID, res.IssueNumber)))
		case reconcile.OutcomeFailed:
			fmt.Println(failStyle.Render(fmt.Sprintf("[FAILED] %s: %v", res.ID, res.Err)))
		}
	}
}
