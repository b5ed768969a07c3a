package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Siddhant-K-code/minelab/pkg/config"
	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/history"
	"github.com/Siddhant-K-code/minelab/pkg/service"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded runs",
	Long: `Lists, shows and deletes runs recorded by the API, MCP server or CLI.

History must be enabled (history.enabled: true) and the store must not be
held open by a running server.

Example:
  minelab history list --kind kmeans --limit 10
  minelab history show 6f1c...`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one run with its full result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete recorded runs",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	historyListCmd.Flags().String("kind", "", "Only runs of this kind: kmeans, sweep, apriori, pca")
	historyListCmd.Flags().IntP("limit", "n", service.DefaultRunLimit, "Maximum runs to list, 0 for all")
	historyListCmd.Flags().Bool("json", false, "Print runs as JSON")
}

func openHistory() (*history.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openHistoryStore(cfg)
}

func openHistoryStore(cfg *config.Config) (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, errors.Wrap(service.ErrHistoryDisabled, "set history.enabled in minelab.yaml")
	}
	return history.Open(cfg.History.Path, cfg.History.TTL)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	kindStr, _ := cmd.Flags().GetString("kind")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	kind, err := history.ParseKind(kindStr)
	if err != nil {
		return err
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), kind, limit)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(runs)
	}
	if len(runs) == 0 {
		pterm.Info.Println("No runs recorded")
		return nil
	}

	rows := [][]string{{"ID", "Kind", "Created", "Summary"}}
	for _, r := range runs {
		rows = append(rows, []string{r.ID, string(r.Kind), r.CreatedAt.Local().Format(time.DateTime), formatSummary(r.Summary)})
	}
	if err := renderTable(rows); err != nil {
		return err
	}
	pterm.Printf("%s\n", pterm.Gray(plural(len(runs), "run")))
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(run)
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, id := range args {
		if err := store.Delete(cmd.Context(), id); err != nil {
			return errors.Wrapf(err, "delete %s", id)
		}
	}
	pterm.Success.Printf("Deleted %s\n", plural(len(args), "run"))
	return nil
}

// formatSummary renders summary metrics as k=v pairs in key order.
func formatSummary(summary map[string]float64) string {
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, strings.TrimRight(strings.TrimRight(f4(summary[k]), "0"), "."))
	}
	return strings.Join(parts, " ")
}
