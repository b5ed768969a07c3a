package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Siddhant-K-code/minelab/pkg/config"
	"github.com/Siddhant-K-code/minelab/pkg/dataset"
	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/history"
	"github.com/Siddhant-K-code/minelab/pkg/service"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for the minelab CLI.

Bash:
  $ minelab completion bash > /etc/bash_completion.d/minelab

Zsh:
  # Ensure completion is enabled in your .zshrc (autoload -Uz compinit; compinit)
  $ minelab completion zsh > "${fpath[1]}/_minelab"

Fish:
  $ minelab completion fish > ~/.config/fish/completions/minelab.fish

PowerShell:
  PS> minelab completion powershell | Out-String | Invoke-Expression
`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)

		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)

		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)

		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			return errors.Newf("unsupported shell: %s", args[0])
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// registerCompletions adds value completions for domain flags. It runs from
// Execute, after every command's init has defined its flags.
func registerCompletions() {
	points := append(dataset.PointDatasets(), service.DatasetSource)
	for _, c := range []*cobra.Command{kmeansCmd, sweepCmd, pcaCmd} {
		_ = c.RegisterFlagCompletionFunc("dataset", fixedCompletions(points...))
	}
	for _, c := range []*cobra.Command{kmeansCmd, sweepCmd} {
		_ = c.RegisterFlagCompletionFunc("init", fixedCompletions(string(types.InitFirstK), string(types.InitKMeansPlusPlus)))
	}
	_ = aprioriCmd.RegisterFlagCompletionFunc("dataset", completeCatalogues)
	_ = aprioriCmd.RegisterFlagCompletionFunc("cooccurrence", fixedCompletions(service.PolicySynthetic, service.PolicyTransactions))
	_ = historyListCmd.RegisterFlagCompletionFunc("kind", fixedCompletions(
		string(history.KindKMeans), string(history.KindSweep), string(history.KindApriori), string(history.KindPCA)))
}

func fixedCompletions(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeCatalogues lists built-in catalogues plus any from the config's
// catalogue file.
func completeCatalogues(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cats := dataset.NewCatalogues()
	if cfg, err := config.Load(viper.GetViper()); err == nil && cfg.Mining.CatalogueFile != "" {
		if list, err := dataset.LoadCatalogues(cfg.Mining.CatalogueFile); err == nil {
			cats.Merge(list)
		}
	}
	return cats.Names(), cobra.ShellCompDirectiveNoFileComp
}
