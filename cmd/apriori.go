package cmd

import (
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Siddhant-K-code/minelab/pkg/dataset"
	"github.com/Siddhant-K-code/minelab/pkg/service"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

var aprioriCmd = &cobra.Command{
	Use:   "apriori",
	Short: "Mine pairwise association rules",
	Long: `Mines directional pair rules A -> B with support, confidence and lift.

Without --transactions, rules are mined from an item catalogue (grocery,
ecommerce, bookstore, or one from mining.catalogue_file) with pair counts
from the configured co-occurrence policy.

With --transactions, the JSONL basket file is scanned: pair counts are
measured and frequent itemsets up to --max-size items are listed too.

Example:
  minelab apriori --dataset grocery --min-support 0.05 --min-confidence 0.5
  minelab apriori --transactions baskets.jsonl --max-size 3`,
	RunE: runApriori,
}

func init() {
	rootCmd.AddCommand(aprioriCmd)

	aprioriCmd.Flags().StringP("dataset", "d", "", "Catalogue name")
	aprioriCmd.Flags().StringP("transactions", "t", "", "JSONL file of {\"items\":[...]} baskets")
	aprioriCmd.Flags().Float64("min-support", 0, "Minimum item and pair support (0..1)")
	aprioriCmd.Flags().Float64("min-confidence", 0, "Minimum rule confidence (0..1)")
	aprioriCmd.Flags().String("cooccurrence", "", "Co-occurrence policy: synthetic or transactions")
	aprioriCmd.Flags().Int64("seed", 0, "Seed for the synthetic policy")
	aprioriCmd.Flags().Int("max-size", 0, "Largest itemset size for --transactions")
	aprioriCmd.Flags().Bool("pairs", false, "Print the frequent pairs as well")
	aprioriCmd.Flags().Bool("json", false, "Print the full result as JSON")
}

func runApriori(cmd *cobra.Command, args []string) error {
	datasetName, _ := cmd.Flags().GetString("dataset")
	txFile, _ := cmd.Flags().GetString("transactions")
	policy, _ := cmd.Flags().GetString("cooccurrence")
	seed, _ := cmd.Flags().GetInt64("seed")
	maxSize, _ := cmd.Flags().GetInt("max-size")
	showPairs, _ := cmd.Flags().GetBool("pairs")
	asJSON, _ := cmd.Flags().GetBool("json")

	// Unset thresholds stay nil so the config defaults apply
	var minSupport, minConfidence *float64
	if cmd.Flags().Changed("min-support") {
		v, _ := cmd.Flags().GetFloat64("min-support")
		minSupport = &v
	}
	if cmd.Flags().Changed("min-confidence") {
		v, _ := cmd.Flags().GetFloat64("min-confidence")
		minConfidence = &v
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appOptions{host: "cli"})
	if err != nil {
		return err
	}
	defer a.Close()

	if txFile != "" {
		baskets, err := dataset.LoadBaskets(txFile)
		if err != nil {
			return err
		}
		resp, err := a.svc.MineTransactions(ctx, service.TransactionsRequest{
			Baskets:       baskets,
			MinSupport:    minSupport,
			MinConfidence: minConfidence,
			MaxSize:       maxSize,
		})
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(resp)
		}

		pterm.Printf("Apriori on %s: %s%s\n\n", pterm.LightCyan(txFile), plural(len(baskets), "basket"), cachedNote(resp.Cached))
		if err := printMining(resp.Result, showPairs); err != nil {
			return err
		}
		if len(resp.Itemsets) > 0 {
			pterm.Println()
			rows := [][]string{{"Size", "Itemset", "Count", "Support"}}
			for _, s := range resp.Itemsets {
				rows = append(rows, []string{strconv.Itoa(s.Size()), strings.Join(s.Items, ", "), strconv.Itoa(s.Count), f4(s.Support)})
			}
			if err := renderTable(rows); err != nil {
				return err
			}
		}
		printRunID(resp.RunID)
		return nil
	}

	resp, err := a.svc.Mine(ctx, service.MineRequest{
		Dataset:       datasetName,
		MinSupport:    minSupport,
		MinConfidence: minConfidence,
		CoOccurrence:  policy,
		Seed:          seed,
	})
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(resp)
	}

	pterm.Printf("Apriori on %s (%s co-occurrence)%s\n\n", pterm.LightCyan(resp.Dataset), resp.CoOccurrence, cachedNote(resp.Cached))
	if err := printMining(resp.Result, showPairs); err != nil {
		return err
	}
	printRunID(resp.RunID)
	return nil
}

func printMining(res *types.MiningResult, showPairs bool) error {
	if showPairs && len(res.Pairs) > 0 {
		rows := [][]string{{"Item A", "Item B", "Co-occurrence", "Support"}}
		for _, p := range res.Pairs {
			rows = append(rows, []string{p.ItemA, p.ItemB, strconv.Itoa(p.CoOccurrence), f4(p.Support)})
		}
		if err := renderTable(rows); err != nil {
			return err
		}
		pterm.Println()
	}

	if len(res.Rules) == 0 {
		pterm.Warning.Println("No rules met the thresholds")
		return nil
	}

	rows := [][]string{{"Rule", "Support", "Confidence", "Lift", "Strength"}}
	for _, r := range res.Rules {
		rows = append(rows, []string{
			r.Antecedent + " → " + r.Consequent,
			f4(r.Support), f4(r.Confidence), f4(r.Lift), strengthLabel(r.Strength),
		})
	}
	if err := renderTable(rows); err != nil {
		return err
	}

	sum := res.Summary
	pterm.Success.Printf("%s from %s and %s (avg confidence %.3f, max lift %.3f)\n",
		plural(sum.Rules, "rule"), plural(sum.FrequentItems, "frequent item"), plural(sum.CandidatePairs, "candidate pair"),
		sum.AvgConfidence, sum.MaxLift)
	return nil
}

func strengthLabel(s types.Strength) string {
	switch s {
	case types.StrengthStrong:
		return pterm.Green(string(s))
	case types.StrengthMedium:
		return pterm.Yellow(string(s))
	}
	return pterm.Gray(string(s))
}
