package cmd

import (
	"os"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Siddhant-K-code/minelab/pkg/service"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run K-Means for a range of k and pick the best",
	Long: `Runs one independent K-Means per k in [k-min, k-max] on a worker pool and
reports inertia and silhouette quality for each k, along with the k of
highest quality and the elbow of the inertia curve.

Example:
  minelab sweep --dataset blobs --k-min 2 --k-max 8
  minelab sweep --input vectors.jsonl --k-max 15 --init kmeans++`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringP("dataset", "d", "", "Point dataset: blobs, iris, random, elongated, or source")
	sweepCmd.Flags().StringP("input", "f", "", "JSONL file of {\"id\",\"values\"} vectors")
	sweepCmd.Flags().Int("k-min", 0, "Smallest k (default 2)")
	sweepCmd.Flags().Int("k-max", 0, "Largest k (default 10)")
	sweepCmd.Flags().Int("max-iterations", 0, "Maximum assignment passes per run")
	sweepCmd.Flags().String("init", "", "Seeding mode: first-k or kmeans++")
	sweepCmd.Flags().Int64("seed", 0, "k-means++ seed")
	sweepCmd.Flags().Bool("json", false, "Print the full result as JSON")
}

func runSweep(cmd *cobra.Command, args []string) error {
	datasetName, _ := cmd.Flags().GetString("dataset")
	input, _ := cmd.Flags().GetString("input")
	kMin, _ := cmd.Flags().GetInt("k-min")
	kMax, _ := cmd.Flags().GetInt("k-max")
	maxIter, _ := cmd.Flags().GetInt("max-iterations")
	initMode, _ := cmd.Flags().GetString("init")
	seed, _ := cmd.Flags().GetInt64("seed")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	req := service.SweepRequest{
		Dataset:       datasetName,
		KMin:          kMin,
		KMax:          kMax,
		MaxIterations: maxIter,
		Init:          initMode,
		Seed:          seed,
	}
	if input != "" {
		if req.Points, err = loadInputPoints(input); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appOptions{host: "cli"})
	if err != nil {
		return err
	}
	defer a.Close()

	// Create progress bar once the total is known
	var bar *progressbar.ProgressBar
	progressFn := func(p types.SweepPoint, done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Sweeping k"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionSetItsString("runs"),
				progressbar.OptionThrottle(100*time.Millisecond),
				progressbar.OptionSpinnerType(14),
				progressbar.OptionFullWidth(),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
	}

	resp, err := a.svc.Sweep(ctx, req, progressFn)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(resp)
	}

	res := resp.Result
	source := resp.Dataset
	if input != "" {
		source = input
	}
	pterm.Printf("k sweep on %s: %s in %s%s\n\n",
		pterm.LightCyan(source), plural(len(res.Points), "run"), res.Latency.Round(time.Microsecond), cachedNote(resp.Cached))

	rows := [][]string{{"k", "Iterations", "State", "Inertia", "Quality", "Latency", ""}}
	for _, p := range res.Points {
		mark := ""
		switch {
		case p.K == res.BestK && p.K == res.ElbowK:
			mark = "best, elbow"
		case p.K == res.BestK:
			mark = "best"
		case p.K == res.ElbowK:
			mark = "elbow"
		}
		rows = append(rows, []string{
			strconv.Itoa(p.K), strconv.Itoa(p.Iterations), string(p.State),
			f4(p.Inertia), f4(p.QualityScore), p.Latency.String(), mark,
		})
	}
	if err := renderTable(rows); err != nil {
		return err
	}

	pterm.Success.Printf("Best k by quality: %s, elbow at k=%d\n", pterm.Green(strconv.Itoa(res.BestK)), res.ElbowK)
	printRunID(resp.RunID)
	return nil
}
