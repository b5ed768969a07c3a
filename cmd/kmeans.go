package cmd

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Siddhant-K-code/minelab/pkg/service"
)

var kmeansCmd = &cobra.Command{
	Use:   "kmeans",
	Short: "Cluster points with K-Means",
	Long: `Runs one K-Means clustering and prints the centroids, cluster sizes,
inertia and silhouette quality score.

Points come from --input (JSONL vectors, reduced to 3-D with PCA when wider),
from a built-in dataset, or from the configured source (--dataset source).
Unset flags fall back to the cluster section of minelab.yaml.

Example:
  minelab kmeans --dataset iris --k 3
  minelab kmeans --input vectors.jsonl --k 5 --init kmeans++ --seed 7
  minelab kmeans --dataset source --k 8 --json`,
	RunE: runKMeans,
}

func init() {
	rootCmd.AddCommand(kmeansCmd)

	kmeansCmd.Flags().StringP("dataset", "d", "", "Point dataset: blobs, iris, random, elongated, or source")
	kmeansCmd.Flags().StringP("input", "f", "", "JSONL file of {\"id\",\"values\"} vectors")
	kmeansCmd.Flags().IntP("k", "k", 0, "Number of clusters")
	kmeansCmd.Flags().Int("max-iterations", 0, "Maximum assignment passes")
	kmeansCmd.Flags().String("init", "", "Seeding mode: first-k or kmeans++")
	kmeansCmd.Flags().Int64("seed", 0, "k-means++ seed")
	kmeansCmd.Flags().Bool("assignments", false, "Print the cluster of every point")
	kmeansCmd.Flags().Bool("json", false, "Print the full result as JSON")
}

func runKMeans(cmd *cobra.Command, args []string) error {
	datasetName, _ := cmd.Flags().GetString("dataset")
	input, _ := cmd.Flags().GetString("input")
	k, _ := cmd.Flags().GetInt("k")
	maxIter, _ := cmd.Flags().GetInt("max-iterations")
	initMode, _ := cmd.Flags().GetString("init")
	seed, _ := cmd.Flags().GetInt64("seed")
	showAssignments, _ := cmd.Flags().GetBool("assignments")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	req := service.KMeansRequest{
		Dataset:       datasetName,
		K:             k,
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

	resp, err := a.svc.RunKMeans(ctx, req)
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
	pterm.Printf("K-Means on %s: %s, %s%s\n\n",
		pterm.LightCyan(source), plural(len(res.Points), "point"), plural(res.K, "cluster"), cachedNote(resp.Cached))

	if err := renderTable([][]string{
		{"State", "Init", "Iterations", "Inertia", "Quality", "Latency"},
		{string(res.State), string(res.Init), strconv.Itoa(res.Iterations), f4(res.Inertia), f4(res.QualityScore), res.Latency.String()},
	}); err != nil {
		return err
	}
	pterm.Println()

	rows := [][]string{{"Cluster", "Size", "X", "Y", "Z"}}
	for i, c := range res.Centroids {
		rows = append(rows, []string{strconv.Itoa(i), strconv.Itoa(resp.Sizes[i]), f4(c.X()), f4(c.Y()), f4(c.Z())})
	}
	if err := renderTable(rows); err != nil {
		return err
	}

	if showAssignments {
		pterm.Println()
		rows := [][]string{{"Point", "X", "Y", "Z", "Cluster"}}
		for i, p := range res.Points {
			rows = append(rows, []string{strconv.Itoa(i), f4(p.X()), f4(p.Y()), f4(p.Z()), strconv.Itoa(res.Assignments[i])})
		}
		if err := renderTable(rows); err != nil {
			return err
		}
	}

	if res.Converged() {
		pterm.Success.Printf("Converged after %s\n", plural(res.Iterations, "iteration"))
	} else {
		pterm.Warning.Printf("Stopped at the iteration limit (%d) before converging\n", res.Iterations)
	}
	printRunID(resp.RunID)
	return nil
}
