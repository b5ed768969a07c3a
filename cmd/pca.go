package cmd

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Siddhant-K-code/minelab/pkg/dataset"
	"github.com/Siddhant-K-code/minelab/pkg/service"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

var pcaCmd = &cobra.Command{
	Use:   "pca",
	Short: "Project vectors onto their principal components",
	Long: `Computes a principal component analysis and reports the explained
variance of each component.

Vectors come from --input (JSONL), a built-in point dataset, or the
configured source (--dataset source).

Example:
  minelab pca --input embeddings.jsonl --components 5
  minelab pca --dataset elongated --components 2 --json`,
	RunE: runPCA,
}

func init() {
	rootCmd.AddCommand(pcaCmd)

	pcaCmd.Flags().StringP("dataset", "d", "", "Point dataset or source")
	pcaCmd.Flags().StringP("input", "f", "", "JSONL file of {\"id\",\"values\"} vectors")
	pcaCmd.Flags().IntP("components", "c", 0, "Number of components (default 3, capped at the dimension)")
	pcaCmd.Flags().Bool("json", false, "Print the full projection as JSON")
}

func runPCA(cmd *cobra.Command, args []string) error {
	datasetName, _ := cmd.Flags().GetString("dataset")
	input, _ := cmd.Flags().GetString("input")
	components, _ := cmd.Flags().GetInt("components")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	req := service.PCARequest{Dataset: datasetName, Components: components}
	if input != "" {
		vectors, err := dataset.LoadVectors(input)
		if err != nil {
			return err
		}
		req.Vectors = types.VectorMatrix(vectors)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appOptions{host: "cli"})
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.svc.Project(ctx, req)
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
	pterm.Printf("PCA on %s: %s of dimension %d%s\n\n",
		pterm.LightCyan(source), plural(len(res.Coordinates), "vector"), res.Dimension(), cachedNote(resp.Cached))

	rows := [][]string{{"Component", "Variance", "Ratio", "Cumulative"}}
	for i := range res.Components {
		rows = append(rows, []string{
			"PC" + strconv.Itoa(i+1),
			f4(res.ExplainedVariance[i]),
			f4(res.ExplainedVarianceRatio[i]),
			f4(res.CumulativeRatio[i]),
		})
	}
	if err := renderTable(rows); err != nil {
		return err
	}

	if n := len(res.CumulativeRatio); n > 0 {
		pterm.Success.Printf("%s explain %.1f%% of the variance\n", plural(n, "component"), 100*res.CumulativeRatio[n-1])
	}
	printRunID(resp.RunID)
	return nil
}
