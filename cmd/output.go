package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/pterm/pterm"

	"github.com/Siddhant-K-code/minelab/pkg/dataset"
	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/source"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

// printJSON writes v to stdout, indented.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTable(rows [][]string) error {
	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(pterm.TableData(rows)).Render()
}

func f4(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// loadInputPoints reads JSONL vectors and turns them into 3-D points. Wider
// vectors are reduced with PCA.
func loadInputPoints(path string) ([]types.Point, error) {
	vectors, err := dataset.LoadVectors(path)
	if err != nil {
		return nil, err
	}
	points, proj, err := source.ToPoints(vectors)
	if err != nil {
		return nil, errors.Wrapf(err, "convert %s", path)
	}
	if proj != nil {
		pterm.Info.WithWriter(os.Stderr).Printf("Projected %d-dimensional vectors to 3-D (%.1f%% variance kept)\n",
			proj.Dimension(), 100*proj.CumulativeRatio[len(proj.CumulativeRatio)-1])
	}
	return points, nil
}

func printRunID(id string) {
	if id != "" {
		pterm.Printf("%s %s\n", pterm.Gray("run:"), id)
	}
}

func cachedNote(cached bool) string {
	if cached {
		return pterm.Gray(" (cached)")
	}
	return ""
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
