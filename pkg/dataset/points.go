// Package dataset provides point fixtures, item catalogues and file loaders.
package dataset

import (
	"math"
	"math/rand"
	"sort"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

// Point dataset names.
const (
	Blobs3D   = "blobs"
	Iris      = "iris"
	Random    = "random"
	Elongated = "elongated"
)

// SampleCount returns how many points a named dataset generates.
func SampleCount(name string) int {
	switch name {
	case Iris:
		return 150
	case Elongated:
		return 200
	default:
		return 300
	}
}

// PointDatasets lists the generator names accepted by Generate.
func PointDatasets() []string {
	names := []string{Blobs3D, Iris, Random, Elongated}
	sort.Strings(names)
	return names
}

// Generate builds a named point dataset. k only shapes blob datasets.
func Generate(name string, k int, seed int64) ([]types.Point, error) {
	n := SampleCount(name)
	switch name {
	case Blobs3D, Iris:
		return Blobs(n, k, seed)
	case Random:
		return Uniform(n, seed), nil
	case Elongated:
		return ElongatedCloud(n, seed), nil
	}
	return nil, errors.InvalidParameter("dataset", "unknown point dataset %q", name)
}

// Blobs samples n points around k centers drawn uniformly from [-5, 5]^3.
// Each point is a random center offset by uniform(-2, 2) per axis.
func Blobs(n, k int, seed int64) ([]types.Point, error) {
	if k < 1 {
		return nil, errors.InvalidParameter("k", "must be >= 1, got %d", k)
	}
	if n < 1 {
		return nil, errors.InvalidParameter("n", "must be >= 1, got %d", n)
	}

	rng := rand.New(rand.NewSource(seed))
	centers := make([]types.Point, k)
	for i := range centers {
		centers[i] = types.Point{
			(rng.Float64() - 0.5) * 10,
			(rng.Float64() - 0.5) * 10,
			(rng.Float64() - 0.5) * 10,
		}
	}

	points := make([]types.Point, n)
	for i := range points {
		c := centers[rng.Intn(k)]
		points[i] = types.Point{
			c[0] + (rng.Float64()-0.5)*4,
			c[1] + (rng.Float64()-0.5)*4,
			c[2] + (rng.Float64()-0.5)*4,
		}
	}
	return points, nil
}

// Uniform samples n points uniformly from [-5, 5]^3.
func Uniform(n int, seed int64) []types.Point {
	rng := rand.New(rand.NewSource(seed))
	points := make([]types.Point, n)
	for i := range points {
		points[i] = types.Point{
			(rng.Float64() - 0.5) * 10,
			(rng.Float64() - 0.5) * 10,
			(rng.Float64() - 0.5) * 10,
		}
	}
	return points
}

// ElongatedCloud samples a flattened cloud with spreads 15, 5 and 2 along its
// axes, rotated by pi/6 in the xy plane so no axis is aligned with x or y.
func ElongatedCloud(n int, seed int64) []types.Point {
	rng := rand.New(rand.NewSource(seed))
	sin, cos := math.Sincos(math.Pi / 6)

	points := make([]types.Point, n)
	for i := range points {
		x := (rng.Float64() - 0.5) * 15
		y := (rng.Float64() - 0.5) * 5
		z := (rng.Float64() - 0.5) * 2
		points[i] = types.Point{x*cos - y*sin, x*sin + y*cos, z}
	}
	return points
}

// Rows widens points into a row-major matrix.
func Rows(points []types.Point) [][]float64 {
	rows := make([][]float64, len(points))
	for i, p := range points {
		rows[i] = []float64{p[0], p[1], p[2]}
	}
	return rows
}
