// Package cluster implements Lloyd's K-Means over 3-D points.
//
// An Engine is safe for concurrent use: every Run owns its assignment array,
// centroid array and RNG, so independent runs (such as a k sweep) never share
// mutable state.
package cluster

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	kmath "github.com/Siddhant-K-code/minelab/pkg/math"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

const unassigned = -1

// DefaultSeed drives k-means++ seeding when Config.Seed is 0.
const DefaultSeed int64 = 1

// Config holds clustering parameters.
type Config struct {
	// MaxIterations is the default iteration budget used by hosts. Default: 100
	MaxIterations int

	// Init selects centroid seeding. Default: first k points
	Init types.InitMode

	// Seed for k-means++ seeding. 0 uses DefaultSeed.
	Seed int64

	// Workers is the number of parallel assignment workers. Default: NumCPU
	Workers int
}

// DefaultConfig returns sensible defaults for clustering.
func DefaultConfig() Config {
	return Config{
		MaxIterations: 100,
		Init:          types.InitFirstK,
		Seed:          0,
		Workers:       runtime.NumCPU(),
	}
}

// Engine runs K-Means.
type Engine struct {
	cfg Config
}

// NewEngine creates a clustering engine with the given config.
func NewEngine(cfg Config) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 100
	}
	if cfg.Init == "" {
		cfg.Init = types.InitFirstK
	}
	if cfg.Seed == 0 {
		cfg.Seed = DefaultSeed
	}
	return &Engine{cfg: cfg}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Run clusters points into k groups within maxIterations assignment passes.
func (e *Engine) Run(points []types.Point, k, maxIterations int) (*types.ClusterRunResult, error) {
	return e.RunContext(context.Background(), points, k, maxIterations)
}

// RunContext is Run with cancellation checked between iterations.
//
// Points start unlabelled (-1), so the first assignment pass always counts as
// a change and a run never reports Converged at iteration 1. With
// maxIterations = 1 the state is therefore always MaxIterationsReached.
func (e *Engine) RunContext(ctx context.Context, points []types.Point, k, maxIterations int) (*types.ClusterRunResult, error) {
	if err := validate(points, k, maxIterations); err != nil {
		return nil, err
	}

	start := time.Now()

	centroids := e.initCentroids(points, k)

	// Every point starts unassigned, so the first pass always counts as a change.
	assignments := make([]int, len(points))
	for i := range assignments {
		assignments[i] = unassigned
	}

	state := types.StateMaxIterations
	iterations := 0

	for iterations < maxIterations {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "kmeans cancelled")
		default:
		}

		iterations++

		// Assignment step: parallel
		changed := e.assignConcurrent(points, centroids, assignments)
		if !changed {
			state = types.StateConverged
			break
		}

		// Update step: recalculate centroids
		if err := updateCentroids(points, assignments, centroids); err != nil {
			return nil, err
		}
	}

	inertia := Inertia(points, assignments, centroids)
	if !kmath.Finite(inertia) {
		return nil, errors.Computation("inertia", "non-finite inertia %v", inertia)
	}

	quality := e.silhouetteConcurrent(points, assignments, k)
	if !kmath.Finite(quality) {
		return nil, errors.Computation("silhouette", "non-finite score %v", quality)
	}

	return &types.ClusterRunResult{
		Points:       append([]types.Point(nil), points...),
		Assignments:  assignments,
		Centroids:    centroids,
		K:            k,
		Iterations:   iterations,
		Inertia:      inertia,
		QualityScore: quality,
		State:        state,
		Init:         e.cfg.Init,
		Latency:      time.Since(start),
	}, nil
}

func validate(points []types.Point, k, maxIterations int) error {
	if k < 1 {
		return errors.InvalidParameter("k", "must be >= 1, got %d", k)
	}
	if len(points) < k {
		return errors.InvalidParameter("points", "need at least k=%d points, got %d", k, len(points))
	}
	if maxIterations < 1 {
		return errors.InvalidParameter("maxIterations", "must be >= 1, got %d", maxIterations)
	}
	for i, p := range points {
		if !p.IsFinite() {
			return errors.Computation("input", "point %d has non-finite coordinates %v", i, p)
		}
	}
	return nil
}

// initCentroids seeds k centroids according to the configured mode.
func (e *Engine) initCentroids(points []types.Point, k int) []types.Point {
	if e.cfg.Init == types.InitKMeansPlusPlus {
		return kMeansPlusPlus(points, k, rand.New(rand.NewSource(e.cfg.Seed)))
	}

	centroids := make([]types.Point, k)
	copy(centroids, points[:k])
	return centroids
}

// kMeansPlusPlus picks the first centroid uniformly, then each next one with
// probability proportional to its squared distance from the nearest chosen centroid.
func kMeansPlusPlus(points []types.Point, k int, rng *rand.Rand) []types.Point {
	n := len(points)
	centroids := make([]types.Point, 0, k)
	chosen := make([]bool, n)

	first := rng.Intn(n)
	centroids = append(centroids, points[first])
	chosen[first] = true

	nearest := make([]float64, n)
	for i, p := range points {
		nearest[i] = kmath.SquaredDistance(p, points[first])
	}

	for len(centroids) < k {
		var total float64
		for _, d := range nearest {
			total += d
		}

		next := -1
		if total > 0 {
			target := rng.Float64() * total
			var cumulative float64
			for i, d := range nearest {
				cumulative += d
				if cumulative > target {
					next = i
					break
				}
			}
		}
		if next < 0 {
			// All remaining points coincide with a centroid; take the next unused index.
			for i := range chosen {
				if !chosen[i] {
					next = i
					break
				}
			}
		}

		centroids = append(centroids, points[next])
		chosen[next] = true
		for i, p := range points {
			if d := kmath.SquaredDistance(p, points[next]); d < nearest[i] {
				nearest[i] = d
			}
		}
	}

	return centroids
}

// forEachChunk splits [0, n) into contiguous ranges and runs fn on each in its own goroutine.
func forEachChunk(n, workers int, fn func(worker, start, end int)) {
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(workerID, start, end int) {
			defer wg.Done()
			fn(workerID, start, end)
		}(w, start, end)
	}

	wg.Wait()
}

// assignConcurrent assigns each point to its nearest centroid in parallel.
// Returns true if any assignment changed.
func (e *Engine) assignConcurrent(points []types.Point, centroids []types.Point, assignments []int) bool {
	workers := e.cfg.Workers
	if workers > len(points) {
		workers = len(points)
	}
	changedFlags := make([]bool, workers)

	forEachChunk(len(points), workers, func(worker, start, end int) {
		changed := false
		for i := start; i < end; i++ {
			nearest := Nearest(centroids, points[i])
			if assignments[i] != nearest {
				assignments[i] = nearest
				changed = true
			}
		}
		changedFlags[worker] = changed
	})

	for _, c := range changedFlags {
		if c {
			return true
		}
	}
	return false
}

// Nearest returns the index of the closest centroid.
// Ties go to the lowest index.
func Nearest(centroids []types.Point, p types.Point) int {
	minDist := math.Inf(1)
	minIdx := 0

	for i, c := range centroids {
		dist := kmath.SquaredDistance(p, c)
		if dist < minDist {
			minDist = dist
			minIdx = i
		}
	}

	return minIdx
}

// updateCentroids recalculates centroids as the mean of assigned points.
// Empty clusters keep their previous centroid.
func updateCentroids(points []types.Point, assignments []int, centroids []types.Point) error {
	k := len(centroids)
	sums := make([]types.Point, k)
	counts := make([]int, k)

	for i, c := range assignments {
		counts[c]++
		sums[c] = sums[c].Add(points[i])
	}

	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			continue
		}
		mean := sums[c].Scale(1.0 / float64(counts[c]))
		if !mean.IsFinite() {
			return errors.Computation("centroid update", "cluster %d has non-finite centroid %v", c, mean)
		}
		centroids[c] = mean
	}

	return nil
}

// Inertia returns the sum of squared distances from each point to its own centroid.
func Inertia(points []types.Point, assignments []int, centroids []types.Point) float64 {
	var sum float64
	for i, c := range assignments {
		sum += kmath.SquaredDistance(points[i], centroids[c])
	}
	return sum
}
