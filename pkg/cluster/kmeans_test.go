package cluster

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

var twoPairs = []types.Point{
	{0, 0, 0},
	{0, 0, 1},
	{10, 10, 10},
	{10, 10, 11},
}

// blobs generates n points around k centers with a fixed seed.
func blobs(n, k int, seed int64) []types.Point {
	rng := rand.New(rand.NewSource(seed))
	centers := make([]types.Point, k)
	for i := range centers {
		centers[i] = types.Point{(rng.Float64() - 0.5) * 10, (rng.Float64() - 0.5) * 10, (rng.Float64() - 0.5) * 10}
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
	return points
}

func TestRun_SeparatesTwoPairs(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	res, err := engine.Run(twoPairs, 2, 10)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0, 1, 1}, res.Assignments)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, types.StateConverged, res.State)
	assert.True(t, res.Converged())
	assert.InDelta(t, 1.0, res.Inertia, 1e-12)
	assert.Equal(t, types.Point{0, 0, 0.5}, res.Centroids[0])
	assert.Equal(t, types.Point{10, 10, 10.5}, res.Centroids[1])
	assert.Greater(t, res.QualityScore, 0.9)
	assert.LessOrEqual(t, res.QualityScore, 1.0)
	assert.Equal(t, types.InitFirstK, res.Init)
	assert.Equal(t, []int{2, 2}, res.ClusterSizes())
}

func TestRun_InvalidParameters(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	tests := []struct {
		name   string
		points []types.Point
		k      int
		iter   int
		param  string
	}{
		{"zero k", twoPairs, 0, 10, "k"},
		{"k above n", twoPairs, 5, 10, "points"},
		{"no points", nil, 1, 10, "points"},
		{"zero iterations", twoPairs, 2, 0, "maxIterations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Run(tt.points, tt.k, tt.iter)
			require.Error(t, err)
			assert.True(t, errors.IsInvalidParameter(err))
			assert.Equal(t, tt.param, errors.ParamOf(err))
		})
	}
}

func TestRun_NonFiniteInput(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	_, err := engine.Run([]types.Point{{0, 0, 0}, {math.NaN(), 1, 1}}, 1, 10)
	require.Error(t, err)
	assert.True(t, errors.IsComputation(err))
}

func TestRun_CentroidOverflow(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	big := math.MaxFloat64
	_, err := engine.Run([]types.Point{{big, 0, 0}, {big, 0, 0}}, 1, 5)
	require.Error(t, err)
	assert.True(t, errors.IsComputation(err))
}

func TestRun_Deterministic(t *testing.T) {
	points := blobs(300, 4, 7)

	a, err := NewEngine(Config{Workers: 1}).Run(points, 4, 100)
	require.NoError(t, err)
	b, err := NewEngine(Config{Workers: 8}).Run(points, 4, 100)
	require.NoError(t, err)
	c, err := NewEngine(Config{Workers: 8}).Run(points, 4, 100)
	require.NoError(t, err)

	for _, other := range []*types.ClusterRunResult{b, c} {
		assert.Equal(t, a.Assignments, other.Assignments)
		assert.Equal(t, a.Centroids, other.Centroids)
		assert.Equal(t, a.Inertia, other.Inertia)
		assert.Equal(t, a.QualityScore, other.QualityScore)
		assert.Equal(t, a.Iterations, other.Iterations)
	}
}

func TestRun_ConvergenceBound(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	for _, maxIter := range []int{1, 2, 3, 5, 50} {
		points := blobs(200, 3, int64(maxIter))
		res, err := engine.Run(points, 3, maxIter)
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Iterations, maxIter)

		if res.Iterations < maxIter {
			require.Equal(t, types.StateConverged, res.State)

			// One more assignment pass changes nothing.
			for i, p := range points {
				assert.Equal(t, res.Assignments[i], Nearest(res.Centroids, p))
			}

			// And the update step reproduces the same centroids.
			centroids := append([]types.Point(nil), res.Centroids...)
			require.NoError(t, updateCentroids(points, res.Assignments, centroids))
			for c := range centroids {
				for d := 0; d < 3; d++ {
					assert.InDelta(t, res.Centroids[c][d], centroids[c][d], 1e-9)
				}
			}
		}
	}
}

func TestRun_CentroidValidity(t *testing.T) {
	points := blobs(150, 5, 11)
	res, err := NewEngine(DefaultConfig()).Run(points, 5, 100)
	require.NoError(t, err)

	members := make([][]types.Point, res.K)
	for i, c := range res.Assignments {
		members[c] = append(members[c], points[i])
	}

	for c, m := range members {
		if len(m) == 0 {
			assert.True(t, res.Centroids[c].IsFinite())
			continue
		}
		lo, hi := boundingBox(m)
		for d := 0; d < 3; d++ {
			assert.GreaterOrEqual(t, res.Centroids[c][d], lo[d]-1e-9, "centroid %d below its members' box", c)
			assert.LessOrEqual(t, res.Centroids[c][d], hi[d]+1e-9, "centroid %d above its members' box", c)
		}
	}
}

// boundingBox returns the per-axis minimum and maximum of a non-empty slice.
func boundingBox(points []types.Point) (lo, hi types.Point) {
	lo, hi = points[0], points[0]
	for _, p := range points[1:] {
		for d := 0; d < 3; d++ {
			lo[d] = math.Min(lo[d], p[d])
			hi[d] = math.Max(hi[d], p[d])
		}
	}
	return lo, hi
}

func TestRun_InertiaMonotonic(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	for seed := int64(1); seed <= 5; seed++ {
		points := blobs(300, 3, seed)

		one, err := engine.Run(points, 3, 1)
		require.NoError(t, err)
		full, err := engine.Run(points, 3, 100)
		require.NoError(t, err)

		assert.LessOrEqual(t, full.Inertia, one.Inertia+1e-9)
	}
}

func TestRun_StableInputConvergesOnSecondPass(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	// k=1 labels never change after the first pass.
	one, err := engine.Run(twoPairs, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, types.StateMaxIterations, one.State)

	res, err := engine.Run(twoPairs, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, types.StateConverged, res.State)
}

func TestRun_SingleIteration(t *testing.T) {
	points := blobs(100, 5, 3)

	res, err := NewEngine(DefaultConfig()).Run(points, 5, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, types.StateMaxIterations, res.State)
	assert.False(t, res.Converged())
	for _, c := range res.Assignments {
		assert.True(t, c >= 0 && c < 5)
	}
}

func TestRun_SingleCluster(t *testing.T) {
	res, err := NewEngine(DefaultConfig()).Run(twoPairs, 1, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, types.StateConverged, res.State)
	assert.Equal(t, types.Point{5, 5, 5.5}, res.Centroids[0])
	assert.Equal(t, 0.0, res.QualityScore)
}

func TestRun_TiesAndEmptyCluster(t *testing.T) {
	points := []types.Point{{0, 0, 0}, {0, 0, 0}, {10, 0, 0}}

	res, err := NewEngine(DefaultConfig()).Run(points, 2, 10)
	require.NoError(t, err)

	// Both seeds coincide, so the first pass sends everything to cluster 0
	// and cluster 1 keeps its seed until the second pass.
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, []int{1, 1, 0}, res.Assignments)
	assert.Equal(t, types.Point{10, 0, 0}, res.Centroids[0])
	assert.Equal(t, types.Point{0, 0, 0}, res.Centroids[1])
	assert.Equal(t, 0.0, res.Inertia)
}

func TestRun_KMeansPlusPlus(t *testing.T) {
	points := blobs(300, 4, 21)
	cfg := Config{Init: types.InitKMeansPlusPlus, Seed: 42}

	a, err := NewEngine(cfg).Run(points, 4, 100)
	require.NoError(t, err)
	b, err := NewEngine(cfg).Run(points, 4, 100)
	require.NoError(t, err)

	assert.Equal(t, types.InitKMeansPlusPlus, a.Init)
	assert.Equal(t, a.Assignments, b.Assignments)
	assert.Equal(t, a.Centroids, b.Centroids)
	assert.Len(t, a.Centroids, 4)
}

func TestKMeansPlusPlus_DuplicatePoints(t *testing.T) {
	points := []types.Point{{1, 1, 1}, {1, 1, 1}, {1, 1, 1}}

	centroids := kMeansPlusPlus(points, 3, rand.New(rand.NewSource(1)))
	assert.Len(t, centroids, 3)
	for _, c := range centroids {
		assert.Equal(t, types.Point{1, 1, 1}, c)
	}
}

func TestNearest_TieGoesToLowestIndex(t *testing.T) {
	centroids := []types.Point{{-1, 0, 0}, {1, 0, 0}}
	assert.Equal(t, 0, Nearest(centroids, types.Point{0, 0, 0}))
	assert.Equal(t, 1, Nearest(centroids, types.Point{0.5, 0, 0}))
}

func TestSilhouette(t *testing.T) {
	assert.InDelta(t, 0.94, Silhouette(twoPairs, []int{0, 0, 1, 1}, 2), 0.01)
	assert.Equal(t, 0.0, Silhouette(twoPairs, []int{0, 0, 0, 0}, 2))
	assert.Equal(t, 0.0, Silhouette(twoPairs, []int{0, 0, 0, 0}, 1))

	// A bad split scores lower than the natural one.
	bad := Silhouette(twoPairs, []int{0, 1, 0, 1}, 2)
	assert.Less(t, bad, 0.0)
	assert.GreaterOrEqual(t, bad, -1.0)
}

func TestSilhouette_WorkerIndependent(t *testing.T) {
	points := blobs(120, 3, 5)
	res, err := NewEngine(DefaultConfig()).Run(points, 3, 100)
	require.NoError(t, err)

	assert.Equal(t, Silhouette(points, res.Assignments, 3), silhouette(points, res.Assignments, 3, 7))
}

func TestSilhouette_SampledAboveCap(t *testing.T) {
	n := 10 * SilhouetteSampleSize
	points := blobs(n, 3, 3)
	res, err := NewEngine(DefaultConfig()).Run(points, 3, 100)
	require.NoError(t, err)

	sp, sa := strided(points, res.Assignments, SilhouetteSampleSize)
	require.Len(t, sp, SilhouetteSampleSize)
	assert.Equal(t, points[0], sp[0])
	assert.Equal(t, points[10], sp[1])

	// The run's score is the exact score of the sample.
	assert.Equal(t, Silhouette(sp, sa, 3), res.QualityScore)
	assert.Equal(t, res.QualityScore, silhouette(points, res.Assignments, 3, 4))
	assert.GreaterOrEqual(t, res.QualityScore, -1.0)
	assert.LessOrEqual(t, res.QualityScore, 1.0)
}

func TestSilhouette_ExactAtCap(t *testing.T) {
	points := blobs(SilhouetteSampleSize, 2, 8)
	res, err := NewEngine(DefaultConfig()).Run(points, 2, 100)
	require.NoError(t, err)

	sp, sa := strided(points, res.Assignments, SilhouetteSampleSize)
	assert.Equal(t, points, sp)
	assert.Equal(t, res.Assignments, sa)
}
