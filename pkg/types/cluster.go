package types

import "time"

// ClusterState is the terminal state of a K-Means run.
type ClusterState string

const (
	// StateConverged means an assignment pass changed nothing.
	StateConverged ClusterState = "converged"

	// StateMaxIterations means the iteration budget ran out first.
	StateMaxIterations ClusterState = "max_iterations_reached"
)

// InitMode selects how initial centroids are seeded.
type InitMode string

const (
	// InitFirstK seeds with the first k points in input order.
	InitFirstK InitMode = "first-k"

	// InitKMeansPlusPlus seeds with k-means++ from a seeded RNG.
	InitKMeansPlusPlus InitMode = "kmeans++"
)

// ParseInitMode maps a user string onto an InitMode.
// Returns false for unknown values.
func ParseInitMode(s string) (InitMode, bool) {
	switch s {
	case "", "first-k", "firstk", "first":
		return InitFirstK, true
	case "kmeans++", "k-means++", "plusplus", "pp":
		return InitKMeansPlusPlus, true
	}
	return "", false
}

// ClusterRunResult holds the output of one K-Means run.
type ClusterRunResult struct {
	// Points are the input points, in input order
	Points []Point `json:"points"`

	// Assignments maps point index to cluster index (0..K-1)
	Assignments []int `json:"assignments"`

	// Centroids are the final cluster centers
	Centroids []Point `json:"centroids"`

	// K is the number of clusters
	K int `json:"k"`

	// Iterations is the number of assignment passes executed
	Iterations int `json:"iterations"`

	// Inertia is the sum of squared distances to the own centroid
	Inertia float64 `json:"inertia"`

	// QualityScore is the mean silhouette coefficient in [-1, 1]
	QualityScore float64 `json:"qualityScore"`

	// State is the terminal state of the run
	State ClusterState `json:"state"`

	// Init is the seeding mode used
	Init InitMode `json:"init"`

	// Latency is the run execution time
	Latency time.Duration `json:"latencyNs"`
}

// Converged reports whether the run stopped on a stable assignment.
func (r *ClusterRunResult) Converged() bool {
	return r.State == StateConverged
}

// ClusterSizes returns the number of points assigned to each cluster.
func (r *ClusterRunResult) ClusterSizes() []int {
	sizes := make([]int, r.K)
	for _, c := range r.Assignments {
		if c >= 0 && c < r.K {
			sizes[c]++
		}
	}
	return sizes
}

// SweepPoint is one row of a k sweep (elbow curve).
type SweepPoint struct {
	K            int           `json:"k"`
	Iterations   int           `json:"iterations"`
	Inertia      float64       `json:"inertia"`
	QualityScore float64       `json:"qualityScore"`
	State        ClusterState  `json:"state"`
	Latency      time.Duration `json:"latencyNs"`
}

// SweepPointOf summarises a run as a sweep row.
func SweepPointOf(r *ClusterRunResult) SweepPoint {
	return SweepPoint{
		K:            r.K,
		Iterations:   r.Iterations,
		Inertia:      r.Inertia,
		QualityScore: r.QualityScore,
		State:        r.State,
		Latency:      r.Latency,
	}
}
