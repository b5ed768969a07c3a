package math

import (
	"math"

	"github.com/Siddhant-K-code/minelab/pkg/types"
)

// SquaredDistance returns the squared Euclidean distance between two points.
func SquaredDistance(a, b types.Point) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return dx*dx + dy*dy + dz*dz
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b types.Point) float64 {
	return math.Sqrt(SquaredDistance(a, b))
}

// Dot computes the inner product of two float64 vectors.
func Dot(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var sum float64
	n := len(a)

	i := 0
	for ; i <= n-4; i += 4 {
		sum += a[i]*b[i] +
			a[i+1]*b[i+1] +
			a[i+2]*b[i+2] +
			a[i+3]*b[i+3]
	}

	for ; i < n; i++ {
		sum += a[i] * b[i]
	}

	return sum
}

// Norm returns the L2 norm of v.
func Norm(v []float64) float64 {
	return math.Sqrt(Dot(v, v))
}

// NormalizeInPlace scales v to unit length in-place.
// Returns the original norm; a zero vector is left untouched.
func NormalizeInPlace(v []float64) float64 {
	mag := Norm(v)
	if mag == 0 {
		return 0
	}
	inv := 1.0 / mag
	for i := range v {
		v[i] *= inv
	}
	return mag
}

// Finite reports whether x is neither NaN nor ±Inf.
func Finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// AllFinite reports whether every value in v is finite.
func AllFinite(v []float64) bool {
	for _, x := range v {
		if !Finite(x) {
			return false
		}
	}
	return true
}
