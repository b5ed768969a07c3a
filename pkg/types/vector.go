package types

// Vector is a high-dimensional sample fetched from a point source.
// Values stay float32 to match what vector databases return.
type Vector struct {
	ID       string                 `json:"id"`
	Values   []float32              `json:"values"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewVector creates a new Vector with pre-allocated metadata map.
func NewVector(id string, values []float32) *Vector {
	return &Vector{
		ID:       id,
		Values:   values,
		Metadata: make(map[string]interface{}),
	}
}

// Dimension returns the dimensionality of the vector.
func (v *Vector) Dimension() int {
	return len(v.Values)
}

// Float64s returns the values widened to float64.
func (v *Vector) Float64s() []float64 {
	out := make([]float64, len(v.Values))
	for i, x := range v.Values {
		out[i] = float64(x)
	}
	return out
}

// VectorMatrix widens a vector set into a row-major float64 matrix.
func VectorMatrix(vectors []Vector) [][]float64 {
	rows := make([][]float64, len(vectors))
	for i := range vectors {
		rows[i] = vectors[i].Float64s()
	}
	return rows
}
