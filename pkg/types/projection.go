package types

// Projection is the output of a principal component analysis.
type Projection struct {
	// Components are unit-length principal axes, strongest first
	Components [][]float64 `json:"components"`

	// ExplainedVariance is each component's eigenvalue
	ExplainedVariance []float64 `json:"explainedVariance"`

	// ExplainedVarianceRatio is each component's share of total variance
	ExplainedVarianceRatio []float64 `json:"explainedVarianceRatio"`

	// CumulativeRatio is the running sum of ExplainedVarianceRatio
	CumulativeRatio []float64 `json:"cumulativeRatio"`

	// Mean is the per-dimension mean subtracted before projecting
	Mean []float64 `json:"mean"`

	// Coordinates holds each input row projected onto Components
	Coordinates [][]float64 `json:"coordinates"`
}

// Dimension returns the input dimensionality.
func (p *Projection) Dimension() int {
	return len(p.Mean)
}
