package service

import (
	"github.com/Siddhant-K-code/minelab/pkg/cluster"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

// KMeansRequest asks for one clustering run. Points take precedence over
// Dataset; zero values fall back to the cluster section of the config.
type KMeansRequest struct {
	Dataset       string        `json:"dataset,omitempty"`
	Points        []types.Point `json:"points,omitempty" validate:"omitempty,max=100000"`
	K             int           `json:"k,omitempty" validate:"omitempty,min=1"`
	MaxIterations int           `json:"maxIterations,omitempty" validate:"omitempty,min=1,max=10000"`
	Init          string        `json:"init,omitempty" validate:"omitempty,oneof=first-k kmeans++"`
	Seed          int64         `json:"seed,omitempty"`
}

// KMeansResponse wraps a run with its provenance.
type KMeansResponse struct {
	Result  *types.ClusterRunResult `json:"result"`
	Sizes   []int                   `json:"sizes"`
	Dataset string                  `json:"dataset,omitempty"`
	RunID   string                  `json:"runId,omitempty"`
	Cached  bool                    `json:"cached"`
}

// SweepRequest asks for one run per k in [KMin, KMax].
type SweepRequest struct {
	Dataset       string        `json:"dataset,omitempty"`
	Points        []types.Point `json:"points,omitempty" validate:"omitempty,max=100000"`
	KMin          int           `json:"kMin,omitempty" validate:"omitempty,min=1"`
	KMax          int           `json:"kMax,omitempty" validate:"omitempty,min=1,max=100"`
	MaxIterations int           `json:"maxIterations,omitempty" validate:"omitempty,min=1,max=10000"`
	Init          string        `json:"init,omitempty" validate:"omitempty,oneof=first-k kmeans++"`
	Seed          int64         `json:"seed,omitempty"`
}

// SweepResponse wraps a sweep with its provenance.
type SweepResponse struct {
	Result  *cluster.SweepResult `json:"result"`
	Dataset string               `json:"dataset,omitempty"`
	RunID   string               `json:"runId,omitempty"`
	Cached  bool                 `json:"cached"`
}

// MineRequest asks for pair rules over a catalogue. Items take precedence
// over Dataset. Nil thresholds use the mining section of the config.
type MineRequest struct {
	Dataset           string       `json:"dataset,omitempty"`
	Items             []types.Item `json:"items,omitempty" validate:"omitempty,max=1000,dive"`
	TotalTransactions int          `json:"totalTransactions,omitempty" validate:"required_with=Items,gte=0"`
	MinSupport        *float64     `json:"minSupport,omitempty" validate:"omitempty,finite,gte=0,lte=1"`
	MinConfidence     *float64     `json:"minConfidence,omitempty" validate:"omitempty,finite,gte=0,lte=1"`
	CoOccurrence      string       `json:"coOccurrence,omitempty" validate:"omitempty,oneof=synthetic transactions"`
	Seed              int64        `json:"seed,omitempty"`
}

// MineResponse wraps a mining result with its provenance.
type MineResponse struct {
	Result       *types.MiningResult `json:"result"`
	Dataset      string              `json:"dataset,omitempty"`
	CoOccurrence string              `json:"coOccurrence"`
	RunID        string              `json:"runId,omitempty"`
	Cached       bool                `json:"cached"`
}

// TransactionsRequest mines raw baskets: pair rules from measured counts plus
// frequent itemsets up to MaxSize items.
type TransactionsRequest struct {
	Baskets       [][]string `json:"baskets" validate:"required,min=1,max=1000000"`
	MinSupport    *float64   `json:"minSupport,omitempty" validate:"omitempty,finite,gte=0,lte=1"`
	MinConfidence *float64   `json:"minConfidence,omitempty" validate:"omitempty,finite,gte=0,lte=1"`
	MaxSize       int        `json:"maxSize,omitempty" validate:"omitempty,min=1,max=10"`
}

// TransactionsResponse holds both views of a basket scan.
type TransactionsResponse struct {
	Result   *types.MiningResult `json:"result"`
	Itemsets []types.Itemset     `json:"itemsets"`
	RunID    string              `json:"runId,omitempty"`
	Cached   bool                `json:"cached"`
}

// PCARequest asks for a projection of Vectors, or of a dataset when Vectors
// is empty.
type PCARequest struct {
	Dataset    string      `json:"dataset,omitempty"`
	Vectors    [][]float64 `json:"vectors,omitempty" validate:"omitempty,min=2,max=100000"`
	Components int         `json:"components,omitempty" validate:"omitempty,min=1,max=64"`
}

// PCAResponse wraps a projection with its provenance.
type PCAResponse struct {
	Result  *types.Projection `json:"result"`
	Dataset string            `json:"dataset,omitempty"`
	RunID   string            `json:"runId,omitempty"`
	Cached  bool              `json:"cached"`
}

// PointDataset describes a point generator.
type PointDataset struct {
	Name    string `json:"name"`
	Samples int    `json:"samples"`
}

// CatalogueInfo describes an item catalogue without its items.
type CatalogueInfo struct {
	Name              string `json:"name"`
	TotalTransactions int    `json:"totalTransactions"`
	Items             int    `json:"items"`
}

// DatasetsResponse lists every dataset a request may name.
type DatasetsResponse struct {
	Points     []PointDataset  `json:"points"`
	Catalogues []CatalogueInfo `json:"catalogues"`
	Source     string          `json:"source,omitempty"`
}
