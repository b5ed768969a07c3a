package service

import (
	"context"
	"time"

	"github.com/Siddhant-K-code/minelab/pkg/cache"
	"github.com/Siddhant-K-code/minelab/pkg/cluster"
	"github.com/Siddhant-K-code/minelab/pkg/dataset"
	"github.com/Siddhant-K-code/minelab/pkg/history"
	"github.com/Siddhant-K-code/minelab/pkg/projection"
	"github.com/Siddhant-K-code/minelab/pkg/types"
	"github.com/Siddhant-K-code/minelab/pkg/validation"
)

const defaultComponents = 3

type pcaKey struct {
	Vectors    [][]float64 `json:"vectors"`
	Components int         `json:"components"`
}

// Project runs PCA over inline vectors, the point source, or a generated
// point dataset.
func (s *Service) Project(ctx context.Context, req PCARequest) (*PCAResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Components == 0 {
		req.Components = defaultComponents
	}

	vectors, name := req.Vectors, ""
	if len(vectors) == 0 {
		name = req.Dataset
		if name == "" {
			name = s.cfg.Cluster.Dataset
		}
		var err error
		if vectors, err = s.datasetMatrix(ctx, name); err != nil {
			return nil, err
		}
	}

	key := pcaKey{Vectors: vectors, Components: req.Components}
	res, hit, err := memo(ctx, s, cache.KindPCA, key, func() (*types.Projection, error) {
		_, span := s.tracer.StartProjection(ctx, len(vectors), req.Components)
		start := time.Now()
		res, err := projection.Project(vectors, req.Components)
		if err == nil && s.metrics != nil {
			s.metrics.RecordProjection()
		}
		finish(span, start, err)
		return res, err
	})
	if err != nil {
		return nil, err
	}

	summary := map[string]float64{
		"vectors":    float64(len(vectors)),
		"dimension":  float64(res.Dimension()),
		"components": float64(len(res.Components)),
	}
	if n := len(res.CumulativeRatio); n > 0 {
		summary["cumulativeRatio"] = res.CumulativeRatio[n-1]
	}

	resp := &PCAResponse{Result: res, Dataset: name, Cached: hit}
	resp.RunID = s.record(ctx, history.KindPCA, struct {
		Dataset    string `json:"dataset,omitempty"`
		Vectors    int    `json:"vectors"`
		Components int    `json:"components"`
	}{name, len(vectors), req.Components}, summary, res)
	return resp, nil
}

// datasetMatrix returns raw vectors for the source dataset, or the rows of a
// generated point dataset.
func (s *Service) datasetMatrix(ctx context.Context, name string) ([][]float64, error) {
	if name == DatasetSource {
		vectors, err := s.fetchVectors(ctx)
		if err != nil {
			return nil, err
		}
		return types.VectorMatrix(vectors), nil
	}
	k := s.cfg.Cluster.K
	if k < 1 {
		k = 1
	}
	seed := s.cfg.Cluster.Seed
	if seed == 0 {
		seed = cluster.DefaultSeed
	}
	points, err := dataset.Generate(name, k, seed)
	if err != nil {
		return nil, err
	}
	return dataset.Rows(points), nil
}
