package service

import (
	"context"

	"github.com/Siddhant-K-code/minelab/pkg/dataset"
	"github.com/Siddhant-K-code/minelab/pkg/history"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

// DefaultRunLimit caps ListRuns when no limit is given.
const DefaultRunLimit = 50

// Datasets lists point generators, catalogues and the point source.
func (s *Service) Datasets() DatasetsResponse {
	resp := DatasetsResponse{
		Points:     make([]PointDataset, 0, 4),
		Catalogues: make([]CatalogueInfo, 0),
	}
	for _, name := range dataset.PointDatasets() {
		resp.Points = append(resp.Points, PointDataset{Name: name, Samples: dataset.SampleCount(name)})
	}
	for _, cat := range s.catalogues.All() {
		resp.Catalogues = append(resp.Catalogues, CatalogueInfo{
			Name:              cat.Name,
			TotalTransactions: cat.TotalTransactions,
			Items:             len(cat.Items),
		})
	}
	if s.source != nil {
		resp.Source = s.source.Name()
	}
	return resp
}

// Catalogue returns the named catalogue with its items.
func (s *Service) Catalogue(name string) (types.Catalogue, error) {
	return s.catalogues.Get(name)
}

// ListRuns returns stored runs newest first, without their results.
func (s *Service) ListRuns(ctx context.Context, kind string, limit int) ([]history.Run, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	k, err := history.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRunLimit
	}

	ctx, span := s.tracer.StartHistory(ctx, "list")
	defer span.End()
	return s.history.List(ctx, k, limit)
}

// GetRun returns one stored run with its result.
func (s *Service) GetRun(ctx context.Context, id string) (*history.Run, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	ctx, span := s.tracer.StartHistory(ctx, "get")
	defer span.End()
	return s.history.Get(ctx, id)
}
