package service

import (
	"context"
	"time"

	"github.com/Siddhant-K-code/minelab/pkg/cache"
	"github.com/Siddhant-K-code/minelab/pkg/cluster"
	"github.com/Siddhant-K-code/minelab/pkg/dataset"
	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/history"
	"github.com/Siddhant-K-code/minelab/pkg/source"
	"github.com/Siddhant-K-code/minelab/pkg/telemetry"
	"github.com/Siddhant-K-code/minelab/pkg/types"
	"github.com/Siddhant-K-code/minelab/pkg/validation"
)

const (
	defaultSweepMin = 2
	defaultSweepMax = 10
)

// clusterKey identifies a clustering computation in the result cache.
type clusterKey struct {
	Points        string `json:"points"`
	N             int    `json:"n"`
	K             int    `json:"k,omitempty"`
	KMin          int    `json:"kMin,omitempty"`
	KMax          int    `json:"kMax,omitempty"`
	MaxIterations int    `json:"maxIterations"`
	Init          string `json:"init"`
	Seed          int64  `json:"seed"`
}

// RunKMeans clusters the requested points.
func (s *Service) RunKMeans(ctx context.Context, req KMeansRequest) (*KMeansResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	s.applyClusterDefaults(&req.Dataset, &req.MaxIterations, &req.Init, &req.Seed)
	if req.K == 0 {
		req.K = s.cfg.Cluster.K
	}

	points, name, err := s.resolvePoints(ctx, req.Dataset, req.Points, req.K, req.Seed)
	if err != nil {
		return nil, err
	}
	engine, err := s.engine(req.Init, req.Seed)
	if err != nil {
		return nil, err
	}

	key := clusterKey{
		Points:        cache.HashPoints(points),
		N:             len(points),
		K:             req.K,
		MaxIterations: req.MaxIterations,
		Init:          string(engine.Config().Init),
		Seed:          engine.Config().Seed,
	}

	res, hit, err := memo(ctx, s, cache.KindKMeans, key, func() (*types.ClusterRunResult, error) {
		ctx, span := s.tracer.StartClusterRun(ctx, len(points), req.K, req.MaxIterations, string(engine.Config().Init))
		start := time.Now()
		res, err := engine.RunContext(ctx, points, req.K, req.MaxIterations)
		if err == nil {
			telemetry.RecordClusterResult(span, res)
			if s.metrics != nil {
				s.metrics.RecordClusterRun(s.host, string(res.State), res.Iterations, res.Inertia)
			}
		}
		finish(span, start, err)
		return res, err
	})
	if err != nil {
		return nil, err
	}

	resp := &KMeansResponse{
		Result:  res,
		Sizes:   res.ClusterSizes(),
		Dataset: name,
		Cached:  hit,
	}
	resp.RunID = s.record(ctx, history.KindKMeans, key, map[string]float64{
		"k":            float64(res.K),
		"points":       float64(len(res.Points)),
		"iterations":   float64(res.Iterations),
		"inertia":      res.Inertia,
		"qualityScore": res.QualityScore,
	}, res)

	s.log.Debugw("kmeans finished",
		"dataset", name, "k", res.K, "iterations", res.Iterations,
		"state", res.State, "cached", hit)
	return resp, nil
}

// Sweep runs one clustering per k. onResult, when set, sees every finished k
// in completion order; it is not called for cached sweeps.
func (s *Service) Sweep(ctx context.Context, req SweepRequest, onResult func(p types.SweepPoint, done, total int)) (*SweepResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	s.applyClusterDefaults(&req.Dataset, &req.MaxIterations, &req.Init, &req.Seed)
	if req.KMin == 0 {
		req.KMin = defaultSweepMin
	}
	defaultMax := req.KMax == 0
	if defaultMax {
		req.KMax = defaultSweepMax
	}
	if req.KMax < req.KMin && !defaultMax {
		return nil, errors.InvalidParameter("kMax", "must be >= kMin=%d, got %d", req.KMin, req.KMax)
	}

	points, name, err := s.resolvePoints(ctx, req.Dataset, req.Points, req.KMax, req.Seed)
	if err != nil {
		return nil, err
	}
	// An unset kMax never asks for more clusters than there are points.
	if defaultMax && req.KMax > len(points) {
		req.KMax = len(points)
	}
	if req.KMax < req.KMin {
		return nil, errors.InvalidParameter("kMax", "must be >= kMin=%d, got %d", req.KMin, req.KMax)
	}
	engine, err := s.engine(req.Init, req.Seed)
	if err != nil {
		return nil, err
	}

	key := clusterKey{
		Points:        cache.HashPoints(points),
		N:             len(points),
		KMin:          req.KMin,
		KMax:          req.KMax,
		MaxIterations: req.MaxIterations,
		Init:          string(engine.Config().Init),
		Seed:          engine.Config().Seed,
	}

	res, hit, err := memo(ctx, s, cache.KindSweep, key, func() (*cluster.SweepResult, error) {
		ctx, span := s.tracer.StartSweep(ctx, len(points), req.KMin, req.KMax)
		start := time.Now()
		res, err := engine.Sweep(ctx, points, req.KMin, req.KMax, req.MaxIterations, cluster.SweepOptions{
			Concurrency: s.cfg.Cluster.SweepConcurrency,
			OnResult:    onResult,
		})
		if err == nil && s.metrics != nil {
			s.metrics.RecordSweep(s.host)
			for _, p := range res.Points {
				s.metrics.RecordClusterRun(s.host, string(p.State), p.Iterations, p.Inertia)
			}
		}
		finish(span, start, err)
		return res, err
	})
	if err != nil {
		return nil, err
	}

	resp := &SweepResponse{Result: res, Dataset: name, Cached: hit}
	resp.RunID = s.record(ctx, history.KindSweep, key, map[string]float64{
		"kMin":   float64(req.KMin),
		"kMax":   float64(req.KMax),
		"points": float64(len(points)),
		"bestK":  float64(res.BestK),
		"elbowK": float64(res.ElbowK),
	}, res)
	return resp, nil
}

func (s *Service) applyClusterDefaults(name *string, maxIterations *int, init *string, seed *int64) {
	if *name == "" {
		*name = s.cfg.Cluster.Dataset
	}
	if *maxIterations == 0 {
		*maxIterations = s.cfg.Cluster.MaxIterations
	}
	if *init == "" {
		*init = s.cfg.Cluster.Init
	}
	if *seed == 0 {
		*seed = s.cfg.Cluster.Seed
	}
}

func (s *Service) engine(init string, seed int64) (*cluster.Engine, error) {
	mode, ok := types.ParseInitMode(init)
	if !ok {
		return nil, errors.InvalidParameter("init", "unsupported mode %q (supported: first-k, kmeans++)", init)
	}
	return cluster.NewEngine(cluster.Config{
		MaxIterations: s.cfg.Cluster.MaxIterations,
		Init:          mode,
		Seed:          seed,
		Workers:       s.cfg.Cluster.Workers,
	}), nil
}

// resolvePoints returns inline points when given, otherwise the named
// dataset. k shapes generated blobs; seed 0 uses cluster.DefaultSeed.
func (s *Service) resolvePoints(ctx context.Context, name string, inline []types.Point, k int, seed int64) ([]types.Point, string, error) {
	if len(inline) > 0 {
		return inline, "", nil
	}
	if name == DatasetSource {
		points, _, err := s.sourcePoints(ctx)
		return points, name, err
	}
	if seed == 0 {
		seed = cluster.DefaultSeed
	}
	if k < 1 {
		k = 1
	}
	points, err := dataset.Generate(name, k, seed)
	return points, name, err
}

// sourcePoints fetches vectors from the configured source and reduces them
// to 3-D. The projection is nil when no reduction was needed.
func (s *Service) sourcePoints(ctx context.Context) ([]types.Point, *types.Projection, error) {
	vectors, err := s.fetchVectors(ctx)
	if err != nil {
		return nil, nil, err
	}
	return source.ToPoints(vectors)
}

func (s *Service) fetchVectors(ctx context.Context) ([]types.Vector, error) {
	if s.source == nil {
		return nil, errors.InvalidParameter("dataset", "no point source is configured")
	}
	limit := s.cfg.Source.Limit
	ctx, span := s.tracer.StartSourceFetch(ctx, s.source.Name(), limit)
	start := time.Now()
	vectors, err := s.source.Fetch(ctx, limit)
	finish(span, start, err)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch from %s", s.source.Name())
	}
	return vectors, nil
}
