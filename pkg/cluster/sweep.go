package cluster

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

// SweepOptions controls a k sweep.
type SweepOptions struct {
	// Concurrency bounds how many runs execute at once. Default: NumCPU
	Concurrency int

	// OnResult is called once per finished k, serialised, in completion order.
	OnResult func(p types.SweepPoint, done, total int)
}

// SweepResult holds one run per k, ordered by k.
type SweepResult struct {
	Points []types.SweepPoint `json:"points"`

	// BestK has the highest quality score; ties go to the smaller k
	BestK int `json:"bestK"`

	// ElbowK is the knee of the inertia curve
	ElbowK int `json:"elbowK"`

	Latency time.Duration `json:"latencyNs"`
}

// Sweep runs one independent K-Means per k in [kMin, kMax] on a worker pool.
func (e *Engine) Sweep(ctx context.Context, points []types.Point, kMin, kMax, maxIterations int, opts SweepOptions) (*SweepResult, error) {
	if kMin < 1 {
		return nil, errors.InvalidParameter("kMin", "must be >= 1, got %d", kMin)
	}
	if kMax < kMin {
		return nil, errors.InvalidParameter("kMax", "must be >= kMin=%d, got %d", kMin, kMax)
	}
	if kMax > len(points) {
		return nil, errors.InvalidParameter("kMax", "must be <= number of points %d, got %d", len(points), kMax)
	}
	if maxIterations < 1 {
		return nil, errors.InvalidParameter("maxIterations", "must be >= 1, got %d", maxIterations)
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	start := time.Now()
	total := kMax - kMin + 1

	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, errors.Wrap(err, "create sweep pool")
	}
	defer pool.Release()

	results := make([]types.SweepPoint, total)
	errs := make([]error, total)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)

	for k := kMin; k <= kMax; k++ {
		k := k
		wg.Add(1)
		submitErr := pool.Submit(func() {
			// Recovered here rather than in the pool so the error is stored
			// before wg.Wait returns.
			defer func() {
				if v := recover(); v != nil {
					errs[k-kMin] = errors.Newf("sweep worker panic at k=%d: %v", k, v)
				}
				wg.Done()
			}()

			res, err := e.RunContext(ctx, points, k, maxIterations)
			if err != nil {
				errs[k-kMin] = errors.Wrapf(err, "k=%d", k)
				return
			}
			results[k-kMin] = types.SweepPointOf(res)

			mu.Lock()
			defer mu.Unlock()
			done++
			if opts.OnResult != nil {
				opts.OnResult(results[k-kMin], done, total)
			}
		})
		if submitErr != nil {
			wg.Done()
			errs[k-kMin] = errors.Wrapf(submitErr, "submit k=%d", k)
		}
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return &SweepResult{
		Points:  results,
		BestK:   bestK(results),
		ElbowK:  elbowK(results),
		Latency: time.Since(start),
	}, nil
}

func bestK(points []types.SweepPoint) int {
	if len(points) == 0 {
		return 0
	}
	best := points[0]
	for _, p := range points[1:] {
		if p.QualityScore > best.QualityScore {
			best = p
		}
	}
	return best.K
}

// elbowK returns the k whose (k, inertia) lies farthest below the chord joining
// the first and last sweep rows.
func elbowK(points []types.SweepPoint) int {
	if len(points) == 0 {
		return 0
	}
	if len(points) < 3 {
		return points[0].K
	}

	first, last := points[0], points[len(points)-1]
	dx := float64(last.K - first.K)
	dy := last.Inertia - first.Inertia

	knee := first.K
	bestGap := 0.0
	for _, p := range points[1 : len(points)-1] {
		onChord := first.Inertia + dy*float64(p.K-first.K)/dx
		if gap := onChord - p.Inertia; gap > bestGap {
			bestGap = gap
			knee = p.K
		}
	}
	return knee
}
