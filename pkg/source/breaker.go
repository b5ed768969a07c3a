package source

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/logging"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

// ErrUnavailable is returned while a source's circuit is open.
var ErrUnavailable = errors.New("point source unavailable")

// BreakerConfig controls when a source's circuit opens.
type BreakerConfig struct {
	// MaxRequests is the number of trial fetches allowed while half-open.
	MaxRequests uint32

	// Interval resets the failure counts while closed.
	Interval time.Duration

	// Timeout is how long the circuit stays open before a trial fetch.
	Timeout time.Duration

	// MinRequests is the sample size needed before the circuit may open.
	MinRequests uint32

	// FailureRatio opens the circuit once this share of fetches fails.
	FailureRatio float64
}

// DefaultBreakerConfig opens after 60% failures over at least 5 fetches and
// retries after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

// Breaker wraps a Source with a circuit breaker. Caller mistakes and
// cancelled contexts do not count as failures.
type Breaker struct {
	src Source
	cb  *gobreaker.CircuitBreaker[[]types.Vector]
	log *zap.SugaredLogger
}

var _ Source = (*Breaker)(nil)

// WithBreaker wraps src.
func WithBreaker(src Source, cfg BreakerConfig) *Breaker {
	b := &Breaker{src: src, log: logging.Named("source")}
	b.cb = gobreaker.NewCircuitBreaker[[]types.Vector](gobreaker.Settings{
		Name:        src.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.log.Warnw("source circuit state changed", "source", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.IsInvalidParameter(err) ||
				errors.Is(err, context.Canceled)
		},
	})
	return b
}

// Name implements Source.
func (b *Breaker) Name() string { return b.src.Name() }

// Fetch implements Source.
func (b *Breaker) Fetch(ctx context.Context, limit int) ([]types.Vector, error) {
	vectors, err := b.cb.Execute(func() ([]types.Vector, error) {
		return b.src.Fetch(ctx, limit)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.Wrapf(ErrUnavailable, "%s: %v", b.src.Name(), err)
	}
	return vectors, err
}

// State reports the circuit state: closed, half-open or open.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Close implements Source.
func (b *Breaker) Close() error { return b.src.Close() }
