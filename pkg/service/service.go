// Package service wires the clustering, mining and projection engines to the
// result cache, run history, metrics and tracing. The HTTP API, the MCP server
// and the CLI all call into a Service.
package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Siddhant-K-code/minelab/pkg/cache"
	"github.com/Siddhant-K-code/minelab/pkg/config"
	"github.com/Siddhant-K-code/minelab/pkg/dataset"
	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/history"
	"github.com/Siddhant-K-code/minelab/pkg/logging"
	"github.com/Siddhant-K-code/minelab/pkg/metrics"
	"github.com/Siddhant-K-code/minelab/pkg/rules"
	"github.com/Siddhant-K-code/minelab/pkg/source"
	"github.com/Siddhant-K-code/minelab/pkg/telemetry"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

// DatasetSource names the configured point source as a dataset.
const DatasetSource = "source"

// DatasetTransactions names the catalogue built from the transactions file.
const DatasetTransactions = "transactions"

// Co-occurrence policy names.
const (
	PolicySynthetic    = "synthetic"
	PolicyTransactions = "transactions"
)

// ErrHistoryDisabled is returned by run lookups when no store is attached.
var ErrHistoryDisabled = errors.New("run history is disabled")

// Deps are the optional collaborators of a Service. Nil fields disable the
// matching feature.
type Deps struct {
	Cache     cache.Cache
	History   *history.Store
	Metrics   *metrics.Metrics
	Telemetry *telemetry.Provider
	Source    source.Source

	// Host labels metrics, e.g. "api", "mcp" or "cli".
	Host string
}

// Service runs analyses with the configured defaults.
type Service struct {
	cfg          *config.Config
	catalogues   *dataset.Catalogues
	transactions *rules.Transactions

	cache   cache.Cache
	history *history.Store
	metrics *metrics.Metrics
	tracer  *telemetry.Provider
	source  source.Source
	host    string

	log *zap.SugaredLogger
}

// New builds a Service from cfg. Catalogue and transaction files named in the
// mining section are read here so that bad files fail at startup.
func New(cfg *config.Config, deps Deps) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	s := &Service{
		cfg:        cfg,
		catalogues: dataset.NewCatalogues(),
		cache:      deps.Cache,
		history:    deps.History,
		metrics:    deps.Metrics,
		tracer:     deps.Telemetry,
		source:     deps.Source,
		host:       deps.Host,
		log:        logging.Named("service"),
	}
	if s.tracer == nil {
		s.tracer = telemetry.Noop()
	}
	if s.host == "" {
		s.host = "cli"
	}

	if path := cfg.Mining.CatalogueFile; path != "" {
		list, err := dataset.LoadCatalogues(path)
		if err != nil {
			return nil, errors.Wrapf(err, "load catalogues from %s", path)
		}
		s.catalogues.Merge(list)
		s.log.Infow("loaded catalogues", "path", path, "count", len(list))
	}

	if path := cfg.Mining.TransactionsFile; path != "" {
		baskets, err := dataset.LoadBaskets(path)
		if err != nil {
			return nil, errors.Wrapf(err, "load transactions from %s", path)
		}
		tx, err := rules.CountTransactions(baskets)
		if err != nil {
			return nil, errors.Wrapf(err, "count transactions in %s", path)
		}
		s.transactions = tx
		s.catalogues.Merge([]types.Catalogue{{
			Name:              DatasetTransactions,
			TotalTransactions: tx.Total,
			Items:             tx.Items,
		}})
		s.log.Infow("loaded transactions", "path", path, "baskets", tx.Total, "items", len(tx.Items))
	}

	return s, nil
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Close releases the point source. The cache and history store belong to
// the caller.
func (s *Service) Close() error {
	if s.source != nil {
		return s.source.Close()
	}
	return nil
}

// record saves a finished run when history is enabled and returns its ID.
// Failures are logged, never returned: a result is still valid without its
// history entry.
func (s *Service) record(ctx context.Context, kind history.Kind, params interface{}, summary map[string]float64, result interface{}) string {
	if s.history == nil {
		return ""
	}
	ctx, span := s.tracer.StartHistory(ctx, "save")
	defer span.End()

	run, err := history.NewRun(kind, params, summary, result)
	if err == nil {
		err = s.history.Save(ctx, run)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		s.log.Warnw("failed to record run", "kind", kind, "error", err)
		return ""
	}
	return run.ID
}

// memo wraps cache.Memo with a lookup span and hit/miss metrics.
func memo[T any](ctx context.Context, s *Service, kind string, params interface{}, compute func() (T, error)) (T, bool, error) {
	if s.cache == nil {
		v, err := compute()
		return v, false, err
	}

	key, err := cache.Key(kind, params)
	if err != nil {
		var zero T
		return zero, false, err
	}

	ctx, span := s.tracer.StartCacheLookup(ctx, key)
	v, hit, err := cache.Memo(ctx, s.cache, key, compute)
	span.End()

	if s.metrics != nil {
		s.metrics.RecordCache(hit)
	}
	return v, hit, err
}

// finish ends span, recording err and the elapsed time.
func finish(span trace.Span, start time.Time, err error) {
	if err != nil {
		telemetry.RecordError(span, err)
	}
	telemetry.RecordLatency(span, time.Since(start))
	span.End()
}
