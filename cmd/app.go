package cmd

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Siddhant-K-code/minelab/pkg/cache"
	"github.com/Siddhant-K-code/minelab/pkg/config"
	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/history"
	"github.com/Siddhant-K-code/minelab/pkg/logging"
	"github.com/Siddhant-K-code/minelab/pkg/metrics"
	"github.com/Siddhant-K-code/minelab/pkg/service"
	"github.com/Siddhant-K-code/minelab/pkg/source"
	"github.com/Siddhant-K-code/minelab/pkg/telemetry"
)

// app bundles a Service with the collaborators it was built from so that a
// command can release them in one call.
type app struct {
	cfg     *config.Config
	svc     *service.Service
	metrics *metrics.Metrics
	tracer  *telemetry.Provider
	history *history.Store
	cache   cache.Cache
	log     *zap.SugaredLogger
}

type appOptions struct {
	host    string
	metrics bool
}

// newApp builds the service for host from cfg. Every optional layer follows
// its config section.
func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, log: logging.Named(opts.host)}

	tp, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Tracing.Enabled,
		Exporter:    cfg.Telemetry.Tracing.Exporter,
		Endpoint:    cfg.Telemetry.Tracing.Endpoint,
		SampleRate:  cfg.Telemetry.Tracing.SampleRate,
		ServiceName: "minelab-" + opts.host,
		Insecure:    cfg.Telemetry.Tracing.Insecure,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init tracing")
	}
	a.tracer = tp

	if opts.metrics {
		a.metrics = metrics.New()
	}

	if cfg.Cache.Enabled {
		cc := cache.DefaultConfig()
		cc.MaxSize = int64(cfg.Cache.MaxSize)
		cc.DefaultTTL = cfg.Cache.TTL
		a.cache = cache.NewMemoryCache(cc)
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path, cfg.History.TTL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.history = store
	}

	var src source.Source
	if cfg.Source.Backend != "" {
		src, err = source.Open(ctx, sourceConfig(cfg))
		if err != nil {
			a.Close()
			return nil, errors.Wrapf(err, "open %s source", cfg.Source.Backend)
		}
		if cfg.Source.Backend != source.BackendFile {
			src = source.WithBreaker(src, source.DefaultBreakerConfig())
		}
	}

	svc, err := service.New(cfg, service.Deps{
		Cache:     a.cache,
		History:   a.history,
		Metrics:   a.metrics,
		Telemetry: a.tracer,
		Source:    src,
		Host:      opts.host,
	})
	if err != nil {
		if src != nil {
			_ = src.Close()
		}
		a.Close()
		return nil, err
	}
	a.svc = svc

	a.log.Debugw("service ready",
		"cache", a.cache != nil,
		"history", a.history != nil,
		"source", cfg.Source.Backend,
		"tracing", cfg.Telemetry.Tracing.Enabled,
	)
	return a, nil
}

func sourceConfig(cfg *config.Config) source.Config {
	return source.Config{
		Backend:    cfg.Source.Backend,
		Path:       cfg.Source.Path,
		Host:       cfg.Source.Host,
		Index:      cfg.Source.Index,
		Collection: cfg.Source.Collection,
		Namespace:  cfg.Source.Namespace,
		APIKey:     cfg.Source.APIKey,
		UseTLS:     cfg.Source.UseTLS,
	}
}

// Close releases everything newApp opened. Errors are logged.
func (a *app) Close() {
	if a.svc != nil {
		if err := a.svc.Close(); err != nil {
			a.log.Warnw("close source", "error", err)
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.log.Warnw("close history", "error", err)
		}
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.log.Warnw("flush traces", "error", err)
		}
	}
}
