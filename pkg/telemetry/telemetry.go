// Package telemetry provides OpenTelemetry distributed tracing for minelab.
// Clustering runs, k sweeps, rule mining and projections each get their own
// span, propagated with W3C Trace Context and exported to OTLP or stdout.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

const tracerName = "github.com/Siddhant-K-code/minelab"

// Config holds tracing configuration.
type Config struct {
	// Enabled turns tracing on/off.
	Enabled bool

	// Exporter selects the trace exporter: "otlp", "stdout", or "none".
	Exporter string

	// Endpoint is the OTLP collector address (e.g., "localhost:4317").
	Endpoint string

	// SampleRate controls the sampling ratio (0.0 to 1.0).
	SampleRate float64

	// ServiceName overrides the default service name.
	ServiceName string

	// Insecure disables TLS for the OTLP exporter.
	Insecure bool
}

// DefaultConfig returns tracing defaults (disabled).
func DefaultConfig() Config {
	return Config{
		Enabled:     false,
		Exporter:    "otlp",
		Endpoint:    "localhost:4317",
		SampleRate:  1.0,
		ServiceName: "minelab",
		Insecure:    true,
	}
}

// Provider wraps the OTEL TracerProvider and exposes minelab span helpers.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// Noop returns a provider whose spans are discarded.
func Noop() *Provider {
	return &Provider{tracer: noop.NewTracerProvider().Tracer(tracerName)}
}

// Init sets up the global TracerProvider based on the config.
// Returns a Provider that must be shut down with Shutdown().
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}

	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.Exporter {
	case "otlp":
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, errors.Wrap(err, "create OTLP exporter")
		}
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, errors.Wrap(err, "create stdout exporter")
		}
	case "none", "":
		return Noop(), nil
	default:
		return nil, errors.Newf("unsupported exporter: %q (supported: otlp, stdout, none)", cfg.Exporter)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "minelab"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("0.1.0"),
		),
		resource.WithProcessRuntimeDescription(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create resource")
	}

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRate < 1.0 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		tp:     tp,
		tracer: tp.Tracer(tracerName),
	}, nil
}

// Shutdown flushes pending spans and shuts down the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

// Tracer returns the minelab tracer for creating spans.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// --- Span helpers ---

// StartRequest creates a root span for an incoming HTTP request or MCP tool call.
func (p *Provider) StartRequest(ctx context.Context, endpoint string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "minelab.request",
		trace.WithAttributes(attribute.String("minelab.endpoint", endpoint)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartClusterRun creates a span for one k-means run.
func (p *Provider) StartClusterRun(ctx context.Context, pointCount, k, maxIterations int, init string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "minelab.kmeans",
		trace.WithAttributes(
			attribute.Int("minelab.kmeans.points", pointCount),
			attribute.Int("minelab.kmeans.k", k),
			attribute.Int("minelab.kmeans.max_iterations", maxIterations),
			attribute.String("minelab.kmeans.init", init),
		),
	)
}

// StartSweep creates a span for a k sweep.
func (p *Provider) StartSweep(ctx context.Context, pointCount, kMin, kMax int) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "minelab.sweep",
		trace.WithAttributes(
			attribute.Int("minelab.sweep.points", pointCount),
			attribute.Int("minelab.sweep.k_min", kMin),
			attribute.Int("minelab.sweep.k_max", kMax),
		),
	)
}

// StartMining creates a span for association rule mining.
func (p *Provider) StartMining(ctx context.Context, itemCount int, minSupport, minConfidence float64, policy string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "minelab.mining",
		trace.WithAttributes(
			attribute.Int("minelab.mining.items", itemCount),
			attribute.Float64("minelab.mining.min_support", minSupport),
			attribute.Float64("minelab.mining.min_confidence", minConfidence),
			attribute.String("minelab.mining.cooccurrence", policy),
		),
	)
}

// StartProjection creates a span for a PCA projection.
func (p *Provider) StartProjection(ctx context.Context, vectorCount, components int) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "minelab.pca",
		trace.WithAttributes(
			attribute.Int("minelab.pca.vectors", vectorCount),
			attribute.Int("minelab.pca.components", components),
		),
	)
}

// StartSourceFetch creates a span for pulling vectors from a backend.
func (p *Provider) StartSourceFetch(ctx context.Context, backend string, limit int) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "minelab.source.fetch",
		trace.WithAttributes(
			attribute.String("minelab.source.backend", backend),
			attribute.Int("minelab.source.limit", limit),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartCacheLookup creates a span for a cache lookup.
func (p *Provider) StartCacheLookup(ctx context.Context, key string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "minelab.cache.lookup",
		trace.WithAttributes(attribute.String("minelab.cache.key", key)),
	)
}

// StartHistory creates a span for a run history operation.
func (p *Provider) StartHistory(ctx context.Context, op string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "minelab.history."+op)
}

// RecordClusterResult adds k-means outcome attributes to a span.
func RecordClusterResult(span trace.Span, res *types.ClusterRunResult) {
	if res == nil {
		return
	}
	span.SetAttributes(
		attribute.Int("minelab.result.iterations", res.Iterations),
		attribute.Float64("minelab.result.inertia", res.Inertia),
		attribute.Float64("minelab.result.quality", res.QualityScore),
		attribute.String("minelab.result.state", string(res.State)),
		attribute.Int64("minelab.result.latency_ms", res.Latency.Milliseconds()),
	)
}

// RecordMiningResult adds rule mining outcome attributes to a span.
func RecordMiningResult(span trace.Span, res *types.MiningResult) {
	if res == nil {
		return
	}
	span.SetAttributes(
		attribute.Int("minelab.result.pairs", len(res.Pairs)),
		attribute.Int("minelab.result.rules", res.Summary.Rules),
		attribute.Float64("minelab.result.max_lift", res.Summary.MaxLift),
		attribute.Int64("minelab.result.latency_ms", res.Latency.Milliseconds()),
	)
}

// RecordLatency adds a latency attribute to a span.
func RecordLatency(span trace.Span, latency time.Duration) {
	span.SetAttributes(attribute.Int64("minelab.result.latency_ms", latency.Milliseconds()))
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.Bool("error", true))
}
