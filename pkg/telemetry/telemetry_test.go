package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

func TestInit_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	p, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() { _ = p.Shutdown(context.Background()) }()

	if p.Tracer() == nil {
		t.Fatal("tracer should not be nil even when disabled")
	}

	// Should create no-op spans without error
	ctx, span := p.StartRequest(context.Background(), "/v1/kmeans")
	if ctx == nil {
		t.Fatal("context should not be nil")
	}
	span.End()
}

func TestInit_ExporterNone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporter = "none"

	p, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() { _ = p.Shutdown(context.Background()) }()

	if p.Tracer() == nil {
		t.Fatal("tracer should not be nil")
	}
}

func TestInit_ExporterStdout(t *testing.T) {
	p := stdoutProvider(t)

	if p.tp == nil {
		t.Fatal("TracerProvider should not be nil for stdout exporter")
	}
}

func TestInit_InvalidExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporter = "invalid"

	_, err := Init(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error for invalid exporter")
	}
}

func TestInit_SampleRate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporter = "stdout"
	cfg.SampleRate = 0.5

	p, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() { _ = p.Shutdown(context.Background()) }()
}

func TestShutdown_NoopProvider(t *testing.T) {
	if err := Noop().Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown should not error on noop provider: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Enabled {
		t.Error("tracing should be disabled by default")
	}
	if cfg.Exporter != "otlp" {
		t.Errorf("expected default exporter otlp, got %s", cfg.Exporter)
	}
	if cfg.Endpoint != "localhost:4317" {
		t.Errorf("expected default endpoint localhost:4317, got %s", cfg.Endpoint)
	}
	if cfg.SampleRate != 1.0 {
		t.Errorf("expected default sample rate 1.0, got %f", cfg.SampleRate)
	}
	if cfg.ServiceName != "minelab" {
		t.Errorf("expected default service name minelab, got %s", cfg.ServiceName)
	}
}

func TestSpanHelpers(t *testing.T) {
	p := stdoutProvider(t)
	ctx := context.Background()

	// All span helpers should work without panicking
	tests := []struct {
		name string
		fn   func() (context.Context, trace.Span)
	}{
		{"StartRequest", func() (context.Context, trace.Span) { return p.StartRequest(ctx, "/v1/kmeans") }},
		{"StartClusterRun", func() (context.Context, trace.Span) { return p.StartClusterRun(ctx, 150, 3, 100, "first-k") }},
		{"StartSweep", func() (context.Context, trace.Span) { return p.StartSweep(ctx, 150, 2, 8) }},
		{"StartMining", func() (context.Context, trace.Span) { return p.StartMining(ctx, 8, 0.1, 0.6, "synthetic") }},
		{"StartProjection", func() (context.Context, trace.Span) { return p.StartProjection(ctx, 50, 3) }},
		{"StartSourceFetch", func() (context.Context, trace.Span) { return p.StartSourceFetch(ctx, "qdrant", 500) }},
		{"StartCacheLookup", func() (context.Context, trace.Span) { return p.StartCacheLookup(ctx, "kmeans:abc") }},
		{"StartHistory", func() (context.Context, trace.Span) { return p.StartHistory(ctx, "save") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, span := tt.fn()
			if c == nil {
				t.Error("context should not be nil")
			}
			if span == nil {
				t.Error("span should not be nil")
			}
			span.End()
		})
	}
}

func TestRecordClusterResult(t *testing.T) {
	p := stdoutProvider(t)

	_, span := p.StartClusterRun(context.Background(), 4, 2, 100, "first-k")
	RecordClusterResult(span, &types.ClusterRunResult{
		K:          2,
		Iterations: 3,
		Inertia:    1.0,
		State:      types.StateConverged,
		Latency:    12 * time.Millisecond,
	})
	// nil results are ignored
	RecordClusterResult(span, nil)
	span.End()
}

func TestRecordMiningResult(t *testing.T) {
	p := stdoutProvider(t)

	_, span := p.StartMining(context.Background(), 3, 0.1, 0.6, "fixed")
	RecordMiningResult(span, &types.MiningResult{
		Pairs:   []types.PairStat{{ItemA: "A", ItemB: "B", CoOccurrence: 40, Support: 0.4}},
		Summary: types.MiningSummary{Rules: 2, MaxLift: 1.33},
	})
	RecordMiningResult(span, nil)
	RecordLatency(span, time.Millisecond)
	span.End()
}

func TestRecordError(t *testing.T) {
	p := stdoutProvider(t)

	_, span := p.StartRequest(context.Background(), "/v1/kmeans")
	RecordError(span, errors.New("test error"))
	span.End()
}

func stdoutProvider(t *testing.T) *Provider {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporter = "stdout"

	p, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p
}
