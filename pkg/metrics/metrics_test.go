package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNew(t *testing.T) {
	m := New()
	if m == nil {
		t.Fatal("New() returned nil")
	}
	if m.registry == nil {
		t.Fatal("registry is nil")
	}
}

func TestRecordRequest(t *testing.T) {
	m := New()
	m.RecordRequest("/v1/kmeans", 200, 50*time.Millisecond)
	m.RecordRequest("/v1/kmeans", 200, 100*time.Millisecond)
	m.RecordRequest("/v1/kmeans", 400, 5*time.Millisecond)

	val := counterValue(t, m.RequestsTotal, "endpoint", "/v1/kmeans", "status", "200")
	if val != 2 {
		t.Errorf("expected 2 requests with status 200, got %f", val)
	}

	val = counterValue(t, m.RequestsTotal, "endpoint", "/v1/kmeans", "status", "400")
	if val != 1 {
		t.Errorf("expected 1 request with status 400, got %f", val)
	}
}

func TestRecordClusterRun(t *testing.T) {
	m := New()
	m.RecordClusterRun("/v1/kmeans", "converged", 3, 1.0)
	m.RecordClusterRun("/v1/kmeans", "converged", 4, 2.0)
	m.RecordClusterRun("/v1/kmeans", "max_iterations_reached", 100, 9.5)

	if val := counterValue(t, m.ClusterRuns, "endpoint", "/v1/kmeans", "state", "converged"); val != 2 {
		t.Errorf("expected 2 converged runs, got %f", val)
	}
	if val := counterValue(t, m.ClusterRuns, "endpoint", "/v1/kmeans", "state", "max_iterations_reached"); val != 1 {
		t.Errorf("expected 1 capped run, got %f", val)
	}

	if n := histogramCount(t, m.ClusterIters, "/v1/kmeans"); n != 3 {
		t.Errorf("expected 3 iteration samples, got %d", n)
	}
}

func TestRecordMining(t *testing.T) {
	m := New()
	m.RecordMining("/v1/apriori", 28, map[string]int{"strong": 2, "weak": 5})

	if val := counterValue(t, m.PairsEvaluated, "endpoint", "/v1/apriori"); val != 28 {
		t.Errorf("expected 28 pairs, got %f", val)
	}
	if val := counterValue(t, m.RulesGenerated, "strength", "strong"); val != 2 {
		t.Errorf("expected 2 strong rules, got %f", val)
	}
	if val := counterValue(t, m.RulesGenerated, "strength", "weak"); val != 5 {
		t.Errorf("expected 5 weak rules, got %f", val)
	}
}

func TestRecordMining_ZeroInput(t *testing.T) {
	m := New()
	// Should not panic on zero input
	m.RecordMining("/v1/apriori", 0, nil)
}

func TestRecordCache(t *testing.T) {
	m := New()
	m.RecordCache(true)
	m.RecordCache(false)
	m.RecordCache(false)

	if val := counterValue(t, m.CacheLookups, "result", "hit"); val != 1 {
		t.Errorf("expected 1 hit, got %f", val)
	}
	if val := counterValue(t, m.CacheLookups, "result", "miss"); val != 2 {
		t.Errorf("expected 2 misses, got %f", val)
	}
}

func TestMiddleware(t *testing.T) {
	m := New()

	handler := m.Middleware("/v1/kmeans", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/kmeans", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	val := counterValue(t, m.RequestsTotal, "endpoint", "/v1/kmeans", "status", "200")
	if val != 1 {
		t.Errorf("expected 1 request recorded, got %f", val)
	}
}

func TestMiddleware_ErrorStatus(t *testing.T) {
	m := New()

	handler := m.Middleware("/v1/apriori", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/apriori", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	val := counterValue(t, m.RequestsTotal, "endpoint", "/v1/apriori", "status", "400")
	if val != 1 {
		t.Errorf("expected 1 request with status 400, got %f", val)
	}
}

func TestMiddleware_Flush(t *testing.T) {
	m := New()

	handler := m.Middleware("/v1/kmeans/sweep", func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("wrapped writer should implement http.Flusher")
		}
		_, _ = w.Write([]byte("data: x\n\n"))
		f.Flush()
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/kmeans/sweep", nil))

	if !rec.Flushed {
		t.Error("expected response to be flushed")
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordRequest("/v1/kmeans", 200, 10*time.Millisecond)
	m.RecordClusterRun("/v1/kmeans", "converged", 2, 0.5)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, name := range []string{
		"minelab_requests_total",
		"minelab_request_duration_seconds",
		"minelab_cluster_runs_total",
		"minelab_cluster_iterations",
		"go_goroutines",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestActiveRequests(t *testing.T) {
	m := New()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	handler := m.Middleware("/v1/kmeans", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		defer close(done)
		req := httptest.NewRequest(http.MethodPost, "/v1/kmeans", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}()

	<-started

	if v := gaugeValue(t, m.ActiveRequests); v != 1 {
		t.Errorf("expected 1 active request, got %f", v)
	}

	close(release)
	<-done

	if v := gaugeValue(t, m.ActiveRequests); v != 0 {
		t.Errorf("expected 0 active requests, got %f", v)
	}
}

// counterValue extracts the value of a counter with the given label pairs.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labelPairs ...string) float64 {
	t.Helper()
	labels := prometheus.Labels{}
	for i := 0; i < len(labelPairs); i += 2 {
		labels[labelPairs[i]] = labelPairs[i+1]
	}
	counter, err := cv.GetMetricWith(labels)
	if err != nil {
		t.Fatalf("failed to get metric: %v", err)
	}
	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("failed to read gauge: %v", err)
	}
	return metric.GetGauge().GetValue()
}

func histogramCount(t *testing.T, hv *prometheus.HistogramVec, endpoint string) uint64 {
	t.Helper()
	obs, err := hv.GetMetricWithLabelValues(endpoint)
	if err != nil {
		t.Fatalf("failed to get histogram: %v", err)
	}
	var metric dto.Metric
	if err := obs.(prometheus.Metric).Write(&metric); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	return metric.GetHistogram().GetSampleCount()
}
