package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRPCCallsCounter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	attrs := metric.WithAttributes(
		attribute.String("procedure", "write"),
		attribute.String("status", "ok"),
	)
	m.RPCCalls.Add(ctx, 1, attrs)
	m.RPCCalls.Add(ctx, 1, attrs)
	m.RPCCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("procedure", "write"),
		attribute.String("status", "rejected"),
	))

	rm := collect(t, reader)
	met := findMetric(rm, "itslanguage.rpc.calls")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}

	// Find the data point with status=ok.
	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == "status" && kv.Value.AsString() == "ok" {
				if dp.Value != 2 {
					t.Errorf("counter value = %d, want 2", dp.Value)
				}
				return
			}
		}
	}
	t.Error("data point with status=ok not found")
}

func TestRecordSession(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSession(ctx, "recording", time.Now().Add(-50*time.Millisecond), nil)
	m.RecordSession(ctx, "recognition", time.Now().Add(-50*time.Millisecond), errors.New("nospeech"))

	rm := collect(t, reader)
	met := findMetric(rm, "itslanguage.session.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) != 2 {
		t.Fatalf("got %d data points, want 2 (one per kind/status pair)", len(hist.DataPoints))
	}

	for _, dp := range hist.DataPoints {
		var kind, status string
		for _, kv := range dp.Attributes.ToSlice() {
			switch string(kv.Key) {
			case "kind":
				kind = kv.Value.AsString()
			case "status":
				status = kv.Value.AsString()
			}
		}
		switch kind {
		case "recording":
			if status != "ok" {
				t.Errorf("recording status = %q, want ok", status)
			}
		case "recognition":
			if status != "error" {
				t.Errorf("recognition status = %q, want error", status)
			}
		default:
			t.Errorf("unexpected kind %q", kind)
		}
		if dp.Count != 1 {
			t.Errorf("sample count = %d, want 1", dp.Count)
		}
	}
}

func TestActiveSessionsUpDown(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, -1)

	rm := collect(t, reader)
	met := findMetric(rm, "itslanguage.session.active")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := sum.DataPoints[0].Value; got != 1 {
		t.Errorf("active sessions = %d, want 1", got)
	}
}

func TestChunkCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ChunksWritten.Add(ctx, 3)
	m.ChunkBytes.Add(ctx, 3*4096)

	rm := collect(t, reader)

	counters := []struct {
		name string
		want int64
	}{
		{"itslanguage.session.chunks", 3},
		{"itslanguage.session.chunk_bytes", 3 * 4096},
	}
	for _, tc := range counters {
		t.Run(tc.name, func(t *testing.T) {
			met := findMetric(rm, tc.name)
			if met == nil {
				t.Fatalf("metric %q not found", tc.name)
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %q is not a sum", tc.name)
			}
			if len(sum.DataPoints) == 0 {
				t.Fatalf("metric %q has no data points", tc.name)
			}
			if got := sum.DataPoints[0].Value; got != tc.want {
				t.Errorf("counter value = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestDefault_ReturnsSameInstance(t *testing.T) {
	// Default uses the global OTel provider so we just check that repeated
	// calls return the same pointer.
	a := Default()
	b := Default()
	if a != b {
		t.Error("Default returned different pointers")
	}
}
