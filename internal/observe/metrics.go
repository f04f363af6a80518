// Package observe provides observability primitives for the SDK:
// OpenTelemetry metric instruments, tracing helpers with trace-correlated
// logging, and an optional Prometheus provider bridge for applications that
// want to scrape SDK metrics.
//
// Metrics are recorded through the OpenTelemetry Metrics API only; unless
// the embedding application installs a meter provider (its own, or via
// [InitProvider]), all instruments are no-ops. A package-level default
// [Metrics] instance ([Default]) is used by the SDK packages; tests should
// use [NewMetrics] with a private meter provider to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// scopeName is the instrumentation scope name used for all SDK metrics and
// traces.
const scopeName = "github.com/itslanguage/itslanguage-go"

// Metrics holds all OpenTelemetry metric instruments for the SDK.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// RPCCalls counts RPC invocations on the streaming channel. Attributes:
	//   procedure, status (ok | rejected | cancelled | write_error).
	RPCCalls metric.Int64Counter

	// SessionDuration tracks wall-clock duration of streaming sessions from
	// first RPC to settlement. Attributes: kind (recording | recognition),
	// status (ok | error).
	SessionDuration metric.Float64Histogram

	// ActiveSessions tracks the number of streaming sessions currently in
	// flight. At most one per channel, but an application may hold several
	// channels.
	ActiveSessions metric.Int64UpDownCounter

	// ChunksWritten counts audio chunks streamed to the server.
	ChunksWritten metric.Int64Counter

	// ChunkBytes counts raw (pre-base64) audio bytes streamed to the server.
	ChunkBytes metric.Int64Counter
}

// sessionBuckets defines histogram bucket boundaries (in seconds) sized for
// spoken challenge attempts.
var sessionBuckets = []float64{
	0.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(scopeName)
	var err error
	met := &Metrics{}

	if met.RPCCalls, err = m.Int64Counter("itslanguage.rpc.calls",
		metric.WithDescription("Total RPC calls on the streaming channel by procedure and status."),
	); err != nil {
		return nil, err
	}
	if met.SessionDuration, err = m.Float64Histogram("itslanguage.session.duration",
		metric.WithDescription("Duration of streaming sessions by kind and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(sessionBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("itslanguage.session.active",
		metric.WithDescription("Number of streaming sessions currently in flight."),
	); err != nil {
		return nil, err
	}
	if met.ChunksWritten, err = m.Int64Counter("itslanguage.session.chunks",
		metric.WithDescription("Total audio chunks streamed to the server."),
	); err != nil {
		return nil, err
	}
	if met.ChunkBytes, err = m.Int64Counter("itslanguage.session.chunk_bytes",
		metric.WithDescription("Total raw audio bytes streamed to the server."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns the package-level [Metrics] instance, creating it on first
// call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordSession records one settled streaming session: its duration sample
// with kind/status attributes.
func (m *Metrics) RecordSession(ctx context.Context, kind string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SessionDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("status", status),
		))
}
