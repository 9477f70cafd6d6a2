// Package observe provides application-wide observability primitives for
// Homophoner: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Homophoner metrics.
const meterName = "github.com/MrWong99/homophoner"

// Resolution outcomes used as the "outcome" attribute of
// [Metrics.Resolutions].
const (
	OutcomeIdentity = "identity"
	OutcomeOverride = "override"
	OutcomeScored   = "scored"
	OutcomeError    = "error"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// ResolveDuration tracks the latency of a single homophone resolution.
	ResolveDuration metric.Float64Histogram

	// Resolutions counts resolutions. Use with attribute:
	//   attribute.String("outcome", ...)
	Resolutions metric.Int64Counter

	// LoadDuration tracks how long an expensive resource took to load. Use
	// with attribute:
	//   attribute.String("resource", ...)
	LoadDuration metric.Float64Histogram

	// LoadErrors counts failed resource loads. Use with attribute:
	//   attribute.String("resource", ...)
	LoadErrors metric.Int64Counter

	// OverrideReloads counts re-parses of the override file.
	OverrideReloads metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). A
// resolution normally completes in well under a millisecond once resources
// are loaded; model loads take seconds.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ResolveDuration, err = m.Float64Histogram("homophoner.resolve.duration",
		metric.WithDescription("Latency of homophone resolution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Resolutions, err = m.Int64Counter("homophoner.resolutions",
		metric.WithDescription("Total resolutions by outcome."),
	); err != nil {
		return nil, err
	}
	if met.LoadDuration, err = m.Float64Histogram("homophoner.load.duration",
		metric.WithDescription("Latency of loading a model or index."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LoadErrors, err = m.Int64Counter("homophoner.load.errors",
		metric.WithDescription("Total failed resource loads by resource."),
	); err != nil {
		return nil, err
	}
	if met.OverrideReloads, err = m.Int64Counter("homophoner.override.reloads",
		metric.WithDescription("Total re-parses of the override file."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("homophoner.http.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordResolution records the duration and outcome of one resolution.
func (m *Metrics) RecordResolution(ctx context.Context, outcome string, d time.Duration) {
	m.ResolveDuration.Record(ctx, d.Seconds())
	m.Resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordLoad records the duration of a resource load and, when err is
// non-nil, a load error.
func (m *Metrics) RecordLoad(ctx context.Context, resource string, d time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("resource", resource))
	m.LoadDuration.Record(ctx, d.Seconds(), attrs)
	if err != nil {
		m.LoadErrors.Add(ctx, 1, attrs)
	}
}

// RecordHTTPRequest records one served request under its route pattern.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	m.HTTPRequestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}

// RecordOverrideReload records one re-parse of the override file.
func (m *Metrics) RecordOverrideReload(ctx context.Context) {
	m.OverrideReloads.Add(ctx, 1)
}
