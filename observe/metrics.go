// Package observe holds the OpenTelemetry instruments for a monitoring
// session and the Prometheus bridge that exposes them on /metrics.
//
// Tests should build a [Metrics] with [NewMetrics] over a manual reader;
// [Default] binds to the global provider.
package observe

import (
	"context"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "audioguard"

// Metrics holds every instrument recorded by the monitor. The OTel types
// synchronise internally.
type Metrics struct {
	// Batches counts amplitude batches taken off the capture queue.
	Batches metric.Int64Counter

	// BatchesDropped counts batches discarded because the queue was full.
	BatchesDropped metric.Int64Counter

	// AlertsRaised counts batches that passed the gate.
	AlertsRaised metric.Int64Counter

	// AlertsDispatched counts alerts that survived debouncing.
	AlertsDispatched metric.Int64Counter

	// AlertsSuppressed counts raised alerts absorbed by the cool-down.
	AlertsSuppressed metric.Int64Counter

	// ChannelErrors counts failed alert actions. Use with attribute:
	//   attribute.String("channel", ...)
	ChannelErrors metric.Int64Counter

	// DispatchDuration tracks per-channel action latency.
	DispatchDuration metric.Float64Histogram

	// Loudness is the distribution of calibrated batch loudness. Silent
	// batches are not recorded.
	Loudness metric.Float64Histogram

	// ResidentMemory is the process RSS sampled by the heartbeat.
	ResidentMemory metric.Float64Gauge
}

var dispatchBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

var loudnessBuckets = []float64{
	-90, -80, -70, -60, -50, -40, -30, -20, -10, -6, -3, 0, 20, 40, 60, 80, 100,
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Batches, err = m.Int64Counter("audioguard.batches",
		metric.WithDescription("Amplitude batches processed."),
	); err != nil {
		return nil, err
	}
	if met.BatchesDropped, err = m.Int64Counter("audioguard.batches.dropped",
		metric.WithDescription("Amplitude batches discarded on queue overflow."),
	); err != nil {
		return nil, err
	}
	if met.AlertsRaised, err = m.Int64Counter("audioguard.alerts.raised",
		metric.WithDescription("Batches that crossed the threshold and passed the gate."),
	); err != nil {
		return nil, err
	}
	if met.AlertsDispatched, err = m.Int64Counter("audioguard.alerts.dispatched",
		metric.WithDescription("Alerts dispatched to channels."),
	); err != nil {
		return nil, err
	}
	if met.AlertsSuppressed, err = m.Int64Counter("audioguard.alerts.suppressed",
		metric.WithDescription("Alerts absorbed by the cool-down."),
	); err != nil {
		return nil, err
	}
	if met.ChannelErrors, err = m.Int64Counter("audioguard.channel.errors",
		metric.WithDescription("Failed alert actions by channel."),
	); err != nil {
		return nil, err
	}
	if met.DispatchDuration, err = m.Float64Histogram("audioguard.dispatch.duration",
		metric.WithDescription("Latency of a single alert action."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(dispatchBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Loudness, err = m.Float64Histogram("audioguard.loudness",
		metric.WithDescription("Calibrated batch loudness."),
		metric.WithUnit("dB"),
		metric.WithExplicitBucketBoundaries(loudnessBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ResidentMemory, err = m.Float64Gauge("audioguard.process.rss",
		metric.WithDescription("Resident memory of the process."),
		metric.WithUnit("MiBy"),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns the package-level Metrics bound to [otel.GetMeterProvider].
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

func (m *Metrics) RecordLoudness(ctx context.Context, db float64) {
	if math.IsInf(db, 0) || math.IsNaN(db) {
		return
	}
	m.Loudness.Record(ctx, db)
}

// RecordChannel records the outcome of one alert action.
func (m *Metrics) RecordChannel(ctx context.Context, channel string, d time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("channel", channel))
	m.DispatchDuration.Record(ctx, d.Seconds(), attrs)
	if err != nil {
		m.ChannelErrors.Add(ctx, 1, attrs)
	}
}
