// Package observe provides the OpenTelemetry metrics for the voice bridge and
// the Prometheus-exporter meter provider feeding /metrics.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for all bridge metrics.
const meterName = "github.com/winmachacker-tech/atlas-command-voice-bridge"

// Drop reasons recorded on the frames-dropped counter.
const (
	DropNotReady    = "not_ready"
	DropBargeIn     = "barge_in"
	DropLinkClosed  = "link_closed"
	DropSessionBusy = "session_busy"
)

// Metrics holds all metric instruments for the bridge. The underlying OTel
// types handle their own synchronisation.
type Metrics struct {
	// ActiveCalls tracks the number of live call sessions.
	ActiveCalls metric.Int64UpDownCounter

	// TelephonyFrames counts inbound media frames from the telephony peer.
	TelephonyFrames metric.Int64Counter

	// FramesDropped counts audio frames dropped in either direction. Use with
	// attribute.String("reason", ...); see the Drop* constants.
	FramesDropped metric.Int64Counter

	// AgentAudioFrames counts outbound media frames forwarded to telephony.
	AgentAudioFrames metric.Int64Counter

	// Finalizations counts finalization outcomes. Use with
	// attribute.String("status", ...): "completed", "skipped", "failed".
	Finalizations metric.Int64Counter

	// SummaryDuration tracks the latency of the post-call summary request.
	SummaryDuration metric.Float64Histogram

	// CallDuration tracks full call duration from accept to close.
	CallDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for the
// summary request.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// callBuckets defines histogram bucket boundaries (in seconds) for call
// durations.
var callBuckets = []float64{
	5, 15, 30, 60, 120, 300, 600, 1800,
}

// NewMetrics creates a fully initialised [Metrics] using the given provider.
// Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ActiveCalls, err = m.Int64UpDownCounter("voicebridge.active_calls",
		metric.WithDescription("Number of live call sessions."),
	); err != nil {
		return nil, err
	}
	if met.TelephonyFrames, err = m.Int64Counter("voicebridge.telephony.frames",
		metric.WithDescription("Inbound media frames received from the telephony peer."),
	); err != nil {
		return nil, err
	}
	if met.FramesDropped, err = m.Int64Counter("voicebridge.frames.dropped",
		metric.WithDescription("Audio frames dropped, by reason."),
	); err != nil {
		return nil, err
	}
	if met.AgentAudioFrames, err = m.Int64Counter("voicebridge.agent.audio_frames",
		metric.WithDescription("Outbound media frames forwarded to the telephony peer."),
	); err != nil {
		return nil, err
	}
	if met.Finalizations, err = m.Int64Counter("voicebridge.finalizations",
		metric.WithDescription("Finalization outcomes, by status."),
	); err != nil {
		return nil, err
	}
	if met.SummaryDuration, err = m.Float64Histogram("voicebridge.summary.duration",
		metric.WithDescription("Latency of the post-call summary request."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CallDuration, err = m.Float64Histogram("voicebridge.call.duration",
		metric.WithDescription("Call duration from accept to close."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(callBuckets...),
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

// DefaultMetrics returns the package-level [Metrics], creating it on first
// call from [otel.GetMeterProvider]. Panics if instrument creation fails
// (should not happen with the global provider).
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

// RecordDroppedFrame increments the dropped-frames counter with the standard
// reason attribute.
func (m *Metrics) RecordDroppedFrame(ctx context.Context, reason string) {
	m.FramesDropped.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordFinalization increments the finalizations counter with the standard
// status attribute.
func (m *Metrics) RecordFinalization(ctx context.Context, status string) {
	m.Finalizations.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
