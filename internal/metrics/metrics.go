// Package metrics holds the OpenTelemetry instruments for the spending
// pipeline. Tests should build their own Metrics with NewMetrics and a
// ManualReader-backed provider; DefaultMetrics uses the global provider.
package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "spendvoice"

// Save outcomes.
const (
	OutcomeSaved     = "saved"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Sink delivery statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds every instrument. All fields are safe for concurrent use.
type Metrics struct {
	// ParseDuration tracks how long one utterance takes to become a draft.
	ParseDuration metric.Float64Histogram

	// UtterancesParsed counts parses. Attribute: amount=found|missing.
	UtterancesParsed metric.Int64Counter

	// Saves counts save attempts. Attribute: outcome.
	Saves metric.Int64Counter

	// CorrectionsLearned counts new or overwritten merchant corrections.
	CorrectionsLearned metric.Int64Counter

	// SinkDeliveries counts sink attempts. Attributes: sink, status.
	SinkDeliveries metric.Int64Counter
}

var parseBuckets = []float64{
	0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5,
}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ParseDuration, err = m.Float64Histogram("spendvoice.parse.duration",
		metric.WithDescription("Latency of turning an utterance into a draft."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(parseBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UtterancesParsed, err = m.Int64Counter("spendvoice.utterances.parsed",
		metric.WithDescription("Total utterances parsed by amount result."),
	); err != nil {
		return nil, err
	}
	if met.Saves, err = m.Int64Counter("spendvoice.saves",
		metric.WithDescription("Total save attempts by outcome."),
	); err != nil {
		return nil, err
	}
	if met.CorrectionsLearned, err = m.Int64Counter("spendvoice.corrections.learned",
		metric.WithDescription("Total merchant corrections written to memory."),
	); err != nil {
		return nil, err
	}
	if met.SinkDeliveries, err = m.Int64Counter("spendvoice.sink.deliveries",
		metric.WithDescription("Total external sink deliveries by sink and status."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a package-level instance built on the global
// provider. It panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("metrics: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordParse records one parse and its latency.
func (m *Metrics) RecordParse(ctx context.Context, amountFound bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "missing"
	if amountFound {
		result = "found"
	}
	m.UtterancesParsed.Add(ctx, 1, metric.WithAttributes(attribute.String("amount", result)))
	m.ParseDuration.Record(ctx, elapsed.Seconds())
}

// RecordSave counts one save attempt.
func (m *Metrics) RecordSave(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Saves.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordCorrection counts one learned correction.
func (m *Metrics) RecordCorrection(ctx context.Context) {
	if m == nil {
		return
	}
	m.CorrectionsLearned.Add(ctx, 1)
}

// RecordSinkDelivery counts one sink attempt.
func (m *Metrics) RecordSinkDelivery(ctx context.Context, sink, status string) {
	if m == nil {
		return
	}
	m.SinkDeliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sink", sink),
		attribute.String("status", status),
	))
}
