package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "arbiter"

// Metrics holds all arbiter metric instruments.
type Metrics struct {
	DecisionsTotal    metric.Int64Counter
	ActivationsTotal  metric.Int64Counter
	EscalationsTotal  metric.Int64Counter
	DeadLettersTotal  metric.Int64Counter
	DuplicateEvents   metric.Int64Counter
	AdjudicationScore metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.DecisionsTotal, err = meter.Int64Counter("arbiter.decisions.total",
		metric.WithDescription("Adjudication decisions by verdict"))
	if err != nil {
		return nil, err
	}

	m.ActivationsTotal, err = meter.Int64Counter("arbiter.supervision.activations",
		metric.WithDescription("Supervisor activations by tier"))
	if err != nil {
		return nil, err
	}

	m.EscalationsTotal, err = meter.Int64Counter("arbiter.scope.escalations",
		metric.WithDescription("Scope changes escalated to re-planning"))
	if err != nil {
		return nil, err
	}

	m.DeadLettersTotal, err = meter.Int64Counter("arbiter.deadletters.total",
		metric.WithDescription("Events parked after persistence retries exhausted"))
	if err != nil {
		return nil, err
	}

	m.DuplicateEvents, err = meter.Int64Counter("arbiter.events.duplicates",
		metric.WithDescription("Duplicate event deliveries suppressed"))
	if err != nil {
		return nil, err
	}

	m.AdjudicationScore, err = meter.Float64Histogram("arbiter.adjudication.score",
		metric.WithDescription("Weighted adjudication score distribution"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
