package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "bors2"

// Metrics holds all bors2 metric instruments.
type Metrics struct {
	DeliveriesAccepted  metric.Int64Counter
	DeliveriesRejected  metric.Int64Counter
	OnboardingCompleted metric.Int64Counter
	TokensLinked        metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.DeliveriesAccepted, err = meter.Int64Counter("bors2.deliveries.accepted",
		metric.WithDescription("Webhook deliveries that passed signature verification"))
	if err != nil {
		return nil, err
	}

	m.DeliveriesRejected, err = meter.Int64Counter("bors2.deliveries.rejected",
		metric.WithDescription("Webhook deliveries rejected before the event log"))
	if err != nil {
		return nil, err
	}

	m.OnboardingCompleted, err = meter.Int64Counter("bors2.onboarding.completed",
		metric.WithDescription("Repositories registered through the OAuth callback"))
	if err != nil {
		return nil, err
	}

	m.TokensLinked, err = meter.Int64Counter("bors2.tokens.linked",
		metric.WithDescription("CI provider tokens validated and stored"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
