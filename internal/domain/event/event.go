// Package event defines the append-only record of inbound webhook deliveries.
package event

import "time"

// Provider identifies which external service sent a delivery. The numeric
// values are stable: they are what lands in the events table.
type Provider int

const (
	ProviderGitHub   Provider = 0
	ProviderTravis   Provider = 1
	ProviderAppVeyor Provider = 2
)

// String returns the lowercase provider name.
func (p Provider) String() string {
	switch p {
	case ProviderGitHub:
		return "github"
	case ProviderTravis:
		return "travis"
	case ProviderAppVeyor:
		return "appveyor"
	}
	return "unknown"
}

// Processing states for an inbound event. Rows are inserted unprocessed;
// downstream consumers advance the state out of band.
const (
	StateUnprocessed = 0
)

// InboundEvent is one accepted webhook delivery. Rows are append-only:
// once inserted they are never mutated or deleted by this service, and a
// row exists only for deliveries whose signature verified.
type InboundEvent struct {
	ID                 int64
	Provider           Provider
	ProviderDeliveryID string // provider's idempotency key; empty when the provider sends none
	ProviderEvent      string // provider's event type, e.g. "pull_request"
	Payload            string // exact raw payload, UTF-8 validated
	State              int
	ReceivedAt         time.Time
}
