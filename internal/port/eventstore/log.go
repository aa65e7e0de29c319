// Package eventstore defines the append-only inbound event log port.
package eventstore

import (
	"context"

	"github.com/alexcrichton/bors2/internal/domain/event"
)

// Log records verified webhook deliveries. Insert is the only operation
// this service needs; rows are never updated or deleted here.
type Log interface {
	Insert(ctx context.Context, ev *event.InboundEvent) (*event.InboundEvent, error)
}
