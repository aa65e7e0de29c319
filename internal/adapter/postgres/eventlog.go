package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexcrichton/bors2/internal/domain/event"
)

// EventLog implements the eventstore.Log port using PostgreSQL
// (append-only).
type EventLog struct {
	pool *pgxpool.Pool
}

// NewEventLog creates a new EventLog backed by the given connection pool.
func NewEventLog(pool *pgxpool.Pool) *EventLog {
	return &EventLog{pool: pool}
}

// Insert appends a verified delivery to the events table. State starts at
// unprocessed; downstream consumers advance it out of band.
func (l *EventLog) Insert(ctx context.Context, ev *event.InboundEvent) (*event.InboundEvent, error) {
	var inserted event.InboundEvent
	var providerID int
	err := db(ctx, l.pool).QueryRow(ctx,
		`INSERT INTO events (provider, provider_delivery_id, provider_event, payload, state)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, provider, provider_delivery_id, provider_event, payload, state, received_at`,
		int(ev.Provider), ev.ProviderDeliveryID, ev.ProviderEvent, ev.Payload, event.StateUnprocessed,
	).Scan(&inserted.ID, &providerID, &inserted.ProviderDeliveryID,
		&inserted.ProviderEvent, &inserted.Payload, &inserted.State, &inserted.ReceivedAt)
	if err != nil {
		return nil, fmt.Errorf("insert %s event: %w", ev.Provider, err)
	}
	inserted.Provider = event.Provider(providerID)
	return &inserted, nil
}
