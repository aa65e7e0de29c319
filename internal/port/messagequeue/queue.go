// Package messagequeue defines the event fanout port (interface).
package messagequeue

import "context"

// Publisher announces accepted inbound events to downstream processors.
// Publishing is best effort: ingestion never fails because fanout did.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}
