package ports

import "context"

// RelayTransport is an opaque publish/subscribe channel to a relay. The
// wire protocol, framing and any payload encryption are the transport
// adapter's concern; callers exchange raw payloads only.
type RelayTransport interface {
	// Publish sends a payload to the relay.
	Publish(ctx context.Context, relay string, payload []byte) error

	// Subscribe returns a channel of payloads received from the relay.
	// The channel is closed when ctx is cancelled or the connection drops.
	Subscribe(ctx context.Context, relay string) (<-chan []byte, error)

	// Close tears down all connections.
	Close() error
}
