package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// WebsocketTransport implements the RelayTransport interface over plain
// websocket connections, one per relay URL. Payloads pass through opaque;
// framing beyond websocket text messages is the caller's concern.
type WebsocketTransport struct {
	dialer *websocket.Dialer

	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

// NewWebsocketTransport creates a websocket relay transport.
func NewWebsocketTransport() *WebsocketTransport {
	return &WebsocketTransport{
		dialer: websocket.DefaultDialer,
		conns:  make(map[string]*websocket.Conn),
	}
}

func (t *WebsocketTransport) conn(ctx context.Context, relay string) (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.conns[relay]; ok {
		return c, nil
	}

	c, _, err := t.dialer.DialContext(ctx, relay, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial relay %s: %w", relay, err)
	}
	t.conns[relay] = c
	return c, nil
}

// Publish sends a payload to the relay.
func (t *WebsocketTransport) Publish(ctx context.Context, relay string, payload []byte) error {
	c, err := t.conn(ctx, relay)
	if err != nil {
		return err
	}
	if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.drop(relay)
		return fmt.Errorf("failed to write to relay %s: %w", relay, err)
	}
	return nil
}

// Subscribe returns a channel of payloads received from the relay. The
// channel is closed when ctx is cancelled or the connection drops.
func (t *WebsocketTransport) Subscribe(ctx context.Context, relay string) (<-chan []byte, error) {
	c, err := t.conn(ctx, relay)
	if err != nil {
		return nil, err
	}

	ch := make(chan []byte, 16)
	go func() {
		defer close(ch)
		for {
			_, payload, err := c.ReadMessage()
			if err != nil {
				t.drop(relay)
				return
			}
			select {
			case ch <- payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Close tears down all connections.
func (t *WebsocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var firstErr error
	for relay, c := range t.conns {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(t.conns, relay)
	}
	return firstErr
}

func (t *WebsocketTransport) drop(relay string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.conns[relay]; ok {
		c.Close()
		delete(t.conns, relay)
	}
}
