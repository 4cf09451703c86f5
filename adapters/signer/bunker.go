package signer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/zapgate/zapgate/core"
	"github.com/zapgate/zapgate/ports"
)

// BunkerSigner talks to a remote signing service over a relay. The
// transport is an opaque publish/subscribe channel; requests and responses
// are JSON-RPC-shaped messages matched by request id.
type BunkerSigner struct {
	uri       *core.BunkerURI
	transport ports.RelayTransport

	mu         sync.Mutex
	incoming   <-chan []byte
	subscribed bool
	handshaken bool
}

type rpcRequest struct {
	ID     string   `json:"id"`
	Method string   `json:"method"`
	Params []string `json:"params"`
}

type rpcResponse struct {
	ID     string `json:"id"`
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

// NewBunkerSigner creates a remote-bunker signer. The URI is security-gated
// here, before any network connection: a URI without a secret is rejected
// outright because anyone who sees the pubkey can race the legitimate
// bunker on the relay and answer in its place.
func NewBunkerSigner(uri *core.BunkerURI, transport ports.RelayTransport) (*BunkerSigner, error) {
	if !uri.IsSecure() {
		return nil, core.ErrInsecureBunkerURI()
	}
	return &BunkerSigner{uri: uri, transport: transport}, nil
}

// Connect performs the connect handshake. The bunker must echo the secret
// (or acknowledge) before any signing request is issued.
func (s *BunkerSigner) Connect(ctx context.Context) error {
	result, err := s.call(ctx, "connect", s.uri.PubKey, s.uri.Secret)
	if err != nil {
		return err
	}
	if result != "ack" && result != s.uri.Secret {
		return core.NewError(core.KindInvalidSignature, "bunker did not acknowledge the connection secret")
	}

	s.mu.Lock()
	s.handshaken = true
	s.mu.Unlock()
	return nil
}

// ensureConnected runs the connect handshake once, before the first
// signing RPC. A bunker that cannot acknowledge the secret never sees a
// get_public_key or sign_event request.
func (s *BunkerSigner) ensureConnected(ctx context.Context) error {
	s.mu.Lock()
	done := s.handshaken
	s.mu.Unlock()
	if done {
		return nil
	}
	return s.Connect(ctx)
}

// GetPublicKey asks the bunker for its user public key.
func (s *BunkerSigner) GetPublicKey(ctx context.Context) (string, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return "", err
	}
	return s.call(ctx, "get_public_key")
}

// SignEvent asks the bunker to sign the event and parses the returned
// signed event.
func (s *BunkerSigner) SignEvent(ctx context.Context, event *core.Event) (*core.Event, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	result, err := s.call(ctx, "sign_event", string(payload))
	if err != nil {
		return nil, err
	}

	var signed core.Event
	if err := json.Unmarshal([]byte(result), &signed); err != nil {
		return nil, core.WrapError(core.KindMalformedEvent, "bunker returned an unparseable event", err)
	}
	return &signed, nil
}

// call publishes one request and waits for the matching response.
func (s *BunkerSigner) call(ctx context.Context, method string, params ...string) (string, error) {
	incoming, err := s.subscribe(ctx)
	if err != nil {
		return "", err
	}

	req := rpcRequest{ID: uuid.New().String(), Method: method, Params: params}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := s.transport.Publish(ctx, s.uri.Relays[0], payload); err != nil {
		return "", fmt.Errorf("failed to publish %s request: %w", method, err)
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case raw, ok := <-incoming:
			if !ok {
				return "", fmt.Errorf("relay connection closed while awaiting %s response", method)
			}
			var resp rpcResponse
			if err := json.Unmarshal(raw, &resp); err != nil || resp.ID != req.ID {
				continue
			}
			if resp.Error != "" {
				if resp.Error == "unknown method" {
					return "", core.NewError(core.KindUnknownMethod, method+" is not supported by this bunker")
				}
				return "", fmt.Errorf("bunker rejected %s: %s", method, resp.Error)
			}
			return resp.Result, nil
		}
	}
}

// Method names the session auth method for bunker-backed logins.
func (s *BunkerSigner) Method() string {
	return core.AuthMethodBunker
}

func (s *BunkerSigner) subscribe(ctx context.Context) (<-chan []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.subscribed {
		ch, err := s.transport.Subscribe(ctx, s.uri.Relays[0])
		if err != nil {
			return nil, fmt.Errorf("failed to subscribe to relay: %w", err)
		}
		s.incoming = ch
		s.subscribed = true
	}
	return s.incoming, nil
}

var _ ports.Signer = (*BunkerSigner)(nil)
