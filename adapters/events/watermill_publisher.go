package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/zapgate/zapgate/ports"
)

// Topics for auth lifecycle events.
const (
	LoginTopic  = "auth.login"
	LogoutTopic = "auth.logout"
)

// LoginEvent is published after a session is issued.
type LoginEvent struct {
	PubKey     string `json:"pubkey"`
	AuthMethod string `json:"auth_method"`
}

// LogoutEvent is published when a session is explicitly ended.
type LogoutEvent struct {
	PubKey string `json:"pubkey"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogin publishes a login event.
func (p *WatermillPublisher) PublishLogin(ctx context.Context, pubkey, authMethod string) error {
	return p.publish(LoginTopic, LoginEvent{PubKey: pubkey, AuthMethod: authMethod})
}

// PublishLogout publishes a logout event.
func (p *WatermillPublisher) PublishLogout(ctx context.Context, pubkey string) error {
	return p.publish(LogoutTopic, LogoutEvent{PubKey: pubkey})
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
