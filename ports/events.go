package ports

import "context"

// EventPublisher publishes auth lifecycle events to notify other instances.
type EventPublisher interface {
	PublishLogin(ctx context.Context, pubkey, authMethod string) error
	PublishLogout(ctx context.Context, pubkey string) error
}
