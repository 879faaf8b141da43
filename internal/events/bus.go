// Package events carries application-wide notifications between components
// that must not import each other (auth sign-out clearing wishlists, cart
// changes being persisted).
package events

import (
	evbus "github.com/asaskevich/EventBus"
)

// Topics published on the application bus.
const (
	TopicSignedOut = "auth:signed_out"
)

// Bus is the subset of EventBus the application depends on.
type Bus interface {
	Publish(topic string, args ...interface{})
	Subscribe(topic string, fn interface{}) error
	Unsubscribe(topic string, handler interface{}) error
}

// New returns a synchronous in-process bus.
func New() Bus {
	return evbus.New()
}

// SignedOut is published after a user's refresh token is revoked.
type SignedOut struct {
	UserID string
}
