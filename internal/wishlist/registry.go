package wishlist

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gift-store/internal/events"
)

// Registry keeps one Store per authenticated user and drops it on sign-out.
type Registry struct {
	remote Remote
	bus    events.Bus
	logger *zap.Logger

	mu     sync.Mutex
	stores map[uuid.UUID]*Store
}

// NewRegistry creates a registry listening for sign-out events on bus.
func NewRegistry(remote Remote, bus events.Bus, logger *zap.Logger) (*Registry, error) {
	r := &Registry{
		remote: remote,
		bus:    bus,
		logger: logger,
		stores: make(map[uuid.UUID]*Store),
	}
	if err := bus.Subscribe(events.TopicSignedOut, r.onSignedOut); err != nil {
		return nil, err
	}
	return r, nil
}

// For returns the store of userID, creating an empty one on first use.
func (r *Registry) For(userID uuid.UUID) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stores[userID]
	if !ok {
		s = New(r.remote)
		r.stores[userID] = s
	}
	return s
}

// Len is the number of users with a store in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Close stops listening for sign-out events.
func (r *Registry) Close() error {
	return r.bus.Unsubscribe(events.TopicSignedOut, r.onSignedOut)
}

func (r *Registry) onSignedOut(e events.SignedOut) {
	userID, err := uuid.Parse(e.UserID)
	if err != nil {
		r.logger.Warn("Ignoring sign-out event with invalid user id", zap.String("user_id", e.UserID))
		return
	}

	r.mu.Lock()
	s, ok := r.stores[userID]
	delete(r.stores, userID)
	r.mu.Unlock()

	if ok {
		s.Clear()
	}
}
