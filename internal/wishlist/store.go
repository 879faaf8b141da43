// Package wishlist keeps the saved-products set of an authenticated user in
// memory and synchronizes it with the wishlist table.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	evbus "github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const topicChanged = "wishlist:changed"

var (
	// ErrSyncFailed wraps remote failures. Local state has already been rolled
	// back when it is returned from Toggle.
	ErrSyncFailed = errors.New("wishlist sync failed")
)

// Remote is the persisted (user, product) table.
type Remote interface {
	ListProductIDs(ctx context.Context, userID uuid.UUID) ([]string, error)
	Add(ctx context.Context, userID uuid.UUID, productID string) error
	Remove(ctx context.Context, userID uuid.UUID, productID string) error
}

// Snapshot is published to subscribers after every change.
type Snapshot struct {
	ProductIDs []string `json:"product_ids"`
	Loaded     bool     `json:"loaded"`
}

// Store is the in-memory product-id set of one user.
type Store struct {
	remote Remote

	mu         sync.RWMutex
	items      map[string]struct{}
	loaded     bool
	generation uint64

	toggleMu sync.Mutex
	loads    singleflight.Group
	bus      evbus.Bus
}

// New returns an empty, not loaded store.
func New(remote Remote) *Store {
	return &Store{
		remote: remote,
		items:  make(map[string]struct{}),
		bus:    evbus.New(),
	}
}

// Fetch replaces the local set with the remote rows for userID and marks the
// store loaded. Concurrent calls share a single remote read. Toggles wait for
// the read to be applied, and a read never starts while a toggle is writing.
func (s *Store) Fetch(ctx context.Context, userID uuid.UUID) error {
	_, err, _ := s.loads.Do(userID.String(), func() (interface{}, error) {
		s.toggleMu.Lock()
		defer s.toggleMu.Unlock()

		s.mu.RLock()
		gen := s.generation
		s.mu.RUnlock()

		ids, err := s.remote.ListProductIDs(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSyncFailed, err)
		}

		s.mu.Lock()
		// Cleared while the read was in flight.
		if s.generation != gen {
			s.mu.Unlock()
			return nil, nil
		}
		s.items = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			s.items[id] = struct{}{}
		}
		s.loaded = true
		s.generation++
		snap := s.snapshot()
		s.mu.Unlock()

		s.notify(snap)
		return nil, nil
	})
	return err
}

// EnsureLoaded fetches only when the store has not been loaded yet.
func (s *Store) EnsureLoaded(ctx context.Context, userID uuid.UUID) error {
	if s.Loaded() {
		return nil
	}
	return s.Fetch(ctx, userID)
}

// Toggle flips membership of productID, then writes the change remotely. When
// the remote call fails the local flip is undone and the error returned.
// It reports whether the product is wishlisted afterwards.
func (s *Store) Toggle(ctx context.Context, userID uuid.UUID, productID string) (bool, error) {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()

	s.mu.Lock()
	_, present := s.items[productID]
	s.flip(productID, !present)
	snap := s.snapshot()
	s.mu.Unlock()
	s.notify(snap)

	var err error
	if present {
		err = s.remote.Remove(ctx, userID, productID)
	} else {
		err = s.remote.Add(ctx, userID, productID)
	}
	if err == nil {
		return !present, nil
	}

	s.mu.Lock()
	s.flip(productID, present)
	snap = s.snapshot()
	s.mu.Unlock()
	s.notify(snap)

	return present, fmt.Errorf("%w: %w", ErrSyncFailed, err)
}

// IsWishlisted reports local membership.
func (s *Store) IsWishlisted(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[productID]
	return ok
}

// Clear resets the store to empty and not loaded.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = make(map[string]struct{})
	s.loaded = false
	s.generation++
	snap := s.snapshot()
	s.mu.Unlock()

	s.notify(snap)
}

// Loaded reports whether a fetch has completed since the last Clear.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Items returns the wishlisted product ids in sorted order.
func (s *Store) Items() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedIDs()
}

// Subscribe registers fn for change notifications and returns its remover.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	_ = s.bus.Subscribe(topicChanged, fn)
	return func() {
		_ = s.bus.Unsubscribe(topicChanged, fn)
	}
}

func (s *Store) flip(productID string, on bool) {
	if on {
		s.items[productID] = struct{}{}
	} else {
		delete(s.items, productID)
	}
}

func (s *Store) notify(snap Snapshot) {
	s.bus.Publish(topicChanged, snap)
}

func (s *Store) snapshot() Snapshot {
	return Snapshot{ProductIDs: s.sortedIDs(), Loaded: s.loaded}
}

func (s *Store) sortedIDs() []string {
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
