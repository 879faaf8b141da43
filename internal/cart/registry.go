package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrSnapshotNotFound = errors.New("cart snapshot not found")
)

// SnapshotRepository persists carts between process restarts
type SnapshotRepository interface {
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
	Save(ctx context.Context, sessionID string, snap Snapshot) error
	Delete(ctx context.Context, sessionID string) error
}

type entry struct {
	store *Store
	// lastAccess is unix nanoseconds, bumped on Get and on every change to
	// store so a cart held by an in-flight request is never idle.
	lastAccess  atomic.Int64
	saved       int64
	mu          sync.Mutex
	unsubscribe func()
}

func (e *entry) touch(t time.Time) {
	e.lastAccess.Store(t.UnixNano())
}

func (e *entry) idleSince(cutoff time.Time) bool {
	return e.lastAccess.Load() < cutoff.UnixNano()
}

// Registry owns one Store per cart session. Stores are restored from the
// snapshot repository on first access and saved after every change.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	repo    SnapshotRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewRegistry creates a registry. repo may be nil for a purely in-memory registry.
func NewRegistry(repo SnapshotRepository, logger *zap.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		repo:    repo,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the cart for sessionID, creating it if necessary.
func (r *Registry) Get(ctx context.Context, sessionID string) *Store {
	r.mu.Lock()
	if e, ok := r.entries[sessionID]; ok {
		e.touch(r.now())
		r.mu.Unlock()
		return e.store
	}
	r.mu.Unlock()

	store := r.load(ctx, sessionID)

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another request may have restored the same session meanwhile.
	if e, ok := r.entries[sessionID]; ok {
		e.touch(r.now())
		return e.store
	}

	e := &entry{store: store, saved: store.Snapshot().Version}
	e.touch(r.now())
	e.unsubscribe = store.Subscribe(r.observer(sessionID, e))
	r.entries[sessionID] = e
	return store
}

// Evict drops stores idle for longer than idle and returns how many were removed.
func (r *Registry) Evict(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.entries {
		if e.idleSince(cutoff) {
			e.unsubscribe()
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// Len is the number of carts held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) load(ctx context.Context, sessionID string) *Store {
	if r.repo == nil {
		return New()
	}

	snap, err := r.repo.Load(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrSnapshotNotFound) {
			r.logger.Warn("Failed to restore cart, starting empty",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
		return New()
	}

	return Restore(*snap)
}

// observer runs on every change. It must not take r.mu: Evict holds r.mu while
// unsubscribing, and the bus holds its own lock while delivering.
func (r *Registry) observer(sessionID string, e *entry) func(Snapshot) {
	return func(snap Snapshot) {
		e.touch(r.now())
		if r.repo != nil {
			r.persist(sessionID, e, snap)
		}
	}
}

func (r *Registry) persist(sessionID string, e *entry, snap Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Notifications are delivered outside the store lock and may arrive out of order.
	if snap.Version <= e.saved {
		return
	}
	e.saved = snap.Version

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var err error
	if len(snap.Lines) == 0 {
		err = r.repo.Delete(ctx, sessionID)
	} else {
		err = r.repo.Save(ctx, sessionID, snap)
	}
	if err != nil {
		r.logger.Error("Failed to persist cart",
			zap.String("session_id", sessionID),
			zap.Int64("version", snap.Version),
			zap.Error(err),
		)
	}
}
