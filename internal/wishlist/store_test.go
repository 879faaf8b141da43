package wishlist

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gift-store/internal/events"
)

type fakeRemote struct {
	mu      sync.Mutex
	rows    map[string]struct{}
	reads   atomic.Int32
	failErr error
	release chan struct{}
	started chan struct{}
}

func newFakeRemote(ids ...string) *fakeRemote {
	f := &fakeRemote{rows: make(map[string]struct{})}
	for _, id := range ids {
		f.rows[id] = struct{}{}
	}
	return f
}

func (f *fakeRemote) ListProductIDs(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if f.reads.Add(1) == 1 && f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	ids := make([]string, 0, len(f.rows))
	for id := range f.rows {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeRemote) Add(ctx context.Context, userID uuid.UUID, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.rows[productID] = struct{}{}
	return nil
}

func (f *fakeRemote) Remove(ctx context.Context, userID uuid.UUID, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	delete(f.rows, productID)
	return nil
}

// Feature: gift-store, Property: toggle is its own inverse
func TestProperty_ToggleTwiceRestoresMembership(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("two toggles leave the set unchanged", prop.ForAll(
		func(initial []string, productID string) bool {
			ctx := context.Background()
			userID := uuid.New()
			s := New(newFakeRemote(initial...))
			if err := s.Fetch(ctx, userID); err != nil {
				return false
			}
			before := s.Items()

			if _, err := s.Toggle(ctx, userID, productID); err != nil {
				return false
			}
			if _, err := s.Toggle(ctx, userID, productID); err != nil {
				return false
			}

			return assert.ObjectsAreEqual(before, s.Items())
		},
		gen.SliceOf(gen.OneConstOf("p1", "p2", "p3", "p4")),
		gen.OneConstOf("p1", "p2", "p5"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestStore_FetchReplacesAndMarksLoaded(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	remote := newFakeRemote("a", "b")
	s := New(remote)

	assert.False(t, s.Loaded())
	require.NoError(t, s.Fetch(ctx, userID))
	assert.True(t, s.Loaded())
	assert.Equal(t, []string{"a", "b"}, s.Items())

	remote.rows = map[string]struct{}{"c": {}}
	require.NoError(t, s.Fetch(ctx, userID))
	assert.Equal(t, []string{"c"}, s.Items())
	assert.Equal(t, int32(2), remote.reads.Load())
}

func TestStore_FetchFailureIsSurfaced(t *testing.T) {
	remote := newFakeRemote()
	remote.failErr = errors.New("connection refused")
	s := New(remote)

	err := s.Fetch(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSyncFailed)
	assert.False(t, s.Loaded())
}

func TestStore_ToggleAddsAndRemoves(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	remote := newFakeRemote()
	s := New(remote)

	on, err := s.Toggle(ctx, userID, "rose")
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, s.IsWishlisted("rose"))
	assert.Contains(t, remote.rows, "rose")

	on, err = s.Toggle(ctx, userID, "rose")
	require.NoError(t, err)
	assert.False(t, on)
	assert.False(t, s.IsWishlisted("rose"))
	assert.NotContains(t, remote.rows, "rose")
}

func TestStore_ToggleFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	remote := newFakeRemote("kept")
	s := New(remote)
	require.NoError(t, s.Fetch(ctx, userID))

	var seen []Snapshot
	s.Subscribe(func(snap Snapshot) { seen = append(seen, snap) })

	remote.failErr = errors.New("timeout")

	on, err := s.Toggle(ctx, userID, "new")
	assert.ErrorIs(t, err, ErrSyncFailed)
	assert.False(t, on)
	assert.False(t, s.IsWishlisted("new"))

	on, err = s.Toggle(ctx, userID, "kept")
	assert.Error(t, err)
	assert.True(t, on)
	assert.True(t, s.IsWishlisted("kept"))

	// Optimistic flip followed by its rollback, for each toggle.
	require.Len(t, seen, 4)
	assert.Contains(t, seen[0].ProductIDs, "new")
	assert.NotContains(t, seen[1].ProductIDs, "new")
	assert.NotContains(t, seen[2].ProductIDs, "kept")
	assert.Contains(t, seen[3].ProductIDs, "kept")
}

func TestStore_ConcurrentEnsureLoadedReadsOnce(t *testing.T) {
	remote := newFakeRemote("a")
	remote.release = make(chan struct{})
	remote.started = make(chan struct{})
	s := New(remote)
	userID := uuid.New()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.EnsureLoaded(context.Background(), userID)
		}()
	}

	<-remote.started
	time.Sleep(50 * time.Millisecond)
	close(remote.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), remote.reads.Load())
	assert.Equal(t, []string{"a"}, s.Items())

	require.NoError(t, s.EnsureLoaded(context.Background(), userID))
	assert.Equal(t, int32(1), remote.reads.Load())
}

func TestStore_ClearDuringFetchDiscardsLateResult(t *testing.T) {
	remote := newFakeRemote("a")
	remote.release = make(chan struct{})
	remote.started = make(chan struct{})
	s := New(remote)

	done := make(chan error)
	go func() { done <- s.Fetch(context.Background(), uuid.New()) }()

	<-remote.started
	s.Clear()
	close(remote.release)
	require.NoError(t, <-done)

	assert.False(t, s.Loaded())
	assert.Empty(t, s.Items())
}

func TestStore_ToggleDuringFetchKeepsToggledMembership(t *testing.T) {
	remote := newFakeRemote("a")
	remote.release = make(chan struct{})
	remote.started = make(chan struct{})
	s := New(remote)
	userID := uuid.New()

	fetched := make(chan error)
	go func() { fetched <- s.Fetch(context.Background(), userID) }()
	<-remote.started

	type toggleResult struct {
		on  bool
		err error
	}
	toggled := make(chan toggleResult)
	go func() {
		on, err := s.Toggle(context.Background(), userID, "rose")
		toggled <- toggleResult{on, err}
	}()

	// Give the toggle time to queue behind the read.
	time.Sleep(20 * time.Millisecond)
	close(remote.release)
	require.NoError(t, <-fetched)
	res := <-toggled
	require.NoError(t, res.err)
	assert.True(t, res.on)

	remote.mu.Lock()
	_, remoteHasRose := remote.rows["rose"]
	remote.mu.Unlock()
	assert.True(t, remoteHasRose)
	assert.Equal(t, remoteHasRose, s.IsWishlisted("rose"))
	assert.True(t, s.IsWishlisted("a"))
	assert.True(t, s.Loaded())
}

func TestRegistry_SignOutClearsStore(t *testing.T) {
	bus := events.New()
	registry, err := NewRegistry(newFakeRemote("a"), bus, zap.NewNop())
	require.NoError(t, err)
	defer registry.Close()

	userID := uuid.New()
	other := uuid.New()
	store := registry.For(userID)
	assert.Same(t, store, registry.For(userID))
	require.NoError(t, store.Fetch(context.Background(), userID))
	registry.For(other)

	bus.Publish(events.TopicSignedOut, events.SignedOut{UserID: userID.String()})

	assert.False(t, store.Loaded())
	assert.Empty(t, store.Items())
	assert.Equal(t, 1, registry.Len())
	assert.NotSame(t, store, registry.For(userID))

	bus.Publish(events.TopicSignedOut, events.SignedOut{UserID: "not-a-uuid"})
	assert.Equal(t, 2, registry.Len())
}
