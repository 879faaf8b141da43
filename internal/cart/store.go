// Package cart implements the shopping-cart state container and the
// per-session registry that owns one container per browsing session.
package cart

import (
	"sync"
	"time"

	evbus "github.com/asaskevich/EventBus"

	"gift-store/internal/domain"
)

const topicChanged = "cart:changed"

// Line is one product in the cart with its chosen quantity and options.
type Line struct {
	Product          domain.Product    `json:"product"`
	Quantity         int               `json:"quantity"`
	SelectedVariants map[string]string `json:"selected_variants,omitempty"`
	CustomMessage    string            `json:"custom_message,omitempty"`
}

// Subtotal is the snapshot price times quantity.
func (l Line) Subtotal() int64 {
	return l.Product.Price * int64(l.Quantity)
}

func (l Line) clone() Line {
	c := l
	c.Product = l.Product.Clone()
	if l.SelectedVariants != nil {
		c.SelectedVariants = make(map[string]string, len(l.SelectedVariants))
		for k, v := range l.SelectedVariants {
			c.SelectedVariants[k] = v
		}
	}
	return c
}

// Snapshot is an immutable view of a cart, also used as its persisted form.
type Snapshot struct {
	Lines      []Line    `json:"items"`
	TotalItems int       `json:"total_items"`
	TotalPrice int64     `json:"total_price"`
	Version    int64     `json:"version"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store holds the lines of one cart. There is at most one line per product
// id. All methods are safe for concurrent use; each call is atomic and
// concurrent writers resolve last-write-wins.
type Store struct {
	mu        sync.RWMutex
	lines     []Line
	version   int64
	updatedAt time.Time
	bus       evbus.Bus
}

// New returns an empty cart.
func New() *Store {
	return &Store{bus: evbus.New()}
}

// Restore rebuilds a cart from a snapshot. Duplicate product lines are merged.
func Restore(snap Snapshot) *Store {
	s := New()
	for _, l := range snap.Lines {
		if l.Quantity <= 0 {
			continue
		}
		if i := s.indexOf(l.Product.ID); i >= 0 {
			s.lines[i].Quantity += l.Quantity
			continue
		}
		s.lines = append(s.lines, l.clone())
	}
	s.version = snap.Version
	s.updatedAt = snap.UpdatedAt
	return s
}

// AddItem merges into an existing line by incrementing its quantity, keeping
// that line's variants and message; otherwise it appends a new line holding a
// copy of the product. Callers pass a positive quantity.
func (s *Store) AddItem(product domain.Product, quantity int, variants map[string]string, message string) {
	s.mu.Lock()
	if i := s.indexOf(product.ID); i >= 0 {
		s.lines[i].Quantity += quantity
	} else {
		line := Line{
			Product:       product,
			Quantity:      quantity,
			CustomMessage: message,
		}
		if len(variants) > 0 {
			line.SelectedVariants = variants
		}
		s.lines = append(s.lines, line.clone())
	}
	snap := s.touch()
	s.mu.Unlock()

	s.notify(snap)
}

// RemoveItem deletes the line for productID. Absent ids leave the cart untouched.
func (s *Store) RemoveItem(productID string) {
	s.mu.Lock()
	i := s.indexOf(productID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	snap := s.touch()
	s.mu.Unlock()

	s.notify(snap)
}

// UpdateQuantity replaces a line's quantity; quantity <= 0 removes the line.
func (s *Store) UpdateQuantity(productID string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(productID)
		return
	}

	s.mu.Lock()
	i := s.indexOf(productID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.lines[i].Quantity = quantity
	snap := s.touch()
	s.mu.Unlock()

	s.notify(snap)
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	s.lines = nil
	snap := s.touch()
	s.mu.Unlock()

	s.notify(snap)
}

// ClearIfUnchanged empties the cart only if no change happened after the
// snapshot with the given version was taken.
func (s *Store) ClearIfUnchanged(version int64) bool {
	s.mu.Lock()
	if s.version != version {
		s.mu.Unlock()
		return false
	}
	s.lines = nil
	snap := s.touch()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// TotalItems is the sum of line quantities.
func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalItems()
}

// TotalPrice is the sum of price x quantity using each line's product snapshot.
func (s *Store) TotalPrice() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalPrice()
}

// Lines returns a copy of the lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLines()
}

// Line returns the line for productID.
func (s *Store) Line(productID string) (Line, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(productID); i >= 0 {
		return s.lines[i].clone(), true
	}
	return Line{}, false
}

// Len is the number of distinct lines.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines)
}

// Snapshot returns a consistent view of lines and totals.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Subscribe registers fn to receive a snapshot after every change and returns
// a function that removes it. Handlers are identified by function identity.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	_ = s.bus.Subscribe(topicChanged, fn)
	return func() {
		_ = s.bus.Unsubscribe(topicChanged, fn)
	}
}

func (s *Store) notify(snap Snapshot) {
	s.bus.Publish(topicChanged, snap)
}

// touch must be called with mu held.
func (s *Store) touch() Snapshot {
	s.version++
	s.updatedAt = time.Now().UTC()
	return s.snapshot()
}

func (s *Store) snapshot() Snapshot {
	return Snapshot{
		Lines:      s.copyLines(),
		TotalItems: s.totalItems(),
		TotalPrice: s.totalPrice(),
		Version:    s.version,
		UpdatedAt:  s.updatedAt,
	}
}

func (s *Store) copyLines() []Line {
	out := make([]Line, len(s.lines))
	for i, l := range s.lines {
		out[i] = l.clone()
	}
	return out
}

func (s *Store) totalItems() int {
	total := 0
	for _, l := range s.lines {
		total += l.Quantity
	}
	return total
}

func (s *Store) totalPrice() int64 {
	var total int64
	for _, l := range s.lines {
		total += l.Subtotal()
	}
	return total
}

func (s *Store) indexOf(productID string) int {
	for i := range s.lines {
		if s.lines[i].Product.ID == productID {
			return i
		}
	}
	return -1
}
