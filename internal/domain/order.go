package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfilment state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderSteps is the linear progression shown in the order tracker.
var orderSteps = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
}

// OrderSteps returns the tracker steps in display order.
func OrderSteps() []OrderStatus {
	return append([]OrderStatus(nil), orderSteps...)
}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	return s == OrderStatusCancelled || s.StepIndex() >= 0
}

// Label is the human readable status name.
func (s OrderStatus) Label() string {
	switch s {
	case OrderStatusConfirmed:
		return "Confirmed"
	case OrderStatusShipped:
		return "Shipped"
	case OrderStatusDelivered:
		return "Delivered"
	case OrderStatusCancelled:
		return "Cancelled"
	default:
		return "Pending"
	}
}

// StepIndex is the position of s on the tracker, -1 for cancelled or unknown.
func (s OrderStatus) StepIndex() int {
	for i, step := range orderSteps {
		if step == s {
			return i
		}
	}
	return -1
}

// Terminal reports whether no further transitions are allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo allows moving forward along the tracker, or cancelling a
// non-terminal order.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() || !next.Valid() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return next.StepIndex() > s.StepIndex()
}

// ProgressStep is one node of the order tracker
type ProgressStep struct {
	Status OrderStatus `json:"status"`
	Label  string      `json:"label"`
	Active bool        `json:"active"`
}

// Progress returns the tracker for s. Cancelled orders have no tracker and
// unknown statuses are displayed as pending.
func (s OrderStatus) Progress() []ProgressStep {
	if s == OrderStatusCancelled {
		return nil
	}
	current := s.StepIndex()
	if current < 0 {
		current = 0
	}

	steps := make([]ProgressStep, len(orderSteps))
	for i, step := range orderSteps {
		steps[i] = ProgressStep{
			Status: step,
			Label:  step.Label(),
			Active: i <= current,
		}
	}
	return steps
}

// OrderItem is a line captured when the order was placed
type OrderItem struct {
	ProductID string `json:"product_id,omitempty"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	Image     string `json:"image,omitempty"`
}

// Subtotal is price times quantity for the line.
func (i OrderItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// Order represents a placed order
type Order struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	UserID    uuid.UUID   `json:"user_id" db:"user_id"`
	Status    OrderStatus `json:"status" db:"status"`
	Total     int64       `json:"total" db:"total"`
	Items     []OrderItem `json:"items" db:"items"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// Reference is the short order number shown to customers.
func (o *Order) Reference() string {
	s := o.ID.String()
	ref := []byte(s[:8])
	for i, c := range ref {
		if c >= 'a' && c <= 'z' {
			ref[i] = c - 'a' + 'A'
		}
	}
	return string(ref)
}
