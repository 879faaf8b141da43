package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gift-store/internal/auth"
	"gift-store/internal/cart"
	"gift-store/internal/domain"
	"gift-store/internal/repository"
)

var (
	ErrAuthRequired      = errors.New("sign in required")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// OrderView is an order with the fields the order history page renders
type OrderView struct {
	domain.Order
	Reference   string                `json:"reference"`
	StatusLabel string                `json:"status_label"`
	Progress    []domain.ProgressStep `json:"progress"`
}

// NewOrderView decorates o for display
func NewOrderView(o domain.Order) OrderView {
	return OrderView{
		Order:       o,
		Reference:   o.Reference(),
		StatusLabel: o.Status.Label(),
		Progress:    o.Status.Progress(),
	}
}

// OrderService places and tracks orders
type OrderService interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]OrderView, error)
	Checkout(ctx context.Context, session auth.Session, store *cart.Store) (*OrderView, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*OrderView, error)
}

type orderService struct {
	orderRepo repository.OrderRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(orderRepo repository.OrderRepository, logger *zap.Logger) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// ListForUser returns the user's orders, newest first
func (s *orderService) ListForUser(ctx context.Context, userID uuid.UUID) ([]OrderView, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	views := make([]OrderView, len(orders))
	for i, o := range orders {
		views[i] = NewOrderView(o)
	}
	return views, nil
}

// Checkout records a pending order from the cart and clears it. Anonymous
// sessions get ErrAuthRequired and the cart is left untouched. No payment
// is taken.
func (s *orderService) Checkout(ctx context.Context, session auth.Session, store *cart.Store) (*OrderView, error) {
	if !session.Authenticated() {
		return nil, ErrAuthRequired
	}

	snap := store.Snapshot()
	if len(snap.Lines) == 0 {
		return nil, &InputError{Fields: []FieldError{{Field: "items", Message: "Cart is empty"}}}
	}

	items := make([]domain.OrderItem, len(snap.Lines))
	for i, line := range snap.Lines {
		items[i] = domain.OrderItem{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			Price:     line.Product.Price,
			Image:     line.Product.ImageURL,
		}
	}

	now := s.now()
	order := domain.Order{
		ID:        uuid.New(),
		UserID:    session.User.UserID,
		Status:    domain.OrderStatusPending,
		Total:     snap.TotalPrice,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orderRepo.Create(ctx, &order); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	if !store.ClearIfUnchanged(snap.Version) {
		// Only the ordered quantities leave the cart; later additions stay.
		for _, item := range items {
			if line, ok := store.Line(item.ProductID); ok {
				store.UpdateQuantity(item.ProductID, line.Quantity-item.Quantity)
			}
		}
		s.logger.Info("Cart changed during checkout, kept newer lines",
			zap.String("order_id", order.ID.String()),
		)
	}

	view := NewOrderView(order)
	return &view, nil
}

// UpdateStatus moves an order along the status steps or cancels it
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*OrderView, error) {
	if !status.Valid() {
		return nil, &InputError{Fields: []FieldError{{Field: "status", Message: "Unknown order status"}}}
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, status)
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	order.Status = status
	order.UpdatedAt = s.now()
	view := NewOrderView(*order)
	return &view, nil
}
