package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"gift-store/internal/domain"
	"gift-store/internal/repository"
	"gift-store/internal/wishlist"
)

// WishlistView is the wishlist page payload
type WishlistView struct {
	ProductIDs []string         `json:"product_ids"`
	Products   []domain.Product `json:"products"`
}

// WishlistService serves the per-user wishlist stores
type WishlistService interface {
	Get(ctx context.Context, userID uuid.UUID) (*WishlistView, error)
	Toggle(ctx context.Context, userID uuid.UUID, productID string) (bool, error)
}

type wishlistService struct {
	registry    *wishlist.Registry
	productRepo repository.ProductRepository
}

// NewWishlistService creates a new instance of WishlistService
func NewWishlistService(registry *wishlist.Registry, productRepo repository.ProductRepository) WishlistService {
	return &wishlistService{registry: registry, productRepo: productRepo}
}

// Get loads the wishlist once per session and resolves its products.
// Products deleted from the catalog are skipped.
func (s *wishlistService) Get(ctx context.Context, userID uuid.UUID) (*WishlistView, error) {
	store := s.registry.For(userID)
	if err := store.EnsureLoaded(ctx, userID); err != nil {
		return nil, err
	}

	ids := store.Items()
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	view := &WishlistView{ProductIDs: ids, Products: []domain.Product{}}
	for _, p := range products {
		if wanted[p.ID] {
			view.Products = append(view.Products, p)
		}
	}
	return view, nil
}

// Toggle flips one product. The store is loaded first so the flip is made
// against the persisted membership.
func (s *wishlistService) Toggle(ctx context.Context, userID uuid.UUID, productID string) (bool, error) {
	store := s.registry.For(userID)
	if err := store.EnsureLoaded(ctx, userID); err != nil {
		return false, err
	}
	return store.Toggle(ctx, userID, productID)
}
