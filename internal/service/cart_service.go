package service

import (
	"context"
	"fmt"
	"strings"

	"gift-store/internal/cart"
	"gift-store/internal/repository"
)

const maxCustomMessageLength = 500

// AddToCartInput is one add-to-cart action
type AddToCartInput struct {
	ProductID     string            `json:"product_id" validate:"required"`
	Quantity      int               `json:"quantity" validate:"omitempty,gte=1,lte=99"`
	Variants      map[string]string `json:"selected_variants"`
	CustomMessage string            `json:"custom_message" validate:"max=500"`
}

// CartService resolves products from the catalog before they enter a cart
type CartService interface {
	AddItem(ctx context.Context, store *cart.Store, input AddToCartInput) error
}

type cartService struct {
	productRepo repository.ProductRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(productRepo repository.ProductRepository) CartService {
	return &cartService{productRepo: productRepo}
}

// AddItem copies the current product into the cart. Quantity defaults to 1;
// selected variants must name options the product offers.
func (s *cartService) AddItem(ctx context.Context, store *cart.Store, input AddToCartInput) error {
	product, err := s.productRepo.FindByID(ctx, input.ProductID)
	if err != nil {
		return err
	}

	verr := &InputError{}
	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		verr.add("quantity", "Value must be greater than 0")
	}

	for variantType, option := range input.Variants {
		group, ok := product.VariantGroup(variantType)
		if !ok {
			verr.add("selected_variants."+variantType, "Unknown variant")
			continue
		}
		if !containsOption(group.Options, option) {
			verr.add("selected_variants."+variantType, fmt.Sprintf("Option %q is not available", option))
		}
	}

	message := strings.TrimSpace(input.CustomMessage)
	if len(message) > maxCustomMessageLength {
		verr.add("custom_message", "Value is too long")
	}

	if err := verr.orNil(); err != nil {
		return err
	}

	store.AddItem(*product, quantity, input.Variants, message)
	return nil
}

func containsOption(options []string, option string) bool {
	for _, o := range options {
		if o == option {
			return true
		}
	}
	return false
}
