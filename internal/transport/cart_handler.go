package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gift-store/internal/auth"
	"gift-store/internal/cart"
	"gift-store/internal/middleware"
	"gift-store/internal/service"
)

// UpdateQuantityRequest replaces a line's quantity; 0 removes the line
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=99"`
}

// CartView is the cart payload
type CartView struct {
	Items      []cart.Line `json:"items"`
	TotalItems int         `json:"total_items"`
	TotalPrice int64       `json:"total_price"`
}

func newCartView(store *cart.Store) CartView {
	snap := store.Snapshot()
	items := snap.Lines
	if items == nil {
		items = []cart.Line{}
	}
	return CartView{Items: items, TotalItems: snap.TotalItems, TotalPrice: snap.TotalPrice}
}

// CartHandler serves the session cart and checkout
type CartHandler struct {
	registry     *cart.Registry
	cartService  service.CartService
	orderService service.OrderService
	logger       *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(registry *cart.Registry, cartService service.CartService, orderService service.OrderService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		registry:     registry,
		cartService:  cartService,
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers the cart routes. cartSession must run first so
// every request has a cart id; optionalAuth resolves the shopper for checkout.
func (h *CartHandler) RegisterRoutes(r chi.Router, cartSession, optionalAuth func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(cartSession)
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{productID}", h.UpdateQuantity)
		r.Delete("/items/{productID}", h.RemoveItem)
		r.With(optionalAuth).Post("/checkout", h.Checkout)
	})
}

func (h *CartHandler) store(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	cartID, ok := middleware.CartSessionID(r.Context())
	if !ok {
		h.logger.Error("Cart session not found in context")
		middleware.RespondWithError(w, http.StatusInternalServerError, "cart session unavailable")
		return nil, false
	}
	return h.registry.Get(r.Context(), cartID), true
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCartView(store))
}

// AddItem adds a product, merging with an existing line for the same product
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var req service.AddToCartInput
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	if err := h.cartService.AddItem(r.Context(), store, req); err != nil {
		respondWithServiceError(w, err, h.logger, "failed to add item")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCartView(store))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	store.UpdateQuantity(chi.URLParam(r, "productID"), *req.Quantity)
	middleware.RespondWithJSON(w, http.StatusOK, newCartView(store))
}

// RemoveItem deletes a line; removing an absent product is not an error
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	store.RemoveItem(chi.URLParam(r, "productID"))
	middleware.RespondWithJSON(w, http.StatusOK, newCartView(store))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	store.Clear()
	middleware.RespondWithJSON(w, http.StatusOK, newCartView(store))
}

// Checkout places a pending order. Guests get 401 with a redirect to the
// sign-in page and keep their cart.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.Checkout(r.Context(), auth.SessionFrom(r.Context()), store)
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to place order")
		return
	}

	h.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", order.UserID.String()),
		zap.Int64("total", order.Total),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}
