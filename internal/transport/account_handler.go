package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gift-store/internal/middleware"
	"gift-store/internal/service"
)

// ToggleResponse reports wishlist membership after a toggle
type ToggleResponse struct {
	ProductID  string `json:"product_id"`
	Wishlisted bool   `json:"wishlisted"`
}

// AccountHandler serves the signed-in shopper's wishlist, orders and profile
type AccountHandler struct {
	wishlistService service.WishlistService
	orderService    service.OrderService
	profileService  service.ProfileService
	logger          *zap.Logger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(
	wishlistService service.WishlistService,
	orderService service.OrderService,
	profileService service.ProfileService,
	logger *zap.Logger,
) *AccountHandler {
	return &AccountHandler{
		wishlistService: wishlistService,
		orderService:    orderService,
		profileService:  profileService,
		logger:          logger,
	}
}

// RegisterRoutes registers the account routes behind authMiddleware. The
// wishlist and order history are additionally gated by capability.
func (h *AccountHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler, wishlistGate, ordersGate func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Route("/api/wishlist", func(r chi.Router) {
			r.Use(wishlistGate)
			r.Get("/", h.GetWishlist)
			r.Post("/{productID}/toggle", h.ToggleWishlist)
		})

		r.With(ordersGate).Get("/api/orders", h.ListOrders)

		r.Get("/api/profile", h.GetProfile)
		r.Put("/api/profile", h.SaveProfile)
	})
}

func (h *AccountHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.wishlistService.Get(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to load wishlist")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// ToggleWishlist flips one product. A failed remote write is rolled back and
// reported as 502 so the client can retry.
func (h *AccountHandler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	productID := chi.URLParam(r, "productID")
	on, err := h.wishlistService.Toggle(r.Context(), userID, productID)
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to update wishlist")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, ToggleResponse{ProductID: productID, Wishlisted: on})
}

// ListOrders returns the order history, newest first
func (h *AccountHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	orders, err := h.orderService.ListForUser(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []service.OrderView{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	profile, err := h.profileService.Get(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to get profile")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, profile)
}

func (h *AccountHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req service.ProfileInput
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	profile, err := h.profileService.Save(r.Context(), userID, req)
	if err != nil {
		respondWithServiceError(w, err, h.logger, "failed to save profile")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, profile)
}
