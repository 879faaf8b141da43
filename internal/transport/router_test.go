package transport

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gift-store/internal/auth"
	"gift-store/internal/cart"
	"gift-store/internal/domain"
	"gift-store/internal/middleware"
	"gift-store/internal/storage"
)

// apiFixture is the full route table over in-memory services.
type apiFixture struct {
	router   http.Handler
	users    *fakeUserService
	catalog  *fakeCatalogService
	orders   *fakeOrderService
	wishlist *fakeWishlistService
	profiles *fakeProfileService
	media    *fakeMediaService
	carts    *cart.Registry
}

func testProducts() []domain.Product {
	return []domain.Product{
		{ID: "mug", Name: "Birthday Mug", Price: 1500, Category: "home", Occasion: []string{"birthday"}, Recipient: []string{"her"}},
		{ID: "socks", Name: "Holiday Socks", Price: 900, Category: "apparel", Occasion: []string{"christmas"}, Recipient: []string{"him"}},
		{ID: "candle", Name: "Birthday Candle", Price: 1200, Category: "home", Occasion: []string{"birthday"}, Recipient: []string{"her", "him"}},
	}
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := zap.NewNop()
	policy := auth.DefaultPolicy()

	products := testProducts()
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	f := &apiFixture{
		users:    newFakeUserService(),
		catalog:  &fakeCatalogService{products: products, categories: []domain.Category{{ID: "home", Name: "Home"}}},
		orders:   newFakeOrderService(),
		wishlist: newFakeWishlistService(),
		profiles: &fakeProfileService{},
		media:    &fakeMediaService{store: storage.NewMemoryStorage("http://localhost:8080")},
		carts:    cart.NewRegistry(nil, logger),
	}

	authMiddleware := middleware.AuthMiddleware(testSecret, policy, logger)
	optionalAuth := middleware.OptionalAuth(testSecret, policy, logger)
	cartSession := middleware.CartSession(middleware.NewCartCookieStore("test-cart-key", false), logger)
	gate := func(c auth.Capability) func(http.Handler) http.Handler {
		return middleware.RequireCapability(policy, c, logger)
	}

	r := chi.NewRouter()
	NewUserHandler(f.users, policy, logger).RegisterRoutes(r, authMiddleware)
	NewCatalogHandler(f.catalog, logger).RegisterRoutes(r)
	NewCartHandler(f.carts, &fakeCartService{products: byID}, f.orders, logger).RegisterRoutes(r, cartSession, optionalAuth)
	NewAccountHandler(f.wishlist, f.orders, f.profiles, logger).
		RegisterRoutes(r, authMiddleware, gate(auth.CapUseWishlist), gate(auth.CapReadOrders))
	NewAdminHandler(f.catalog, f.media, f.orders, 1<<20, logger).
		RegisterRoutes(r, authMiddleware, AdminGates{
			Catalog: middleware.RequireAdmin(logger),
			Orders:  gate(auth.CapManageOrders),
			Media:   gate(auth.CapUploadMedia),
		})

	f.router = r
	return f
}
