package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gift-store/internal/domain"
	"gift-store/internal/middleware"
	"gift-store/internal/service"
)

// browser replays the cart cookie the way a real client would.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
	token   string
}

func newBrowser(t *testing.T, handler http.Handler) *browser {
	return &browser{t: t, handler: handler}
}

func (b *browser) do(method, target string, body interface{}) *httptest.ResponseRecorder {
	b.t.Helper()
	req := newJSONRequest(b.t, method, target, body)
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	if b.token != "" {
		withBearer(req, b.token)
	}

	w := httptest.NewRecorder()
	b.handler.ServeHTTP(w, req)
	if set := w.Result().Cookies(); len(set) > 0 {
		b.cookies = set
	}
	return w
}

func (b *browser) cart(w *httptest.ResponseRecorder) CartView {
	b.t.Helper()
	require.Equal(b.t, http.StatusOK, w.Code, w.Body.String())
	var view CartView
	require.NoError(b.t, json.NewDecoder(w.Body).Decode(&view))
	return view
}

func TestCart_GuestSessionGetsCookie(t *testing.T) {
	f := newAPIFixture(t)
	b := newBrowser(t, f.router)

	view := b.cart(b.do(http.MethodGet, "/api/cart", nil))
	assert.Empty(t, view.Items)
	require.Len(t, b.cookies, 1)
	assert.Equal(t, middleware.CartSessionName, b.cookies[0].Name)
	assert.True(t, b.cookies[0].HttpOnly)
}

func TestCart_AddMergesAndTotals(t *testing.T) {
	f := newAPIFixture(t)
	b := newBrowser(t, f.router)

	b.cart(b.do(http.MethodPost, "/api/cart/items", service.AddToCartInput{ProductID: "mug", Quantity: 2}))
	b.cart(b.do(http.MethodPost, "/api/cart/items", service.AddToCartInput{ProductID: "socks"}))
	view := b.cart(b.do(http.MethodPost, "/api/cart/items", service.AddToCartInput{ProductID: "mug", Quantity: 1}))

	require.Len(t, view.Items, 2)
	assert.Equal(t, "mug", view.Items[0].Product.ID)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.Equal(t, 4, view.TotalItems)
	assert.Equal(t, int64(3*1500+900), view.TotalPrice)
}

func TestCart_IsScopedToTheCookie(t *testing.T) {
	f := newAPIFixture(t)
	first := newBrowser(t, f.router)
	second := newBrowser(t, f.router)

	first.cart(first.do(http.MethodPost, "/api/cart/items", service.AddToCartInput{ProductID: "mug"}))

	assert.Empty(t, second.cart(second.do(http.MethodGet, "/api/cart", nil)).Items)
	assert.Len(t, first.cart(first.do(http.MethodGet, "/api/cart", nil)).Items, 1)
	assert.Equal(t, 2, f.carts.Len())
}

func TestCart_UpdateQuantityAndRemove(t *testing.T) {
	f := newAPIFixture(t)
	b := newBrowser(t, f.router)

	b.cart(b.do(http.MethodPost, "/api/cart/items", service.AddToCartInput{ProductID: "mug"}))
	b.cart(b.do(http.MethodPost, "/api/cart/items", service.AddToCartInput{ProductID: "candle"}))

	view := b.cart(b.do(http.MethodPatch, "/api/cart/items/mug", map[string]int{"quantity": 5}))
	assert.Equal(t, 6, view.TotalItems)

	view = b.cart(b.do(http.MethodPatch, "/api/cart/items/mug", map[string]int{"quantity": 0}))
	require.Len(t, view.Items, 1)
	assert.Equal(t, "candle", view.Items[0].Product.ID)

	view = b.cart(b.do(http.MethodDelete, "/api/cart/items/absent", nil))
	assert.Len(t, view.Items, 1)

	view = b.cart(b.do(http.MethodDelete, "/api/cart", nil))
	assert.Empty(t, view.Items)
	assert.Zero(t, view.TotalPrice)
}

func TestCart_UpdateQuantityRequiresValue(t *testing.T) {
	f := newAPIFixture(t)
	b := newBrowser(t, f.router)

	w := b.do(http.MethodPatch, "/api/cart/items/mug", map[string]string{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, validationFields(decodeError(t, w)), "quantity")
}

func TestCart_AddUnknownProductIsNotFound(t *testing.T) {
	f := newAPIFixture(t)
	b := newBrowser(t, f.router)

	w := b.do(http.MethodPost, "/api/cart/items", service.AddToCartInput{ProductID: "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// Feature: gift-store, Property: cart totals match the lines
func TestProperty_CartTotalsMatchLines(t *testing.T) {
	properties := gopter.NewProperties(nil)
	f := newAPIFixture(t)
	prices := map[string]int64{"mug": 1500, "socks": 900, "candle": 1200}

	properties.Property("total_items and total_price are sums over the lines", prop.ForAll(
		func(picks []int) bool {
			b := newBrowser(t, f.router)
			ids := []string{"mug", "socks", "candle"}

			var view CartView
			for _, p := range picks {
				view = b.cart(b.do(http.MethodPost, "/api/cart/items",
					service.AddToCartInput{ProductID: ids[p%len(ids)], Quantity: p%3 + 1}))
			}

			var items int
			var price int64
			for _, line := range view.Items {
				items += line.Quantity
				price += prices[line.Product.ID] * int64(line.Quantity)
			}
			return len(view.Items) <= len(ids) && view.TotalItems == items && view.TotalPrice == price
		},
		gen.SliceOfN(5, gen.IntRange(0, 8)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestCheckout_GuestIsRedirectedAndKeepsCart(t *testing.T) {
	f := newAPIFixture(t)
	b := newBrowser(t, f.router)
	b.cart(b.do(http.MethodPost, "/api/cart/items", service.AddToCartInput{ProductID: "mug"}))

	w := b.do(http.MethodPost, "/api/cart/checkout", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	detail := decodeError(t, w)
	assert.Equal(t, AuthRedirect, detail.Details["redirect"])

	assert.Len(t, b.cart(b.do(http.MethodGet, "/api/cart", nil)).Items, 1)
}

func TestCheckout_SignedInPlacesOrderAndClearsCart(t *testing.T) {
	f := newAPIFixture(t)
	b := newBrowser(t, f.router)
	b.cart(b.do(http.MethodPost, "/api/cart/items", service.AddToCartInput{ProductID: "mug", Quantity: 2}))

	// Signing in after filling the cart keeps the same cookie, and so the same cart.
	userID := uuid.New()
	b.token = signToken(t, userID, domain.RoleUser)

	w := b.do(http.MethodPost, "/api/cart/checkout", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order service.OrderView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&order))
	assert.Equal(t, userID, order.UserID)
	assert.Equal(t, int64(3000), order.Total)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.NotEmpty(t, order.Reference)

	assert.Empty(t, b.cart(b.do(http.MethodGet, "/api/cart", nil)).Items)
}

func TestCheckout_EmptyCartIsRejected(t *testing.T) {
	f := newAPIFixture(t)
	b := newBrowser(t, f.router)
	b.token = signToken(t, uuid.New(), domain.RoleUser)

	w := b.do(http.MethodPost, "/api/cart/checkout", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, validationFields(decodeError(t, w)), "items")
}
