package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	// CartSessionName is the cookie carrying the guest cart id.
	CartSessionName = "gift-store-cart"
	cartIDKey       = "cart_id"
)

type cartSessionKey struct{}

// NewCartCookieStore returns the signed cookie store used for cart sessions.
func NewCartCookieStore(key string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(key))
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	store.Options.Path = "/"
	store.Options.MaxAge = 60 * 60 * 24 * 30
	return store
}

// CartSession assigns every browser a cart id kept in a signed cookie. Carts
// belong to the browsing session, not to the user, so a guest cart survives
// signing in.
func CartSession(store sessions.Store, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := store.Get(r, CartSessionName)
			if err != nil {
				// Tampered or rotated-key cookies get a fresh cart.
				logger.Debug("Discarding unreadable cart session", zap.Error(err))
			}

			cartID, _ := session.Values[cartIDKey].(string)
			if cartID == "" {
				cartID = uuid.NewString()
				session.Values[cartIDKey] = cartID
				if err := session.Save(r, w); err != nil {
					logger.Error("Failed to save cart session", zap.Error(err))
				}
			}

			ctx := context.WithValue(r.Context(), cartSessionKey{}, cartID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CartSessionID returns the cart id resolved by CartSession.
func CartSessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(cartSessionKey{}).(string)
	return id, ok && id != ""
}
