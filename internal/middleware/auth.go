package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gift-store/internal/auth"
)

var (
	errMissingHeader = errors.New("missing authorization header")
	errHeaderFormat  = errors.New("invalid authorization header format")
	errTokenExpired  = errors.New("token expired")
	errInvalidToken  = errors.New("invalid token")
	errInvalidClaims = errors.New("invalid token claims")
)

// AuthMiddleware validates the bearer token and stores the resolved session
// in the request context. Requests without a valid token get 401.
func AuthMiddleware(jwtSecret string, policy *auth.Policy, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := identityFromRequest(r, jwtSecret)
			if err != nil {
				logger.Debug("Authentication failed", zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, err.Error())
				return
			}

			logger.Debug("User authenticated",
				zap.String("user_id", identity.UserID.String()),
				zap.String("role", identity.Role),
			)

			ctx := auth.WithSession(r.Context(), auth.NewSession(identity, policy))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth resolves the session when a valid bearer token is present and
// falls back to an anonymous session otherwise.
func OptionalAuth(jwtSecret string, policy *auth.Policy, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := auth.Anonymous()

			identity, err := identityFromRequest(r, jwtSecret)
			switch {
			case err == nil:
				session = auth.NewSession(identity, policy)
			case !errors.Is(err, errMissingHeader):
				logger.Debug("Ignoring unusable token", zap.Error(err))
			}

			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
		})
	}
}

// GetUserID extracts the authenticated user id from the request context
func GetUserID(r *http.Request) (uuid.UUID, bool) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	return identity.UserID, true
}

func identityFromRequest(r *http.Request, jwtSecret string) (auth.Identity, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return auth.Identity{}, errMissingHeader
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return auth.Identity{}, errHeaderFormat
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return auth.Identity{}, errTokenExpired
		}
		return auth.Identity{}, errInvalidToken
	}
	if !token.Valid {
		return auth.Identity{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return auth.Identity{}, errInvalidClaims
	}

	rawID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return auth.Identity{}, errInvalidClaims
	}

	role, ok := claims["role"].(string)
	if !ok {
		return auth.Identity{}, errInvalidClaims
	}
	email, _ := claims["email"].(string)

	return auth.Identity{UserID: userID, Email: email, Role: role}, nil
}
