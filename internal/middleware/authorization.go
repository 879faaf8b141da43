package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"gift-store/internal/auth"
)

// RequireCapability lets the request through only when the session's role
// holds capability. Anonymous sessions get 401, others 403.
func RequireCapability(policy *auth.Policy, capability auth.Capability, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := auth.SessionFrom(r.Context())
			if !session.Authenticated() {
				logger.Warn("Session not found in context")
				RespondWithError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			if !policy.Allows(session, capability) {
				logger.Warn("Role lacks capability",
					zap.String("role", session.User.Role),
					zap.String("capability", string(capability)),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin ensures the session belongs to an administrator
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := auth.SessionFrom(r.Context())
			if !session.IsAdmin {
				role := ""
				if session.User != nil {
					role = session.User.Role
				}
				logger.Warn("Non-admin user attempted to access admin endpoint",
					zap.String("role", role),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
