package middleware

import (
	"net/http"

	"storefront/internal/domain"
)

// RequireRole allows the request through only when the authenticated
// principal holds one of the given roles. Must run after AuthMiddleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := GetUserRole(r.Context())
			if !ok {
				RespondWithError(w, http.StatusUnauthorized, "missing authentication")
				return
			}
			if !domain.IsAuthorized(role, roles...) {
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin restricts the route to admin users.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireRole(domain.RoleAdmin)(next)
}
