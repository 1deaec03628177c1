package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"extportal/internal/auth"
	"extportal/internal/domain/services"
	"extportal/internal/httputil"
)

// Auth validates the bearer token, resolves the session into an
// identity and stores it on the request context. Requests from clients
// whose tenant is blocked are rejected here, before any handler runs.
func Auth(verifier auth.JWTVerifier, resolver services.IdentityResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "malformed authorization header")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ident := resolver.Resolve(r.Context(), claims)
			if resolver.IsClientBlocked(r.Context(), ident) {
				logger.Warn("blocked tenant request rejected", "user_id", ident.UserID, "tenant_id", *ident.TenantID)
				httputil.RespondError(w, http.StatusForbidden, "this account's organization is blocked")
				return
			}

			next.ServeHTTP(w, httputil.WithIdentity(r, ident))
		})
	}
}

// RequireAdmin rejects requests whose resolved identity is not an
// administrator. Must run after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := httputil.GetIdentity(r)
		if !ident.IsAdmin() {
			httputil.RespondError(w, http.StatusForbidden, "administrator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
