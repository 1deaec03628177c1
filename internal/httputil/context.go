package httputil

import (
	"context"
	"net/http"

	"extportal/internal/domain/models"
)

// Context key type to avoid collisions
type contextKey string

const identityKey contextKey = "identity"

// WithIdentity adds the resolved identity to the request context
func WithIdentity(r *http.Request, ident *models.Identity) *http.Request {
	ctx := context.WithValue(r.Context(), identityKey, ident)
	return r.WithContext(ctx)
}

// GetIdentity retrieves the resolved identity from context, nil if absent
func GetIdentity(r *http.Request) *models.Identity {
	ident, _ := r.Context().Value(identityKey).(*models.Identity)
	return ident
}
