package models

import "github.com/golang-jwt/jwt/v5"

// Identity is the resolved view of an authenticated session: a role plus
// an optional tenant link. TenantID nil means "no tenant, access to
// nothing tenant-scoped".
type Identity struct {
	UserID   string  `json:"user_id"`
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	CNPJ     string  `json:"cnpj,omitempty"`
	Role     Role    `json:"role"`
	TenantID *string `json:"tenant_id"`
}

// IsAdmin reports whether the identity carries administrator rights.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// SessionClaims is the JWT claims structure issued by the identity
// provider (Supabase Auth). UserMetadata carries the tenant link and
// profile fields written at provisioning time.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email        string                 `json:"email"`
	Role         string                 `json:"role"` // "authenticated" or "anon"
	UserMetadata map[string]interface{} `json:"user_metadata"`
	SessionID    string                 `json:"session_id"`
	IsAnonymous  bool                   `json:"is_anonymous"`
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *SessionClaims) GetUserID() string {
	return c.Subject
}

// MetadataString returns a string field from the user metadata, or ""
// when absent or not a string.
func (c *SessionClaims) MetadataString(key string) string {
	if c.UserMetadata == nil {
		return ""
	}
	s, _ := c.UserMetadata[key].(string)
	return s
}

// Profile is the denormalized projection of an identity-provider account
// kept in the profile-links table for fast lookups. Keyed by email.
type Profile struct {
	Email    string  `json:"email" db:"email"`
	TenantID *string `json:"tenant_id" db:"tenant_id"`
	Role     Role    `json:"role" db:"role"`
	Name     string  `json:"name" db:"name"`
	CNPJ     string  `json:"cnpj" db:"cnpj"`
}
