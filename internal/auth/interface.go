package auth

import "extportal/internal/domain/models"

// JWTVerifier defines the interface for JWT token verification.
// This abstraction allows for different JWT verification implementations
// while keeping the middleware agnostic to the verification details.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	// Returns an error if the token is invalid, expired, or has an invalid signature.
	VerifyToken(tokenString string) (*models.SessionClaims, error)

	// Close releases any resources held by the verifier (e.g., HTTP connections for JWKS).
	// Should be called when the verifier is no longer needed.
	Close() error
}

// MetadataPatch carries a partial update of the per-account metadata.
// Nil fields are left untouched.
type MetadataPatch struct {
	Name     *string `json:"name,omitempty"`
	CNPJ     *string `json:"cnpj,omitempty"`
	Role     *string `json:"role,omitempty"`
	TenantID *string `json:"clientId,omitempty"`
	Disabled *bool   `json:"disabled,omitempty"`
}

// Session is the result of a successful password sign-in.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	UserID       string
	Email        string
}

// IdentityProvider is the credential backend for tenant accounts.
// SignUp returns an error wrapping domain.ErrConflict when an account
// with the same email already exists, so callers can fall back to
// updating the existing account instead.
type IdentityProvider interface {
	SignIn(email, password string) (*Session, error)
	SignUp(email, password string, meta MetadataPatch) (userID string, err error)
	UpdatePassword(email, newPassword string) error
	UpdateMetadata(email string, meta MetadataPatch) error
	RequestPasswordReset(email, redirectTo string) error
}
