package models

import (
	"strings"
	"time"
)

// Role distinguishes administrators from client-organization users.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

// Tenant is a client organization: the unit of data isolation.
// The Documents slice is a derived collection kept in sync with the
// remote documents table by the registry and the document store.
type Tenant struct {
	ID              string     `json:"id" db:"id"`
	CNPJ            string     `json:"cnpj" db:"cnpj"`
	Name            string     `json:"name" db:"name"`
	Password        string     `json:"password,omitempty" db:"password"`
	Email           *string    `json:"email" db:"email"` // nil = login disabled
	MaintenanceDate *time.Time `json:"maintenance_date" db:"maintenance_date"`
	IsBlocked       bool       `json:"is_blocked" db:"is_blocked"`
	UserRole        Role       `json:"user_role" db:"user_role"`
	UserEmail       *string    `json:"user_email" db:"user_email"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	Documents       []Document `json:"documents"`
}

// HasEmail reports whether the tenant has a non-empty login email.
func (t *Tenant) HasEmail() bool {
	return t.Email != nil && strings.TrimSpace(*t.Email) != ""
}

// EmailEquals compares the tenant email with the given address,
// case-insensitively. A tenant without an email never matches.
func (t *Tenant) EmailEquals(email string) bool {
	if !t.HasEmail() {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(*t.Email), strings.TrimSpace(email))
}

// Clone returns a deep copy, including the documents collection.
// Snapshots handed out by the registry must not alias its internal state.
func (t *Tenant) Clone() Tenant {
	out := *t
	if t.Email != nil {
		email := *t.Email
		out.Email = &email
	}
	if t.UserEmail != nil {
		userEmail := *t.UserEmail
		out.UserEmail = &userEmail
	}
	if t.MaintenanceDate != nil {
		date := *t.MaintenanceDate
		out.MaintenanceDate = &date
	}
	out.Documents = CloneDocuments(t.Documents)
	return out
}

// CloneTenants deep-copies a tenant list.
func CloneTenants(tenants []Tenant) []Tenant {
	if tenants == nil {
		return nil
	}
	out := make([]Tenant, len(tenants))
	for i := range tenants {
		out[i] = tenants[i].Clone()
	}
	return out
}
