package model

import "time"

// Role names stored in users.role and carried in the JWT "role" claim.
const (
	RoleAdmin     = "ADMIN"
	RoleManager   = "MANAGER"
	RoleChauffeur = "CHAUFFEUR"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleChauffeur:
		return true
	}
	return false
}

// PrivilegedRole reports whether r may act on behalf of the fleet office:
// pick vehicles explicitly, dispense fuel and manage assignments.
func PrivilegedRole(r string) bool {
	return r == RoleAdmin || r == RoleManager
}

// User represents an application user record as stored in the
// `users` table. Personnel (chauffeurs and operators) are users with the
// CHAUFFEUR role.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique email address.
//	FullName     – display name.
//	Phone        – optional phone number.
//	PasswordHash – bcrypt hashed password, never serialised.
//	Role         – ADMIN, MANAGER or CHAUFFEUR.
//	IsActive     – whether the account may log in.
type User struct {
	ID           uint64    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Phone        *string   `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
