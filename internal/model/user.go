package model

import "time"

// Role names stored in users.role.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents an application user record as stored in the
// `users` table. The json tags are omitted here because these structs
// are used by the repository layer; handlers define their own response
// types. Users are never hard-deleted.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hashed password.
//	DisplayName  – optional name shown in the UI and ticket email.
//	Role         – USER or ADMIN.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	DisplayName  *string   // users.display_name (nullable)
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// RefreshToken models an entry in the `refresh_tokens` table. The plain
// token is never stored, only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
