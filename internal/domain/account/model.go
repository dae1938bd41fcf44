package account

import (
	"time"

	"github.com/google/uuid"
)

// Role classifies an account's authority level.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDoctor Role = "doctor"
	RoleGuest  Role = "guest"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleGuest:
		return true
	}
	return false
}

// bootstrapAdminSeats is the number of initial registrations promoted
// straight to admin. Every later account starts as guest; doctor is only
// reachable through a role edit.
const bootstrapAdminSeats = 2

// Account maps to the account table.
type Account struct {
	ID                     uuid.UUID  `db:"id" json:"id"`
	Username               string     `db:"username" json:"username"`
	Email                  string     `db:"email" json:"email"`
	PasswordHash           string     `db:"password_hash" json:"-"`
	Role                   Role       `db:"role" json:"role"`
	IsVerified             bool       `db:"is_verified" json:"is_verified"`
	VerificationCode       *string    `db:"verification_code" json:"-"`
	VerificationExpiresAt  *time.Time `db:"verification_expires_at" json:"-"`
	PasswordResetCode      *string    `db:"password_reset_code" json:"-"`
	PasswordResetExpiresAt *time.Time `db:"password_reset_expires_at" json:"-"`
	PinHash                *string    `db:"pin_hash" json:"-"`
	PinResetCode           *string    `db:"pin_reset_code" json:"-"`
	PinResetExpiresAt      *time.Time `db:"pin_reset_expires_at" json:"-"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
}

// HasPin reports whether a destructive-action PIN is configured on this
// account. Only admin accounts ever carry one.
func (a *Account) HasPin() bool {
	return a.PinHash != nil && *a.PinHash != ""
}
