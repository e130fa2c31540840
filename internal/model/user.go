package model

import "time"

// Roles stored in users.role.  ADMIN manages everything, MANAGER runs a
// warehouse, STAFF handles day-to-day stock operations.
const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleStaff   = "STAFF"
)

// User mirrors the `users` table.  Accounts are never hard-deleted; a
// non-nil DeletedAt soft-deletes the row and excludes it from lookups.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address, stored lower-cased.
//  PasswordHash – bcrypt hashed password.
//  Name         – display name.
//  Phone        – optional phone number.
//  Role         – one of ADMIN, MANAGER, STAFF.
//  IsActive     – whether the account may log in at all.
//  IsVerified   – whether the email address has been verified.
//  LockedUntil  – lockout expiry; nil when the account is not locked.
//  LastLogin    – timestamp of the last successful login, nil before the first.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
//  DeletedAt    – soft-delete marker, nil for live accounts.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	Name         string
	Phone        string
	Role         string
	IsActive     bool
	IsVerified   bool
	LockedUntil  *time.Time
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleManager || r == RoleStaff
}
