package model

import "time"

// Token types.  Each type is signed with its own secret and has its own
// configured expiry.
const (
	TokenAccess        = "ACCESS"
	TokenRefresh       = "REFRESH"
	TokenVerifyEmail   = "EMAIL_VERIFICATION"
	TokenResetPassword = "PASSWORD_RESET"
)

// Token models a row in the `tokens` table.  The persisted record is the
// source of truth for revocation: a cryptographically valid signature is
// not enough if the matching row is invalidated or expired.
//
// Fields:
//  ID           – uuid of the token record, embedded in the signed token.
//  UserID       – owner of the token.
//  Type         – one of the token type constants above.
//  PairedID     – for REFRESH tokens, the id of the ACCESS token issued
//                 alongside it; empty otherwise.
//  ExpiresAt    – expiration timestamp.
//  Invalidated  – revocation flag; monotonic, never cleared once set.
//  LastUsedAt   – last time the token passed a record check (nullable).
//  IPAddress    – client IP at issuance.
//  UserAgent    – client user agent at issuance.
//  CreatedAt    – timestamp of creation.
type Token struct {
	ID          string
	UserID      uint64
	Type        string
	PairedID    string
	ExpiresAt   time.Time
	Invalidated bool
	LastUsedAt  *time.Time
	IPAddress   string
	UserAgent   string
	CreatedAt   time.Time
}

// Live reports whether the record can still authenticate at instant now.
func (t Token) Live(now time.Time) bool {
	return !t.Invalidated && now.Before(t.ExpiresAt)
}
