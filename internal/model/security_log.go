package model

import "time"

// Severity levels for security log rows.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
	SeverityAlert    = "ALERT"
)

// Security event names emitted by the auth flows.  Handlers never invent
// ad-hoc names; new events get a constant here.
const (
	EventLoginSuccess       = "LOGIN_SUCCESS"
	EventLoginFailed        = "LOGIN_FAILED"
	EventAccountLocked      = "ACCOUNT_LOCKED"
	EventTokenRefreshed     = "TOKEN_REFRESHED"
	EventTokenReuse         = "TOKEN_REUSE"
	EventLogout             = "LOGOUT"
	EventPasswordResetReq   = "PASSWORD_RESET_REQUESTED"
	EventPasswordReset      = "PASSWORD_RESET"
	EventPasswordChanged    = "PASSWORD_CHANGED"
	EventEmailVerified      = "EMAIL_VERIFIED"
	EventRegistered         = "USER_REGISTERED"
	EventSuspiciousActivity = "SUSPICIOUS_ACTIVITY"
)

// SecurityLog is an append-only record of a security-relevant event.  UserID
// is zero when the event could not be tied to an account (e.g. a failed
// login against an unknown email).  Details holds a JSON blob.
type SecurityLog struct {
	ID        uint64
	UserID    uint64
	Event     string
	Severity  string
	Details   string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// AuditLog is an append-only record of a state change performed by a known
// user: action is a short verb ("create", "update", "invalidate"), Entity
// names the affected table or flow.
type AuditLog struct {
	ID        uint64
	UserID    uint64
	Action    string
	Entity    string
	Details   string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}
