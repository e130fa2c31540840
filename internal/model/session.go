package model

import "time"

// Session models a row in the `sessions` table.  A user may hold at most a
// configured number of concurrent sessions; the oldest by LastActive are
// evicted when the cap is reached.
type Session struct {
	ID         string
	UserID     uint64
	IPAddress  string
	UserAgent  string
	LastActive time.Time
	CreatedAt  time.Time
}

// LoginAttempt models a row in the `login_attempts` table.  Failed attempts
// inside a rolling window drive the lockout policy; successful logins clear
// the user's history.
type LoginAttempt struct {
	ID        uint64
	UserID    uint64
	Success   bool
	IPAddress string
	CreatedAt time.Time
}
