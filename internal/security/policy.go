// Package security implements the account-lockout policy, the security and
// audit logger, and the background cleanup sweep.  The policy engine works
// against small store interfaces so the repositories stay swappable in
// tests.
package security

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/inventory-management/internal/config"
	"github.com/iliyamo/inventory-management/internal/model"
)

// ErrAccountLocked is returned by login checks while a lockout is active.
// Handlers translate it into HTTP 429.
var ErrAccountLocked = errors.New("account temporarily locked")

// AttemptStore persists login attempts.
type AttemptStore interface {
	Insert(ctx context.Context, userID uint64, success bool, ip string) error
	CountFailedSince(ctx context.Context, userID uint64, since time.Time) (int, error)
	DeleteForUser(ctx context.Context, userID uint64) error
	DeleteBefore(ctx context.Context, cutoff time.Time) error
}

// LockStore mutates the lock state on the user row.
type LockStore interface {
	SetLock(ctx context.Context, id uint64, until time.Time) error
	ClearLock(ctx context.Context, id uint64) error
}

// SessionStore persists sessions and runs the expiry purge.
type SessionStore interface {
	InsertCapped(ctx context.Context, s model.Session, max int) error
	DeleteByUser(ctx context.Context, userID uint64) error
	PurgeExpired(ctx context.Context, sessionCutoff, now time.Time) error
}

// RotationStore applies an atomic refresh-token rotation.
type RotationStore interface {
	Rotate(ctx context.Context, oldRefreshID, oldPairedID string, newAccess, newRefresh model.Token) error
}

// Policy is the security policy engine: failed-attempt tracking, lockout
// with lazy unlock, concurrent-session caps and token rotation.
type Policy struct {
	cfg      config.Config
	attempts AttemptStore
	locks    LockStore
	sessions SessionStore
	rotation RotationStore
	now      func() time.Time
}

func NewPolicy(cfg config.Config, attempts AttemptStore, locks LockStore, sessions SessionStore, rotation RotationStore) *Policy {
	return &Policy{
		cfg:      cfg,
		attempts: attempts,
		locks:    locks,
		sessions: sessions,
		rotation: rotation,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RecordFailedAttempt stores a failed login and, when the failure count
// inside the trailing window reaches the configured threshold, locks the
// account.  It returns true when this attempt triggered the lock.
func (p *Policy) RecordFailedAttempt(ctx context.Context, userID uint64, ip string) (bool, error) {
	if err := p.attempts.Insert(ctx, userID, false, ip); err != nil {
		return false, err
	}
	since := p.now().Add(-p.cfg.AttemptWindow)
	n, err := p.attempts.CountFailedSince(ctx, userID, since)
	if err != nil {
		return false, err
	}
	if n < p.cfg.MaxLoginAttempts {
		return false, nil
	}
	until := p.now().Add(p.cfg.LockoutDuration)
	if err := p.locks.SetLock(ctx, userID, until); err != nil {
		return false, err
	}
	return true, nil
}

// RecordSuccess stores a successful login and clears the user's failure
// history so stale failures cannot count toward a future window.
func (p *Policy) RecordSuccess(ctx context.Context, userID uint64, ip string) error {
	if err := p.attempts.DeleteForUser(ctx, userID); err != nil {
		return err
	}
	return p.attempts.Insert(ctx, userID, true, ip)
}

// IsLocked reports whether the user is currently locked out.  An elapsed
// lockout is cleared on the spot, so correctness never waits for the
// cleanup sweep.
func (p *Policy) IsLocked(ctx context.Context, u model.User) (bool, error) {
	if u.LockedUntil == nil {
		return false, nil
	}
	if p.now().Before(*u.LockedUntil) {
		return true, nil
	}
	if err := p.locks.ClearLock(ctx, u.ID); err != nil {
		return false, err
	}
	return false, nil
}

// ManageSessions inserts a new session, evicting the user's oldest
// sessions in the same transaction so the configured cap holds even under
// concurrent logins.
func (p *Policy) ManageSessions(ctx context.Context, s model.Session) error {
	if s.LastActive.IsZero() {
		s.LastActive = p.now()
	}
	return p.sessions.InsertCapped(ctx, s, p.cfg.MaxSessions)
}

// RotateRefreshToken atomically invalidates the old refresh token (and its
// paired access token) and creates the new pair.
func (p *Policy) RotateRefreshToken(ctx context.Context, old model.Token, newAccess, newRefresh model.Token) error {
	return p.rotation.Rotate(ctx, old.ID, old.PairedID, newAccess, newRefresh)
}

// CleanupExpired drops sessions inactive past the timeout and tokens past
// expiry, plus stale attempt rows.  Safe to run back to back.
func (p *Policy) CleanupExpired(ctx context.Context) error {
	now := p.now()
	if err := p.sessions.PurgeExpired(ctx, now.Add(-p.cfg.SessionTimeout), now); err != nil {
		return err
	}
	return p.attempts.DeleteBefore(ctx, now.Add(-p.cfg.AttemptWindow))
}
