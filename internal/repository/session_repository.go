package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/inventory-management/internal/model"
)

// SessionRepo provides access to the sessions table.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// InsertCapped records a new session, first evicting the user's
// least-recently-active sessions so at most max remain afterwards.  Count,
// eviction and insert run in one transaction with the user's rows locked,
// so two concurrent logins cannot both pass the count and overshoot the
// cap.  Eviction ordering is explicit on last_active ascending.
func (r *SessionRepo) InsertCapped(ctx context.Context, s model.Session, max int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE user_id=? FOR UPDATE", s.UserID).Scan(&n); err != nil {
		return err
	}
	if n > max-1 {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM sessions WHERE user_id=? ORDER BY last_active ASC LIMIT ?",
			s.UserID, n-(max-1)); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, ip_address, user_agent, last_active) VALUES (?,?,?,?,?)",
		s.ID, s.UserID, s.IPAddress, s.UserAgent, s.LastActive); err != nil {
		return err
	}
	return tx.Commit()
}

// Touch refreshes last_active on the user's sessions matching the client
// address and agent.  Sessions are device scoped; user id plus address
// plus agent is how a later request is matched back to the device that
// logged in.
func (r *SessionRepo) Touch(ctx context.Context, userID uint64, ip, userAgent string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET last_active=? WHERE user_id=? AND ip_address=? AND user_agent=?",
		at, userID, ip, userAgent)
	return err
}

// DeleteByUser drops all sessions of a user.  Used by logout-all-devices.
func (r *SessionRepo) DeleteByUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE user_id=?", userID)
	return err
}

// PurgeExpired removes inactive sessions and expired tokens in one
// transaction.  Running it twice in a row is harmless: the second sweep
// finds nothing to delete.
func (r *SessionRepo) PurgeExpired(ctx context.Context, sessionCutoff, now time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE last_active < ?", sessionCutoff); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM tokens WHERE expires_at < ?", now); err != nil {
		return err
	}
	return tx.Commit()
}
