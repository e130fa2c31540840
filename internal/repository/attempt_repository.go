package repository

import (
	"context"
	"database/sql"
	"time"
)

// AttemptRepo records login attempts.  Failed attempts inside a rolling
// window feed the lockout policy; a success wipes the user's history so
// stale failures never count toward a future window.
type AttemptRepo struct{ DB *sql.DB }

func NewAttemptRepo(db *sql.DB) *AttemptRepo { return &AttemptRepo{DB: db} }

// Insert records one attempt.
func (r *AttemptRepo) Insert(ctx context.Context, userID uint64, success bool, ip string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO login_attempts (user_id, success, ip_address) VALUES (?,?,?)",
		userID, success, ip)
	return err
}

// CountFailedSince counts the user's failed attempts at or after since.
func (r *AttemptRepo) CountFailedSince(ctx context.Context, userID uint64, since time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM login_attempts WHERE user_id=? AND success=0 AND created_at >= ?",
		userID, since).Scan(&n)
	return n, err
}

// DeleteForUser clears the user's attempt history.
func (r *AttemptRepo) DeleteForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM login_attempts WHERE user_id=?", userID)
	return err
}

// DeleteBefore drops attempts older than the cutoff.  Housekeeping only;
// lockout correctness never depends on it.
func (r *AttemptRepo) DeleteBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM login_attempts WHERE created_at < ?", cutoff)
	return err
}
