package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/inventory-management/internal/model"
)

const userColumns = "id,email,password_hash,name,phone,role,is_active,is_verified,locked_until,last_login,created_at,updated_at,deleted_at"

// UserRepo provides access to the users table.  All lookups exclude
// soft-deleted rows.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u           model.User
		lockedUntil sql.NullTime
		lastLogin   sql.NullTime
		deletedAt   sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Role,
		&u.IsActive, &u.IsVerified, &lockedUntil, &lastLogin, &u.CreatedAt, &u.UpdatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	if lockedUntil.Valid {
		u.LockedUntil = &lockedUntil.Time
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	if deletedAt.Valid {
		u.DeletedAt = &deletedAt.Time
	}
	return u, nil
}

// Create inserts a user and returns its ID.  A duplicate email maps to
// ErrEmailExists via the MySQL duplicate-key code.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash, name, phone, role string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, name, phone, role, is_active, is_verified) VALUES (?,?,?,?,?,1,0)",
		email, passwordHash, name, phone, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a live user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? AND deleted_at IS NULL LIMIT 1", email))
}

// GetByID fetches a live user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? AND deleted_at IS NULL LIMIT 1", id))
}

// ListActive returns ids of active, verified users, optionally filtered to
// a role set.  Used by broadcast fan-out.
func (r *UserRepo) ListActive(ctx context.Context, roles ...string) ([]uint64, error) {
	query := "SELECT id FROM users WHERE is_active=1 AND is_verified=1 AND deleted_at IS NULL"
	args := make([]interface{}, 0, len(roles))
	if len(roles) > 0 {
		query += " AND role IN (?" + strings.Repeat(",?", len(roles)-1) + ")"
		for _, role := range roles {
			args = append(args, role)
		}
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetVerified marks the user's email as verified.
func (r *UserRepo) SetVerified(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET is_verified=1 WHERE id=?", id)
	return err
}

// UpdatePassword stores a new password hash.  Used by the authenticated
// change-password flow; the reset flow goes through ResetPassword below.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", passwordHash, id)
	return err
}

// UpdateLastLogin stamps the last successful login time.
func (r *UserRepo) UpdateLastLogin(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET last_login=? WHERE id=?", at, id)
	return err
}

// SetLock sets the lockout expiry on the user row.
func (r *UserRepo) SetLock(ctx context.Context, id uint64, until time.Time) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET locked_until=? WHERE id=?", until, id)
	return err
}

// ClearLock removes the lockout expiry.
func (r *UserRepo) ClearLock(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET locked_until=NULL WHERE id=?", id)
	return err
}

// ResetPassword applies a password reset as one transaction: the new hash
// is stored, the reset token is invalidated, and every live ACCESS/REFRESH
// token of the user is invalidated so all sessions must log in again.  No
// intermediate state is observable outside the transaction.
func (r *UserRepo) ResetPassword(ctx context.Context, id uint64, passwordHash, resetTokenID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", passwordHash, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE tokens SET invalidated=1 WHERE id=?", resetTokenID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE tokens SET invalidated=1 WHERE user_id=? AND type IN (?,?) AND invalidated=0",
		id, model.TokenAccess, model.TokenRefresh); err != nil {
		return err
	}
	return tx.Commit()
}
