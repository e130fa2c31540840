package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/inventory-management/internal/model"
)

// TokenRepo persists token records.  A record's invalidated flag is
// monotonic: once set it is never cleared, so revocation survives any
// signature check.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Create inserts a token record.
func (r *TokenRepo) Create(ctx context.Context, t model.Token) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO tokens (id, user_id, type, paired_id, expires_at, invalidated, ip_address, user_agent) VALUES (?,?,?,?,?,0,?,?)",
		t.ID, t.UserID, t.Type, t.PairedID, t.ExpiresAt, t.IPAddress, t.UserAgent)
	return err
}

// GetByID fetches a token record by its uuid.
func (r *TokenRepo) GetByID(ctx context.Context, id string) (model.Token, error) {
	var (
		t        model.Token
		lastUsed sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,type,paired_id,expires_at,invalidated,last_used_at,ip_address,user_agent,created_at FROM tokens WHERE id=? LIMIT 1",
		id).Scan(&t.ID, &t.UserID, &t.Type, &t.PairedID, &t.ExpiresAt, &t.Invalidated,
		&lastUsed, &t.IPAddress, &t.UserAgent, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if lastUsed.Valid {
		t.LastUsedAt = &lastUsed.Time
	}
	return t, nil
}

// Touch stamps the record's last-used time.
func (r *TokenRepo) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE tokens SET last_used_at=? WHERE id=?", at, id)
	return err
}

// Invalidate marks a single record unusable.
func (r *TokenRepo) Invalidate(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE tokens SET invalidated=1 WHERE id=?", id)
	return err
}

// InvalidateWithPaired marks a token unusable together with any record
// paired to it.  Given an access token id this also revokes the refresh
// token issued alongside it.
func (r *TokenRepo) InvalidateWithPaired(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE tokens SET invalidated=1 WHERE id=? OR paired_id=?", id, id)
	return err
}

// InvalidateAllForUser marks every live ACCESS/REFRESH record of the user
// unusable.  Used by logout-all-devices.
func (r *TokenRepo) InvalidateAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE tokens SET invalidated=1 WHERE user_id=? AND type IN (?,?) AND invalidated=0",
		userID, model.TokenAccess, model.TokenRefresh)
	return err
}

// Rotate applies a refresh rotation as one transaction: the old refresh
// record (and its paired access record) is invalidated and touched, and the
// new access and refresh records are created.  The old pair is never
// invalidated without the new pair existing, nor the reverse.
func (r *TokenRepo) Rotate(ctx context.Context, oldRefreshID, oldPairedID string, newAccess, newRefresh model.Token) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	if oldPairedID != "" {
		_, err = tx.ExecContext(ctx, "UPDATE tokens SET invalidated=1, last_used_at=? WHERE id IN (?,?)",
			now, oldRefreshID, oldPairedID)
	} else {
		_, err = tx.ExecContext(ctx, "UPDATE tokens SET invalidated=1, last_used_at=? WHERE id=?",
			now, oldRefreshID)
	}
	if err != nil {
		return err
	}
	for _, t := range []model.Token{newAccess, newRefresh} {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tokens (id, user_id, type, paired_id, expires_at, invalidated, ip_address, user_agent) VALUES (?,?,?,?,?,0,?,?)",
			t.ID, t.UserID, t.Type, t.PairedID, t.ExpiresAt, t.IPAddress, t.UserAgent); err != nil {
			return err
		}
	}
	return tx.Commit()
}
