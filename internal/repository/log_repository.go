package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/inventory-management/internal/model"
)

// LogRepo appends security and audit rows.  Both tables are append-only and
// retention-bounded: rows past the configured window are deleted by the
// cleanup sweep.
type LogRepo struct{ DB *sql.DB }

func NewLogRepo(db *sql.DB) *LogRepo { return &LogRepo{DB: db} }

// InsertSecurity appends one security event row.  A zero UserID is stored
// as NULL so events against unknown accounts keep no dangling reference.
func (r *LogRepo) InsertSecurity(ctx context.Context, l model.SecurityLog) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO security_logs (user_id, event, severity, details, ip_address, user_agent) VALUES (?,?,?,?,?,?)",
		nullableID(l.UserID), l.Event, l.Severity, l.Details, l.IPAddress, l.UserAgent)
	return err
}

// InsertAudit appends one audit row.
func (r *LogRepo) InsertAudit(ctx context.Context, l model.AuditLog) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO audit_logs (user_id, action, entity, details, ip_address, user_agent) VALUES (?,?,?,?,?,?)",
		l.UserID, l.Action, l.Entity, l.Details, l.IPAddress, l.UserAgent)
	return err
}

// CountSevereSince counts WARNING-or-worse events for an ip since the
// cutoff.  The count drives suspicious-activity escalation; keying on ip
// catches attackers probing many accounts from one address.
func (r *LogRepo) CountSevereSince(ctx context.Context, ip string, since time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM security_logs WHERE ip_address=? AND severity IN (?,?) AND created_at >= ?",
		ip, model.SeverityWarning, model.SeverityCritical, since).Scan(&n)
	return n, err
}

// DeleteBefore drops security and audit rows older than the cutoff.
func (r *LogRepo) DeleteBefore(ctx context.Context, cutoff time.Time) error {
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM security_logs WHERE created_at < ?", cutoff); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx, "DELETE FROM audit_logs WHERE created_at < ?", cutoff)
	return err
}

func nullableID(id uint64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(id), Valid: true}
}
