package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/iliyamo/inventory-management/internal/model"
)

// NotificationRepo persists notifications.  Persistence always precedes
// live delivery, so a recipient with no open connection still receives the
// notification on its next get:notifications call.
type NotificationRepo struct{ DB *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

// Insert stores a notification and fills in its generated id.
func (r *NotificationRepo) Insert(ctx context.Context, n *model.Notification) error {
	data := "{}"
	if len(n.Data) > 0 {
		b, err := json.Marshal(n.Data)
		if err != nil {
			return err
		}
		data = string(b)
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO notifications (user_id, kind, title, message, data, seen, `read`) VALUES (?,?,?,?,?,0,0)",
		n.UserID, n.Kind, n.Title, n.Message, data)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// ListUnseen returns the user's most recent unseen notifications, newest
// first, capped at limit.
func (r *NotificationRepo) ListUnseen(ctx context.Context, userID uint64, limit int) ([]model.Notification, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,user_id,kind,title,message,data,seen,`read`,created_at FROM notifications WHERE user_id=? AND seen=0 ORDER BY created_at DESC, id DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		var (
			n    model.Notification
			data string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Message, &data, &n.Seen, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		if data != "" && data != "{}" {
			_ = json.Unmarshal([]byte(data), &n.Data)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkSeen flags exactly one notification of the user as seen.  Marking an
// already-seen notification is a no-op, not an error.
func (r *NotificationRepo) MarkSeen(ctx context.Context, userID, id uint64) error {
	if err := r.owns(ctx, userID, id); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE notifications SET seen=1 WHERE id=? AND user_id=?", id, userID)
	return err
}

// MarkRead flags exactly one notification as read; read implies seen.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID, id uint64) error {
	if err := r.owns(ctx, userID, id); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE notifications SET `read`=1, seen=1 WHERE id=? AND user_id=?", id, userID)
	return err
}

// owns verifies the notification exists and belongs to the user.
func (r *NotificationRepo) owns(ctx context.Context, userID, id uint64) error {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM notifications WHERE id=? AND user_id=? LIMIT 1", id, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}
