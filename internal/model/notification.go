package model

import "time"

// Notification kinds understood by clients.  Open-ended metadata goes into
// the Data map; everything the UI renders comes from the typed fields.
const (
	NotificationLowStock = "LOW_STOCK"
	NotificationSecurity = "SECURITY"
	NotificationSystem   = "SYSTEM"
)

// Notification models a row in the `notifications` table.  Notifications
// are store-and-forward: the row is persisted before any live delivery is
// attempted, so a recipient with no open connection picks it up later via
// get:notifications.
type Notification struct {
	ID        uint64            `json:"id"`
	UserID    uint64            `json:"user_id"`
	Kind      string            `json:"kind"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Data      map[string]string `json:"data,omitempty"`
	Seen      bool              `json:"seen"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"created_at"`
}
