// Package queue defines the security-alert messages exchanged over the
// message broker and the background consumer that records them.
package queue

// SecurityAlertEvent is published when the security logger escalates an
// address past the suspicious-activity threshold.  It carries enough
// context for downstream consumers to page, block or investigate without
// querying the primary database.
type SecurityAlertEvent struct {
	UserID     uint64 `json:"user_id,omitempty"`
	Event      string `json:"event"`
	Severity   string `json:"severity"`
	Details    string `json:"details"`
	IPAddress  string `json:"ip_address"`
	UserAgent  string `json:"user_agent,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
