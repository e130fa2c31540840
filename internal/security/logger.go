package security

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/iliyamo/inventory-management/internal/config"
	"github.com/iliyamo/inventory-management/internal/model"
)

// LogStore appends and queries security/audit rows.
type LogStore interface {
	InsertSecurity(ctx context.Context, l model.SecurityLog) error
	InsertAudit(ctx context.Context, l model.AuditLog) error
	CountSevereSince(ctx context.Context, ip string, since time.Time) (int, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) error
}

// AlertPublisher forwards an escalated event to the message broker.  A nil
// publisher disables escalation delivery but never the local ALERT row.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, l model.SecurityLog) error
}

// Event carries one security-relevant occurrence into the logger.  Details
// is marshalled to JSON; use a typed struct for known events and a plain
// map only for genuinely open-ended metadata.
type Event struct {
	UserID    uint64
	Name      string
	Severity  string
	Details   interface{}
	IPAddress string
	UserAgent string
}

// Logger records security and audit events and escalates when an address
// accumulates too many WARNING-or-worse events inside the configured
// window.  Logging failures are reported to the process log and swallowed:
// an audit hiccup must not fail the flow that triggered it.
type Logger struct {
	cfg       config.Config
	store     LogStore
	publisher AlertPublisher
	now       func() time.Time
}

func NewLogger(cfg config.Config, store LogStore, publisher AlertPublisher) *Logger {
	return &Logger{
		cfg:       cfg,
		store:     store,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// LogEvent appends a security row and runs the escalation check for
// WARNING and CRITICAL events.
func (l *Logger) LogEvent(ctx context.Context, ev Event) {
	if ev.Severity == "" {
		ev.Severity = model.SeverityInfo
	}
	row := model.SecurityLog{
		UserID:    ev.UserID,
		Event:     ev.Name,
		Severity:  ev.Severity,
		Details:   marshalDetails(ev.Details),
		IPAddress: ev.IPAddress,
		UserAgent: ev.UserAgent,
	}
	if err := l.store.InsertSecurity(ctx, row); err != nil {
		log.Printf("security-log: insert failed for event %s: %v", ev.Name, err)
		return
	}
	if ev.Severity == model.SeverityWarning || ev.Severity == model.SeverityCritical {
		l.escalate(ctx, row)
	}
}

// LogAudit appends an audit row for a state change by a known user.
func (l *Logger) LogAudit(ctx context.Context, userID uint64, action, entity string, details interface{}, ip, userAgent string) {
	err := l.store.InsertAudit(ctx, model.AuditLog{
		UserID:    userID,
		Action:    action,
		Entity:    entity,
		Details:   marshalDetails(details),
		IPAddress: ip,
		UserAgent: userAgent,
	})
	if err != nil {
		log.Printf("audit-log: insert failed for %s %s: %v", action, entity, err)
	}
}

// escalate writes an ALERT row and publishes it once the address crosses
// the suspicious-activity threshold inside the window.
func (l *Logger) escalate(ctx context.Context, trigger model.SecurityLog) {
	if trigger.IPAddress == "" {
		return
	}
	since := l.now().Add(-l.cfg.SuspiciousWindow)
	n, err := l.store.CountSevereSince(ctx, trigger.IPAddress, since)
	if err != nil {
		log.Printf("security-log: severe count failed for %s: %v", trigger.IPAddress, err)
		return
	}
	if n < l.cfg.SuspiciousThreshold {
		return
	}
	alert := model.SecurityLog{
		UserID:    trigger.UserID,
		Event:     model.EventSuspiciousActivity,
		Severity:  model.SeverityAlert,
		Details:   marshalDetails(map[string]interface{}{"trigger": trigger.Event, "severe_events": n}),
		IPAddress: trigger.IPAddress,
		UserAgent: trigger.UserAgent,
	}
	if err := l.store.InsertSecurity(ctx, alert); err != nil {
		log.Printf("security-log: alert insert failed: %v", err)
	}
	if l.publisher != nil {
		if err := l.publisher.PublishAlert(ctx, alert); err != nil {
			log.Printf("security-log: alert publish failed: %v", err)
		}
	}
}

// CleanupOldLogs drops security/audit rows past the retention window.
func (l *Logger) CleanupOldLogs(ctx context.Context) error {
	return l.store.DeleteBefore(ctx, l.now().Add(-l.cfg.LogRetention))
}

func marshalDetails(v interface{}) string {
	if v == nil {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
