package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/inventory-management/internal/config"
	"github.com/iliyamo/inventory-management/internal/model"
)

type fakeLogStore struct {
	security []model.SecurityLog
	audits   []model.AuditLog
	deleted  *time.Time
}

func (f *fakeLogStore) InsertSecurity(_ context.Context, l model.SecurityLog) error {
	l.CreatedAt = time.Now().UTC()
	f.security = append(f.security, l)
	return nil
}

func (f *fakeLogStore) InsertAudit(_ context.Context, l model.AuditLog) error {
	f.audits = append(f.audits, l)
	return nil
}

func (f *fakeLogStore) CountSevereSince(_ context.Context, ip string, since time.Time) (int, error) {
	n := 0
	for _, l := range f.security {
		if l.IPAddress != ip || l.CreatedAt.Before(since) {
			continue
		}
		if l.Severity == model.SeverityWarning || l.Severity == model.SeverityCritical {
			n++
		}
	}
	return n, nil
}

func (f *fakeLogStore) DeleteBefore(_ context.Context, cutoff time.Time) error {
	f.deleted = &cutoff
	return nil
}

type fakePublisher struct {
	alerts []model.SecurityLog
}

func (f *fakePublisher) PublishAlert(_ context.Context, l model.SecurityLog) error {
	f.alerts = append(f.alerts, l)
	return nil
}

func loggerConfig() config.Config {
	return config.Config{
		SuspiciousThreshold: 3,
		SuspiciousWindow:    time.Hour,
		LogRetention:        90 * 24 * time.Hour,
	}
}

func TestLogEventDefaultsToInfo(t *testing.T) {
	store := &fakeLogStore{}
	l := NewLogger(loggerConfig(), store, nil)

	l.LogEvent(context.Background(), Event{UserID: 1, Name: model.EventLoginSuccess, IPAddress: "10.0.0.1"})

	require.Len(t, store.security, 1)
	assert.Equal(t, model.SeverityInfo, store.security[0].Severity)
	assert.Equal(t, "{}", store.security[0].Details)
}

func TestEscalationAtThreshold(t *testing.T) {
	store := &fakeLogStore{}
	pub := &fakePublisher{}
	l := NewLogger(loggerConfig(), store, pub)
	ctx := context.Background()

	ev := Event{UserID: 1, Name: model.EventLoginFailed, Severity: model.SeverityWarning, IPAddress: "10.0.0.9"}
	l.LogEvent(ctx, ev)
	l.LogEvent(ctx, ev)
	assert.Empty(t, pub.alerts, "two severe events stay below the threshold")

	l.LogEvent(ctx, ev)
	require.Len(t, pub.alerts, 1, "third severe event from the address escalates")
	assert.Equal(t, model.EventSuspiciousActivity, pub.alerts[0].Event)
	assert.Equal(t, model.SeverityAlert, pub.alerts[0].Severity)
	assert.Equal(t, "10.0.0.9", pub.alerts[0].IPAddress)

	// The ALERT row itself lands in the store alongside the triggers.
	var alerts int
	for _, row := range store.security {
		if row.Severity == model.SeverityAlert {
			alerts++
		}
	}
	assert.Equal(t, 1, alerts)
}

func TestEscalationScopedToAddress(t *testing.T) {
	store := &fakeLogStore{}
	pub := &fakePublisher{}
	l := NewLogger(loggerConfig(), store, pub)
	ctx := context.Background()

	for i, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		l.LogEvent(ctx, Event{UserID: uint64(i + 1), Name: model.EventLoginFailed, Severity: model.SeverityWarning, IPAddress: ip})
	}
	assert.Empty(t, pub.alerts, "severe events spread across addresses never escalate")
}

func TestEscalationWithoutAddressSkipped(t *testing.T) {
	store := &fakeLogStore{}
	pub := &fakePublisher{}
	l := NewLogger(loggerConfig(), store, pub)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l.LogEvent(ctx, Event{UserID: 1, Name: model.EventTokenReuse, Severity: model.SeverityCritical})
	}
	assert.Empty(t, pub.alerts)
}

func TestNilPublisherStillWritesAlertRow(t *testing.T) {
	store := &fakeLogStore{}
	l := NewLogger(loggerConfig(), store, nil)
	ctx := context.Background()

	ev := Event{Name: model.EventLoginFailed, Severity: model.SeverityCritical, IPAddress: "10.0.0.4"}
	for i := 0; i < 3; i++ {
		l.LogEvent(ctx, ev)
	}

	var alerts int
	for _, row := range store.security {
		if row.Severity == model.SeverityAlert {
			alerts++
		}
	}
	assert.Equal(t, 1, alerts, "local ALERT row survives a disabled broker")
}

func TestLogAudit(t *testing.T) {
	store := &fakeLogStore{}
	l := NewLogger(loggerConfig(), store, nil)

	l.LogAudit(context.Background(), 7, "UPDATE", "user", map[string]string{"field": "password"}, "10.0.0.1", "cli")

	require.Len(t, store.audits, 1)
	assert.Equal(t, uint64(7), store.audits[0].UserID)
	assert.Equal(t, "UPDATE", store.audits[0].Action)
	assert.JSONEq(t, `{"field":"password"}`, store.audits[0].Details)
}

func TestCleanupOldLogs(t *testing.T) {
	store := &fakeLogStore{}
	l := NewLogger(loggerConfig(), store, nil)

	require.NoError(t, l.CleanupOldLogs(context.Background()))
	require.NotNil(t, store.deleted)
	assert.WithinDuration(t, time.Now().Add(-90*24*time.Hour), *store.deleted, 5*time.Second)
}
