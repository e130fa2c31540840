package security

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/inventory-management/internal/config"
	"github.com/iliyamo/inventory-management/internal/model"
)

func policyConfig() config.Config {
	return config.Config{
		MaxLoginAttempts: 5,
		AttemptWindow:    15 * time.Minute,
		LockoutDuration:  30 * time.Minute,
		MaxSessions:      5,
		SessionTimeout:   24 * time.Hour,
	}
}

// ----- in-memory stores -----

type fakeAttempts struct {
	rows []model.LoginAttempt
}

func (f *fakeAttempts) Insert(_ context.Context, userID uint64, success bool, ip string) error {
	f.rows = append(f.rows, model.LoginAttempt{UserID: userID, Success: success, IPAddress: ip, CreatedAt: time.Now().UTC()})
	return nil
}

func (f *fakeAttempts) CountFailedSince(_ context.Context, userID uint64, since time.Time) (int, error) {
	n := 0
	for _, a := range f.rows {
		if a.UserID == userID && !a.Success && !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeAttempts) DeleteForUser(_ context.Context, userID uint64) error {
	kept := f.rows[:0]
	for _, a := range f.rows {
		if a.UserID != userID {
			kept = append(kept, a)
		}
	}
	f.rows = kept
	return nil
}

func (f *fakeAttempts) DeleteBefore(_ context.Context, cutoff time.Time) error {
	kept := f.rows[:0]
	for _, a := range f.rows {
		if !a.CreatedAt.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	f.rows = kept
	return nil
}

type fakeLocks struct {
	locks map[uint64]time.Time
}

func (f *fakeLocks) SetLock(_ context.Context, id uint64, until time.Time) error {
	if f.locks == nil {
		f.locks = map[uint64]time.Time{}
	}
	f.locks[id] = until
	return nil
}

func (f *fakeLocks) ClearLock(_ context.Context, id uint64) error {
	delete(f.locks, id)
	return nil
}

type fakeSessions struct {
	rows   []model.Session
	purged bool
}

func (f *fakeSessions) InsertCapped(_ context.Context, s model.Session, max int) error {
	var mine []model.Session
	var others []model.Session
	for _, row := range f.rows {
		if row.UserID == s.UserID {
			mine = append(mine, row)
		} else {
			others = append(others, row)
		}
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].LastActive.Before(mine[j].LastActive) })
	if len(mine) > max-1 {
		mine = mine[len(mine)-(max-1):]
	}
	f.rows = append(others, append(mine, s)...)
	return nil
}

func (f *fakeSessions) DeleteByUser(_ context.Context, userID uint64) error {
	kept := f.rows[:0]
	for _, s := range f.rows {
		if s.UserID != userID {
			kept = append(kept, s)
		}
	}
	f.rows = kept
	return nil
}

func (f *fakeSessions) PurgeExpired(_ context.Context, sessionCutoff, _ time.Time) error {
	f.purged = true
	kept := f.rows[:0]
	for _, s := range f.rows {
		if !s.LastActive.Before(sessionCutoff) {
			kept = append(kept, s)
		}
	}
	f.rows = kept
	return nil
}

type fakeRotation struct {
	calls [][2]string
}

func (f *fakeRotation) Rotate(_ context.Context, oldRefreshID, oldPairedID string, _, _ model.Token) error {
	f.calls = append(f.calls, [2]string{oldRefreshID, oldPairedID})
	return nil
}

func newTestPolicy() (*Policy, *fakeAttempts, *fakeLocks, *fakeSessions, *fakeRotation) {
	attempts := &fakeAttempts{}
	locks := &fakeLocks{}
	sessions := &fakeSessions{}
	rotation := &fakeRotation{}
	p := NewPolicy(policyConfig(), attempts, locks, sessions, rotation)
	return p, attempts, locks, sessions, rotation
}

// ----- tests -----

func TestLockoutAfterMaxFailedAttempts(t *testing.T) {
	p, _, locks, _, _ := newTestPolicy()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		locked, err := p.RecordFailedAttempt(ctx, 1, "10.0.0.1")
		require.NoError(t, err)
		assert.False(t, locked, "attempt %d must not lock", i+1)
	}
	locked, err := p.RecordFailedAttempt(ctx, 1, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, locked, "fifth failed attempt locks the account")

	until, ok := locks.locks[1]
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), until, 5*time.Second)
}

func TestSuccessClearsFailureHistory(t *testing.T) {
	p, attempts, _, _, _ := newTestPolicy()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := p.RecordFailedAttempt(ctx, 1, "10.0.0.1")
		require.NoError(t, err)
	}
	require.NoError(t, p.RecordSuccess(ctx, 1, "10.0.0.1"))

	n, err := attempts.CountFailedSince(ctx, 1, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "old failures must not count toward a future window")

	// Failures after the success start counting from zero again.
	locked, err := p.RecordFailedAttempt(ctx, 1, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestIsLockedLazyUnlock(t *testing.T) {
	p, _, locks, _, _ := newTestPolicy()
	ctx := context.Background()

	expired := time.Now().UTC().Add(-time.Minute)
	u := model.User{ID: 2, LockedUntil: &expired}
	require.NoError(t, locks.SetLock(ctx, 2, expired))

	locked, err := p.IsLocked(ctx, u)
	require.NoError(t, err)
	assert.False(t, locked, "elapsed lockout clears on the first check")
	_, still := locks.locks[2]
	assert.False(t, still, "lazy unlock must clear the stored lock")
}

func TestIsLockedActiveLock(t *testing.T) {
	p, _, _, _, _ := newTestPolicy()

	future := time.Now().UTC().Add(10 * time.Minute)
	locked, err := p.IsLocked(context.Background(), model.User{ID: 3, LockedUntil: &future})
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestManageSessionsEvictsOldestAtCap(t *testing.T) {
	p, _, _, sessions, _ := newTestPolicy()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		sessions.rows = append(sessions.rows, model.Session{
			ID: string(rune('a' + i)), UserID: 4, LastActive: base.Add(time.Duration(i) * time.Minute),
		})
	}

	require.NoError(t, p.ManageSessions(ctx, model.Session{ID: "new", UserID: 4}))

	assert.Len(t, sessions.rows, 5, "cap of 5 holds after the sixth login")
	ids := make(map[string]bool)
	for _, s := range sessions.rows {
		ids[s.ID] = true
	}
	assert.False(t, ids["a"], "least-recently-active session is evicted")
	assert.True(t, ids["new"])
}

func TestRotateRefreshTokenDelegatesPair(t *testing.T) {
	p, _, _, _, rotation := newTestPolicy()

	old := model.Token{ID: "old-refresh", PairedID: "old-access"}
	require.NoError(t, p.RotateRefreshToken(context.Background(), old,
		model.Token{ID: "new-access"}, model.Token{ID: "new-refresh"}))

	require.Len(t, rotation.calls, 1)
	assert.Equal(t, [2]string{"old-refresh", "old-access"}, rotation.calls[0])
}

func TestCleanupExpiredPurges(t *testing.T) {
	p, attempts, _, sessions, _ := newTestPolicy()
	ctx := context.Background()

	stale := model.Session{ID: "stale", UserID: 5, LastActive: time.Now().UTC().Add(-48 * time.Hour)}
	fresh := model.Session{ID: "fresh", UserID: 5, LastActive: time.Now().UTC()}
	sessions.rows = append(sessions.rows, stale, fresh)

	require.NoError(t, p.CleanupExpired(ctx))
	require.NoError(t, p.CleanupExpired(ctx)) // idempotent: second sweep finds nothing

	assert.True(t, sessions.purged)
	require.Len(t, sessions.rows, 1)
	assert.Equal(t, "fresh", sessions.rows[0].ID)
	assert.Empty(t, attempts.rows)
}
