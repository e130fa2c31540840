package ws

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/inventory-management/internal/model"
)

// fakeNotifStore is safe for concurrent use; Broadcast fans out across
// goroutines.
type fakeNotifStore struct {
	mu      sync.Mutex
	seq     uint64
	rows    []model.Notification
	failFor map[uint64]bool
}

func newFakeNotifStore() *fakeNotifStore {
	return &fakeNotifStore{failFor: map[uint64]bool{}}
}

func (f *fakeNotifStore) Insert(_ context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[n.UserID] {
		return errors.New("insert failed")
	}
	f.seq++
	n.ID = f.seq
	f.rows = append(f.rows, *n)
	return nil
}

func (f *fakeNotifStore) ListUnseen(_ context.Context, userID uint64, limit int) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if f.rows[i].UserID == userID && !f.rows[i].Seen {
			out = append(out, f.rows[i])
		}
	}
	return out, nil
}

func (f *fakeNotifStore) MarkSeen(_ context.Context, userID, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id && f.rows[i].UserID == userID {
			f.rows[i].Seen = true
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeNotifStore) MarkRead(_ context.Context, userID, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id && f.rows[i].UserID == userID {
			f.rows[i].Seen = true
			f.rows[i].Read = true
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeNotifStore) countFor(userID uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, row := range f.rows {
		if row.UserID == userID {
			n++
		}
	}
	return n
}

type fakeUserLister struct {
	ids      []uint64
	gotRoles []string
}

func (f *fakeUserLister) ListActive(_ context.Context, roles ...string) ([]uint64, error) {
	f.gotRoles = roles
	return f.ids, nil
}

func TestSendPersistsWithoutConnections(t *testing.T) {
	store := newFakeNotifStore()
	g := NewGateway(NewHub(), store, nil, nil, nil)

	n := &model.Notification{UserID: 7, Kind: model.NotificationLowStock, Title: "Low stock", Message: "SKU-42 below threshold"}
	require.NoError(t, g.Send(context.Background(), n))
	assert.NotZero(t, n.ID, "persisted even though nobody is connected")

	list, err := store.ListUnseen(context.Background(), 7, unseenLimit)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Seen, "delivered later as unseen")
	assert.Equal(t, "Low stock", list[0].Title)
}

func TestBroadcastSurvivesRecipientFailure(t *testing.T) {
	store := newFakeNotifStore()
	store.failFor[2] = true
	lister := &fakeUserLister{ids: []uint64{1, 2, 3}}
	g := NewGateway(NewHub(), store, nil, lister, nil)

	sent, err := g.Broadcast(context.Background(), model.Notification{
		Kind: model.NotificationSystem, Title: "Maintenance", Message: "tonight 02:00",
	})
	require.NoError(t, err, "one failing recipient never aborts the batch")
	assert.Equal(t, 3, sent)

	assert.Equal(t, 1, store.countFor(1))
	assert.Zero(t, store.countFor(2))
	assert.Equal(t, 1, store.countFor(3))
}

func TestBroadcastCopiesPerRecipient(t *testing.T) {
	store := newFakeNotifStore()
	lister := &fakeUserLister{ids: []uint64{1, 2}}
	g := NewGateway(NewHub(), store, nil, lister, nil)

	_, err := g.Broadcast(context.Background(), model.Notification{
		Kind: model.NotificationSecurity, Title: "Alert", Message: "new admin login",
	}, model.RoleAdmin, model.RoleManager)
	require.NoError(t, err)

	assert.Equal(t, []string{model.RoleAdmin, model.RoleManager}, lister.gotRoles)
	assert.Equal(t, 1, store.countFor(1), "each recipient gets its own row")
	assert.Equal(t, 1, store.countFor(2))
}
