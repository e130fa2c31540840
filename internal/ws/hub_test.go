package ws

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHubAddRemove(t *testing.T) {
	h := NewHub()

	h.Add(&Conn{ID: "c1", UserID: 1})
	h.Add(&Conn{ID: "c2", UserID: 1})
	h.Add(&Conn{ID: "c3", UserID: 2})

	assert.Len(t, h.Connections(1), 2, "one user may hold several connections")
	assert.Len(t, h.Connections(2), 1)
	assert.Equal(t, 2, h.Users())

	h.Remove(1, "c1")
	assert.Len(t, h.Connections(1), 1)
	assert.Equal(t, 2, h.Users())

	h.Remove(1, "c2")
	assert.Empty(t, h.Connections(1))
	assert.Equal(t, 1, h.Users(), "empty user entry is dropped from the registry")
}

func TestHubRemoveUnknown(t *testing.T) {
	h := NewHub()
	h.Remove(42, "nope")
	assert.Zero(t, h.Users())
}

func TestHubAddReplacesSameConnID(t *testing.T) {
	h := NewHub()
	h.Add(&Conn{ID: "c1", UserID: 1})
	h.Add(&Conn{ID: "c1", UserID: 1})
	assert.Len(t, h.Connections(1), 1)
}

func TestHubConnectionsSnapshot(t *testing.T) {
	h := NewHub()
	h.Add(&Conn{ID: "c1", UserID: 1})

	snap := h.Connections(1)
	h.Remove(1, "c1")
	assert.Len(t, snap, 1, "snapshot survives later removals")
	assert.Empty(t, h.Connections(1))
}

func TestHubConcurrentAccess(t *testing.T) {
	h := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := uint64(i % 5)
			connID := fmt.Sprintf("c%d", i)
			h.Add(&Conn{ID: connID, UserID: userID})
			h.Connections(userID)
			h.Remove(userID, connID)
		}(i)
	}
	wg.Wait()
	assert.Zero(t, h.Users())
}
