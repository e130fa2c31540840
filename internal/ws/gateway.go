package ws

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-management/internal/model"
	"github.com/iliyamo/inventory-management/internal/token"
)

// unseenLimit caps how many notifications get:notifications returns.
const unseenLimit = 50

// NotificationStore persists notifications and flag mutations.
type NotificationStore interface {
	Insert(ctx context.Context, n *model.Notification) error
	ListUnseen(ctx context.Context, userID uint64, limit int) ([]model.Notification, error)
	MarkSeen(ctx context.Context, userID, id uint64) error
	MarkRead(ctx context.Context, userID, id uint64) error
}

// TokenChecker validates the persisted record behind a handshake token.
type TokenChecker interface {
	GetByID(ctx context.Context, id string) (model.Token, error)
}

// UserLister resolves broadcast recipients.
type UserLister interface {
	ListActive(ctx context.Context, roles ...string) ([]uint64, error)
}

// clientMessage is everything a client may send over the socket.
type clientMessage struct {
	Event string `json:"event"`
	ID    uint64 `json:"id,omitempty"`
}

// serverMessage is everything the server pushes to a client.
type serverMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Gateway authenticates websocket connections against the token service
// and fans notifications out to a user's live connections.  Notifications
// are persisted before any delivery attempt: a recipient with no open
// connection simply finds them on its next get:notifications.
type Gateway struct {
	hub           *Hub
	notifications NotificationStore
	tokens        TokenChecker
	users         UserLister
	signer        *token.Service
	upgrader      websocket.Upgrader
}

func NewGateway(hub *Hub, notifications NotificationStore, tokens TokenChecker, users UserLister, signer *token.Service) *Gateway {
	return &Gateway{
		hub:           hub,
		notifications: notifications,
		tokens:        tokens,
		users:         users,
		signer:        signer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handle is the websocket endpoint.  The handshake requires a valid ACCESS
// token whose record is still live; anonymous connections are refused
// before the upgrade.  Browsers cannot set headers on websocket dials, so
// a token query parameter is accepted as a fallback.
func (g *Gateway) Handle(c echo.Context) error {
	raw, ok := token.Extract(c.Request())
	if !ok {
		raw = c.QueryParam("token")
	}
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
	}
	claims, err := g.signer.Verify(raw, model.TokenAccess)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}
	rec, err := g.tokens.GetByID(c.Request().Context(), claims.TokenID)
	if err != nil || rec.Type != model.TokenAccess || !rec.Live(time.Now().UTC()) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	sock, err := g.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	conn := &Conn{ID: uuid.NewString(), UserID: claims.UserID, ws: sock}
	g.hub.Add(conn)
	defer func() {
		g.hub.Remove(conn.UserID, conn.ID)
		_ = sock.Close()
	}()

	g.readLoop(c.Request().Context(), conn, sock)
	return nil
}

// readLoop dispatches client events until the connection drops.
func (g *Gateway) readLoop(ctx context.Context, conn *Conn, sock *websocket.Conn) {
	for {
		var msg clientMessage
		if err := sock.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Event {
		case "get:notifications":
			list, err := g.notifications.ListUnseen(ctx, conn.UserID, unseenLimit)
			if err != nil {
				log.Printf("ws: list notifications for user %d failed: %v", conn.UserID, err)
				_ = conn.WriteJSON(serverMessage{Event: "notifications", Error: "internal error"})
				continue
			}
			if list == nil {
				list = []model.Notification{}
			}
			_ = conn.WriteJSON(serverMessage{Event: "notifications", Data: list})
		case "mark:seen":
			if err := g.notifications.MarkSeen(ctx, conn.UserID, msg.ID); err != nil {
				_ = conn.WriteJSON(serverMessage{Event: "mark:seen", Error: "not found"})
			}
		case "mark:read":
			if err := g.notifications.MarkRead(ctx, conn.UserID, msg.ID); err != nil {
				_ = conn.WriteJSON(serverMessage{Event: "mark:read", Error: "not found"})
			}
		default:
			_ = conn.WriteJSON(serverMessage{Event: msg.Event, Error: "unknown event"})
		}
	}
}

// Send persists the notification, then pushes it to each of the
// recipient's live connections.  Delivery failures are logged per
// connection; the persisted row is the durable copy either way.
func (g *Gateway) Send(ctx context.Context, n *model.Notification) error {
	if err := g.notifications.Insert(ctx, n); err != nil {
		return err
	}
	for _, conn := range g.hub.Connections(n.UserID) {
		if err := conn.WriteJSON(serverMessage{Event: "new:notification", Data: n}); err != nil {
			log.Printf("ws: push to user %d conn %s failed: %v", n.UserID, conn.ID, err)
		}
	}
	return nil
}

// Broadcast persists and delivers one copy of the notification per active
// user, optionally filtered by role.  Recipients are handled concurrently
// and a failure for one recipient never aborts the others.
func (g *Gateway) Broadcast(ctx context.Context, n model.Notification, roles ...string) (int, error) {
	ids, err := g.users.ListActive(ctx, roles...)
	if err != nil {
		return 0, err
	}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			copied := n
			copied.UserID = userID
			if err := g.Send(ctx, &copied); err != nil {
				log.Printf("ws: broadcast to user %d failed: %v", userID, err)
			}
		}(id)
	}
	wg.Wait()
	return len(ids), nil
}
