package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-management/internal/model"
	"github.com/iliyamo/inventory-management/internal/ws"
)

// NotificationHandler is the REST mirror of the websocket events, for
// clients without an open socket.
type NotificationHandler struct {
	Gateway *ws.Gateway
	Store   ws.NotificationStore
}

func NewNotificationHandler(g *ws.Gateway, store ws.NotificationStore) *NotificationHandler {
	return &NotificationHandler{Gateway: g, Store: store}
}

// List returns the caller's 50 most recent unseen notifications, newest first.
func (h *NotificationHandler) List(c echo.Context) error {
	userID, ok := c.Get("user_id").(uint64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Store.ListUnseen(c.Request().Context(), userID, 50)
	if err != nil {
		return jsonError(c, err)
	}
	if list == nil {
		list = []model.Notification{}
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": list})
}

// MarkSeen flags one notification as seen.
func (h *NotificationHandler) MarkSeen(c echo.Context) error {
	return h.mark(c, h.Store.MarkSeen)
}

// MarkRead flags one notification as read (and therefore seen).
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	return h.mark(c, h.Store.MarkRead)
}

func (h *NotificationHandler) mark(c echo.Context, fn func(ctx context.Context, userID, id uint64) error) error {
	userID, ok := c.Get("user_id").(uint64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid notification id"})
	}
	if err := fn(c.Request().Context(), userID, id); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}

type broadcastReq struct {
	Kind    string   `json:"kind"`
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Roles   []string `json:"roles,omitempty"`
}

// Broadcast fans one notification out to every active user, optionally
// filtered by role.  Restricted to ADMIN/MANAGER by the router.
func (h *NotificationHandler) Broadcast(c echo.Context) error {
	var req broadcastReq
	if err := c.Bind(&req); err != nil || req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	kind := strings.ToUpper(strings.TrimSpace(req.Kind))
	if kind == "" {
		kind = model.NotificationSystem
	}
	count, err := h.Gateway.Broadcast(c.Request().Context(), model.Notification{
		Kind: kind, Title: req.Title, Message: req.Message,
	}, req.Roles...)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"recipients": count})
}

func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}
