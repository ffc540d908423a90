package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fleet-management/internal/repository"
)

// NotificationHandler serves the office notification inbox.
type NotificationHandler struct {
	Repo *repository.NotificationRepo
}

func NewNotificationHandler(r *repository.NotificationRepo) *NotificationHandler {
	return &NotificationHandler{Repo: r}
}

// GET /v1/notifications?unread=true&limit=50
func (h *NotificationHandler) List(c echo.Context) error {
	limit := 50
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 500 {
			return badRequest(c, "limit must be between 1 and 500")
		}
		limit = n
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	list, err := h.Repo.List(ctx, c.QueryParam("unread") == "true", limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// GET /v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()
	n, err := h.Repo.UnreadCount(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": n})
}

// POST /v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	if err := h.Repo.MarkRead(ctx, id, time.Now().UTC()); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// POST /v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()
	n, err := h.Repo.MarkAllRead(ctx, time.Now().UTC())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"marked": n})
}
