package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fleet-management/internal/service"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated user's role.
func Role(c echo.Context) (string, bool) {
	role, ok := c.Get(ctxRole).(string)
	return role, ok && role != ""
}

// ActorFrom builds the core's view of the caller from the token claims.
func ActorFrom(c echo.Context) (service.Actor, bool) {
	id, ok := UserID(c)
	if !ok {
		return service.Actor{}, false
	}
	role, ok := Role(c)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{ID: id, Roles: []string{role}}, true
}

// userKey identifies the caller in rate limit keys, "anon" before login.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
