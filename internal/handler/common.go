package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fleet-management/internal/middleware"
	"github.com/iliyamo/fleet-management/internal/model"
	"github.com/iliyamo/fleet-management/internal/service"
)

// requestTimeout bounds the database work of one request.
const requestTimeout = 5 * time.Second

var errUnauthenticated = errors.New("unauthenticated")

func reqContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// actorFrom returns the authenticated caller; the JWT middleware guarantees
// it on protected routes.
func actorFrom(c echo.Context) (service.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return service.Actor{}, errUnauthenticated
	}
	return actor, nil
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// optionalID parses an optional numeric form or query value. Empty means
// absent.
func optionalID(s string) (*uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseDay parses an optional YYYY-MM-DD value in server-local time.
func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(model.DayLayout, s, time.Local)
}
