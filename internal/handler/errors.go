package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fleet-management/internal/repository"
	"github.com/iliyamo/fleet-management/internal/service"
)

// writeError renders err as the JSON error response for its kind.
// Unexpected errors are logged and answered with a generic 500.
func writeError(c echo.Context, err error) error {
	var short *service.InsufficientStockError
	var se *service.Error
	switch {
	case errors.As(err, &short):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":     short.Error(),
			"requested": short.Requested,
			"available": short.Available,
		})
	case errors.Is(err, errUnauthenticated):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.As(err, &se):
		return c.JSON(statusFor(se.Kind), echo.Map{"error": se.Msg})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"})
	case errors.Is(err, repository.ErrInUse):
		return c.JSON(http.StatusConflict, echo.Map{"error": "referenced by other records"})
	}
	slog.Error("request failed",
		slog.String("method", c.Request().Method),
		slog.String("path", c.Path()),
		slog.String("error", err.Error()))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func statusFor(kind error) int {
	switch kind {
	case service.ErrValidation, service.ErrConflict:
		return http.StatusUnprocessableEntity
	case service.ErrForbidden:
		return http.StatusForbidden
	case service.ErrNotFound:
		return http.StatusNotFound
	case service.ErrUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}
