// Package handler exposes the HTTP surface of the booking service.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/match-slot-booking/internal/booking"
)

// getUserID extracts the authenticated user ID placed in the context by
// the JWT middleware.  JWT numeric claims decode as float64; string
// subjects are parsed for robustness.
func getUserID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), true
	case uint64:
		return v, true
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		return id, err == nil
	default:
		return 0, false
	}
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// bookingError maps the core sentinel errors onto HTTP responses so
// every handler translates failures the same way.
func bookingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, booking.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	case errors.Is(err, booking.ErrMatchNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "match not found"})
	case errors.Is(err, booking.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, booking.ErrEntryNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "waitlist entry not found"})
	case errors.Is(err, booking.ErrInsufficientCapacity):
		return c.JSON(http.StatusConflict, echo.Map{"error": "not enough free slots"})
	case errors.Is(err, booking.ErrInsufficientWaitlist):
		return c.JSON(http.StatusConflict, echo.Map{"error": "waitlist is full"})
	case errors.Is(err, booking.ErrAlreadyWaitlisted):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already on the waitlist"})
	case errors.Is(err, booking.ErrLockExpired):
		return c.JSON(http.StatusConflict, echo.Map{"error": "lock expired"})
	case errors.Is(err, booking.ErrConcurrentModification):
		return c.JSON(http.StatusConflict, echo.Map{"error": "concurrent update, retry"})
	case errors.Is(err, booking.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, booking.ErrTxTimeout):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "operation timed out, retry"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
