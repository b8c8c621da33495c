// README: JSON helpers and error-to-status mapping.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"corrida/internal/modules/ride"
	"corrida/internal/modules/route"
	"corrida/internal/modules/tracking"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

// statusFor maps module errors onto HTTP statuses. Guard rejections that
// leave the session in a resting state are conflicts, not server failures.
func statusFor(err error) (int, string) {
	var routeErr *route.UnavailableError
	var trackErr *tracking.UnavailableError

	switch {
	case errors.Is(err, ride.ErrBadRequest), errors.Is(err, ride.ErrInvalidCashAmount):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ride.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, ride.ErrInsufficientBalance), errors.Is(err, ride.ErrProviderDeclined):
		return http.StatusPaymentRequired, err.Error()
	case errors.Is(err, ride.ErrInvalidState), errors.Is(err, ride.ErrRideClosed), errors.Is(err, ride.ErrSettlementConflict):
		return http.StatusConflict, err.Error()
	case errors.As(err, &routeErr):
		return routeStatus(routeErr), routeErr.Error()
	case errors.As(err, &trackErr):
		return http.StatusServiceUnavailable, trackErr.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func routeStatus(err *route.UnavailableError) int {
	switch err.Status {
	case route.StatusNotFound, route.StatusNoResults:
		return http.StatusUnprocessableEntity
	case route.StatusInvalidRequest:
		return http.StatusBadRequest
	case route.StatusServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeRideError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	writeError(c, status, msg)
}
