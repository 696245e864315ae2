package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/quickfix-backend/internal/middleware"
	"github.com/shinyyama/quickfix-backend/internal/reqctx"
	"github.com/shinyyama/quickfix-backend/internal/service"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// writeError maps service errors onto the JSON error envelope.
func writeError(c echo.Context, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", ve.Error()))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, NewErrorResponse("forbidden", "not allowed for this user"))
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "not found"))
	case errors.Is(err, service.ErrStaleRequest):
		return c.JSON(http.StatusConflict, NewErrorResponse("stale_request", "the request changed in the meantime; refresh and try again"))
	case errors.Is(err, service.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, NewErrorResponse("invalid_transition", err.Error()))
	case errors.Is(err, service.ErrDiagnosticGeneration):
		return c.JSON(http.StatusBadGateway, NewErrorResponse("diagnostic_generation_failed", "could not generate a diagnosis, try again later"))
	case errors.Is(err, service.ErrExternalService):
		return c.JSON(http.StatusBadGateway, NewErrorResponse("external_service_error", "an upstream service failed, try again later"))
	}
	log.Printf("[http] rid=%s path=%s err=%v", reqctx.RID(c.Request().Context()), c.Path(), err)
	return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "internal error"))
}

func actorFrom(c echo.Context) service.Actor {
	uid, _ := c.Get(middleware.ContextUID).(string)
	admin, _ := c.Get(middleware.ContextAdmin).(bool)
	return service.Actor{UID: uid, Admin: admin}
}

func requireActor(c echo.Context) (service.Actor, bool) {
	a := actorFrom(c)
	return a, a.UID != ""
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
}
