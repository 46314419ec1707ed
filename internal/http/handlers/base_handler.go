// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nile/internal/modules/acceptance"
	"nile/internal/modules/chatlog"
	"nile/internal/modules/itinerary"
	"nile/internal/modules/preference"
	"nile/internal/modules/session"
	"nile/internal/observability"
	"nile/internal/planner"
	"nile/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts uuids and the act_N style ids used for activities.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeDomainError maps module errors to HTTP statuses.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, itinerary.ErrNotFound), errors.Is(err, chatlog.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, session.ErrClosed):
		writeError(c, http.StatusGone, err.Error())
	case errors.Is(err, session.ErrBadRequest),
		errors.Is(err, preference.ErrUnknownOption),
		errors.Is(err, preference.ErrEmptySelection),
		errors.Is(err, preference.ErrSingleSelect),
		errors.Is(err, preference.ErrMultiSelect),
		errors.Is(err, acceptance.ErrUnknownItem),
		errors.Is(err, itinerary.ErrBadRequest),
		errors.Is(err, itinerary.ErrEmpty),
		errors.Is(err, service.ErrEmptyMessage):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrInvalidPhase),
		errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrNothingAccepted),
		errors.Is(err, acceptance.ErrFrozen),
		errors.Is(err, preference.ErrStalePrompt),
		errors.Is(err, preference.ErrNotActive),
		errors.Is(err, chatlog.ErrApplied):
		writeError(c, http.StatusConflict, err.Error())
	case planner.IsTransport(err), planner.IsMalformed(err):
		writeError(c, http.StatusBadGateway, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(c, http.StatusGatewayTimeout, "timed out")
	default:
		observability.LoggerFromContext(c.Request.Context()).Error("unhandled error", "error", err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
