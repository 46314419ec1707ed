// README: Reference planner backend endpoint (POST /planner/message).
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nile/internal/planner"
)

type PlannerHandler struct {
	planner planner.Planner
	timeout time.Duration
}

func NewPlannerHandler(p planner.Planner, timeout time.Duration) *PlannerHandler {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &PlannerHandler{planner: p, timeout: timeout}
}

// Message handles POST /planner/message.
func (h *PlannerHandler) Message(c *gin.Context) {
	var req planner.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp, err := h.planner.Send(ctx, req)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, resp)
}
