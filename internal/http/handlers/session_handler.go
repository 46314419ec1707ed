// README: Planning session API (create, snapshot, chat, onboarding, review, confirm).
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"nile/internal/gateway"
	httpmiddleware "nile/internal/http/middleware"
	"nile/internal/modules/session"
	"nile/internal/types"
)

const commandTimeout = 10 * time.Second

type SessionHandler struct {
	sessions *session.Registry
}

func NewSessionHandler(registry *session.Registry) *SessionHandler {
	return &SessionHandler{sessions: registry}
}

type createSessionReq struct {
	StartPreferences bool `json:"start_preferences"`
}

type sendMessageReq struct {
	Text string `json:"text"`
}

type selectReq struct {
	Value string `json:"value"`
}

type toggleItemReq struct {
	Accepted *bool `json:"accepted"`
}

type saveCardReq struct {
	Saved *bool `json:"saved"`
}

// Create handles POST /api/sessions.
func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	ctrl := h.sessions.Create(httpmiddleware.CallerUID(c))
	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()
	if req.StartPreferences {
		if err := ctrl.StartPreferences(ctx); err != nil {
			writeDomainError(c, err)
			return
		}
	}
	snap, err := ctrl.Snapshot(ctx)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, snap)
}

// Get handles GET /api/sessions/:id.
func (h *SessionHandler) Get(c *gin.Context) {
	h.run(c, nil)
}

// Delete handles DELETE /api/sessions/:id.
func (h *SessionHandler) Delete(c *gin.Context) {
	ctrl, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := h.sessions.Close(ctrl.ID()); err != nil {
		writeDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SendMessage handles POST /api/sessions/:id/messages.
func (h *SessionHandler) SendMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(c, http.StatusBadRequest, "missing text")
		return
	}
	h.run(c, func(ctx context.Context, ctrl *session.Controller) error {
		return ctrl.SendMessage(ctx, text)
	})
}

// StartPreferences handles POST /api/sessions/:id/preferences.
func (h *SessionHandler) StartPreferences(c *gin.Context) {
	h.run(c, func(ctx context.Context, ctrl *session.Controller) error {
		return ctrl.StartPreferences(ctx)
	})
}

// SelectQuickReply handles POST /api/sessions/:id/prompts/:promptId/select.
func (h *SessionHandler) SelectQuickReply(c *gin.Context) {
	promptID := c.Param("promptId")
	if !isValidID(promptID) {
		writeError(c, http.StatusBadRequest, "invalid prompt id")
		return
	}
	var req selectReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == "" {
		writeError(c, http.StatusBadRequest, "missing value")
		return
	}
	h.run(c, func(ctx context.Context, ctrl *session.Controller) error {
		return ctrl.SelectQuickReply(ctx, types.ID(promptID), req.Value)
	})
}

// SubmitQuickReplies handles POST /api/sessions/:id/prompts/:promptId/submit.
func (h *SessionHandler) SubmitQuickReplies(c *gin.Context) {
	promptID := c.Param("promptId")
	if !isValidID(promptID) {
		writeError(c, http.StatusBadRequest, "invalid prompt id")
		return
	}
	h.run(c, func(ctx context.Context, ctrl *session.Controller) error {
		return ctrl.SubmitQuickReplies(ctx, types.ID(promptID))
	})
}

// ToggleItem handles PUT /api/sessions/:id/items/:itemId.
func (h *SessionHandler) ToggleItem(c *gin.Context) {
	itemID := c.Param("itemId")
	if !isValidID(itemID) {
		writeError(c, http.StatusBadRequest, "invalid item id")
		return
	}
	var req toggleItemReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Accepted == nil {
		writeError(c, http.StatusBadRequest, "missing accepted")
		return
	}
	h.run(c, func(ctx context.Context, ctrl *session.Controller) error {
		return ctrl.ToggleItem(ctx, itemID, *req.Accepted)
	})
}

// Confirm handles POST /api/sessions/:id/confirm. The response still shows review;
// the phase moves to confirmed when the gateway acknowledges.
func (h *SessionHandler) Confirm(c *gin.Context) {
	caller := gateway.Caller{
		UID:   httpmiddleware.CallerUID(c),
		Token: httpmiddleware.CallerToken(c),
	}
	h.runStatus(c, http.StatusAccepted, func(ctx context.Context, ctrl *session.Controller) error {
		return ctrl.Confirm(gateway.WithCaller(ctx, caller))
	})
}

// Regenerate handles POST /api/sessions/:id/regenerate.
func (h *SessionHandler) Regenerate(c *gin.Context) {
	h.runStatus(c, http.StatusAccepted, func(ctx context.Context, ctrl *session.Controller) error {
		return ctrl.Regenerate(ctx)
	})
}

// SaveCard handles PUT /api/sessions/:id/cards/:activityId.
func (h *SessionHandler) SaveCard(c *gin.Context) {
	activityID := c.Param("activityId")
	if !isValidID(activityID) {
		writeError(c, http.StatusBadRequest, "invalid activity id")
		return
	}
	var req saveCardReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Saved == nil {
		writeError(c, http.StatusBadRequest, "missing saved")
		return
	}
	h.run(c, func(ctx context.Context, ctrl *session.Controller) error {
		return ctrl.SaveCard(ctx, activityID, *req.Saved)
	})
}

func (h *SessionHandler) lookup(c *gin.Context) (*session.Controller, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid session id")
		return nil, false
	}
	ctrl, err := h.sessions.Get(types.ID(id), httpmiddleware.CallerUID(c))
	if err != nil {
		writeDomainError(c, err)
		return nil, false
	}
	return ctrl, true
}

func (h *SessionHandler) run(c *gin.Context, cmd func(context.Context, *session.Controller) error) {
	h.runStatus(c, http.StatusOK, cmd)
}

// runStatus applies cmd to the session and replies with the resulting snapshot.
func (h *SessionHandler) runStatus(c *gin.Context, status int, cmd func(context.Context, *session.Controller) error) {
	ctrl, ok := h.lookup(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()
	if cmd != nil {
		if err := cmd(ctx, ctrl); err != nil {
			writeDomainError(c, err)
			return
		}
	}
	snap, err := ctrl.Snapshot(ctx)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, status, snap)
}
