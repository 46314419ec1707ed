// README: Itinerary gateway endpoints backed by the Postgres itinerary store.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"nile/internal/gateway"
	httpmiddleware "nile/internal/http/middleware"
	"nile/internal/modules/itinerary"
	"nile/internal/types"
)

const listLimit = 20

type ItineraryService interface {
	Save(ctx context.Context, cmd itinerary.SaveCommand) (*itinerary.Itinerary, error)
	Get(ctx context.Context, id types.ID) (*itinerary.Itinerary, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]itinerary.Itinerary, error)
}

type ItineraryHandler struct {
	itineraries ItineraryService
}

func NewItineraryHandler(svc ItineraryService) *ItineraryHandler {
	return &ItineraryHandler{itineraries: svc}
}

// Create handles POST /itineraries.
func (h *ItineraryHandler) Create(c *gin.Context) {
	var req gateway.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	it, err := h.itineraries.Save(c.Request.Context(), itinerary.SaveCommand{
		UserID:         httpmiddleware.CallerUID(c),
		ConversationID: req.ConversationID,
		Items:          req.Itinerary.Items,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gateway.Ack{ID: string(it.ID)})
}

// Get handles GET /itineraries/:id.
func (h *ItineraryHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid itinerary id")
		return
	}
	it, err := h.itineraries.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if it.UserID != "" && it.UserID != httpmiddleware.CallerUID(c) {
		writeError(c, http.StatusForbidden, "forbidden")
		return
	}
	writeJSON(c, http.StatusOK, it)
}

// List handles GET /itineraries for the calling user.
func (h *ItineraryHandler) List(c *gin.Context) {
	uid := httpmiddleware.CallerUID(c)
	if uid == "" {
		writeError(c, http.StatusUnauthorized, "sign in to list itineraries")
		return
	}
	list, err := h.itineraries.ListByUser(c.Request.Context(), uid, listLimit)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"itineraries": list})
}
