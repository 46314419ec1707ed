// README: In-process planner backend: LLM turn, conversation history, Maps enrichment.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"

	"nile/internal/ai"
	"nile/internal/maps"
	"nile/internal/modules/conversation"
	"nile/internal/observability"
	"nile/internal/planner"
)

const (
	// historyLimit is how many earlier turns are sent to the model.
	historyLimit = 20
	// travelNoteThreshold skips trivial hops between nearby stops.
	travelNoteThreshold = 5 * time.Minute
)

var ErrEmptyMessage = errors.New("message is required")

// PlaceFinder is satisfied by *maps.PlacesService.
type PlaceFinder interface {
	Lookup(ctx context.Context, title, area string) (*maps.Place, error)
}

// RouteEstimator is satisfied by *maps.RouteService.
type RouteEstimator interface {
	GetTravelEstimate(ctx context.Context, origin, destination string) (time.Duration, string, error)
}

// PlannerService answers planner turns in process. It implements planner.Planner so
// the session engine can use it directly or through POST /planner/message.
type PlannerService struct {
	provider ai.LLMProvider
	history  conversation.Store
	places   PlaceFinder
	routes   RouteEstimator
	loc      *time.Location
	now      func() time.Time
}

// NewPlannerService wires the planner. places and routes may be nil.
func NewPlannerService(provider ai.LLMProvider, history conversation.Store, places PlaceFinder, routes RouteEstimator) (*PlannerService, error) {
	loc, err := time.LoadLocation("Africa/Cairo")
	if err != nil {
		return nil, fmt.Errorf("failed to load Africa/Cairo location: %w", err)
	}
	if history == nil {
		history = conversation.NewMemoryStore()
	}
	return &PlannerService{
		provider: provider,
		history:  history,
		places:   places,
		routes:   routes,
		loc:      loc,
		now:      time.Now,
	}, nil
}

// Send processes one turn and returns the planner response with its conversation id.
func (p *PlannerService) Send(ctx context.Context, req planner.Request) (*planner.Response, error) {
	logger := observability.LoggerFromContext(ctx)
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	conversationID := req.ConversationID
	var past []conversation.Turn
	if conversationID == "" {
		conversationID = uuid.NewString()
	} else {
		turns, err := p.history.History(ctx, conversationID, historyLimit)
		if err != nil {
			logger.Warn("conversation history unavailable", "conversation_id", conversationID, "error", err)
		}
		past = turns
	}

	now := p.now().In(p.loc)
	resp, err := p.provider.Plan(ctx, ai.PlanInput{
		Message:     message,
		UserContext: req.UserContext,
		History:     past,
		Now:         now,
	})
	if err != nil {
		logger.Error("planner provider failed", "conversation_id", conversationID, "error", err)
		return nil, err
	}
	if resp.HasItinerary() {
		p.enrich(ctx, resp.Itinerary)
	}
	resp.ConversationID = conversationID

	if err := p.history.Append(ctx, conversationID,
		conversation.Turn{Role: conversation.RoleUser, Text: message, At: now},
		conversation.Turn{Role: conversation.RoleModel, Text: historyText(resp), At: now},
	); err != nil {
		logger.Warn("conversation history not saved", "conversation_id", conversationID, "error", err)
	}
	return resp, nil
}

// historyText is what the model sees of its own earlier reply.
func historyText(resp *planner.Response) string {
	if !resp.HasItinerary() {
		return resp.Message
	}
	var titles []string
	for _, day := range resp.Itinerary.DailyPlans {
		for _, act := range day.Activities {
			titles = append(titles, fmt.Sprintf("day %d: %s", day.Day, act.Title))
		}
	}
	return fmt.Sprintf("%s [itinerary: %s]", resp.Message, strings.Join(titles, "; "))
}

// enrich adds place ratings and travel notes. Failures leave the activity unchanged.
func (p *PlannerService) enrich(ctx context.Context, it *planner.Itinerary) {
	logger := observability.LoggerFromContext(ctx)
	for d := range it.DailyPlans {
		acts := it.DailyPlans[d].Activities
		for i := range acts {
			act := &acts[i]
			if p.places != nil {
				place, err := p.places.Lookup(ctx, act.Title, act.LocationName)
				switch {
				case err == nil:
					act.Rating = float64(place.Rating)
					if act.LocationName == "" {
						act.LocationName = place.Name
					}
				case !errors.Is(err, maps.ErrNoPlace):
					logger.Warn("place lookup failed", "title", act.Title, "error", err)
				}
			}
			if p.routes != nil && i > 0 {
				p.addTravelNote(ctx, &acts[i-1], act)
			}
		}
	}
}

func (p *PlannerService) addTravelNote(ctx context.Context, from, to *planner.Activity) {
	if from.LocationName == "" || to.LocationName == "" || from.LocationName == to.LocationName {
		return
	}
	dur, dist, err := p.routes.GetTravelEstimate(ctx, from.LocationName, to.LocationName)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("travel estimate failed", "from", from.LocationName, "to", to.LocationName, "error", err)
		return
	}
	if dur < travelNoteThreshold {
		return
	}
	base := to.Description
	if base == "" {
		base = to.BestTimeReason
	}
	note := fmt.Sprintf("About %.0f min (%s) by car from %s.", dur.Minutes(), dist, from.LocationName)
	to.Description = strings.TrimSpace(base + " " + note)
}
