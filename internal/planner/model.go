// README: Remote planner wire contract (POST /planner/message).
package planner

import (
	"context"
	"encoding/json"
	"fmt"
)

type Mode string

const (
	ModeChat      Mode = "chat"
	ModeItinerary Mode = "itinerary"
)

func (m Mode) Valid() bool {
	return m == ModeChat || m == ModeItinerary
}

type Request struct {
	Message        string         `json:"message"`
	ConversationID string         `json:"conversation_id,omitempty"`
	UserContext    map[string]any `json:"user_context,omitempty"`
}

type Response struct {
	ConversationID string     `json:"conversation_id"`
	Mode           Mode       `json:"mode"`
	Message        string     `json:"message"`
	Suggestions    []string   `json:"suggestions,omitempty"`
	Itinerary      *Itinerary `json:"itinerary,omitempty"`
}

type Itinerary struct {
	DailyPlans []DailyPlan `json:"daily_plans"`
}

type DailyPlan struct {
	Day        int        `json:"day"`
	Date       string     `json:"date,omitempty"`
	Title      string     `json:"title,omitempty"`
	Activities []Activity `json:"activities"`
}

type Activity struct {
	Title               string   `json:"title"`
	LocationName        string   `json:"location_name"`
	StartTime           string   `json:"start_time"`
	EndTime             string   `json:"end_time"`
	EstimatedCostMin    float64  `json:"estimated_cost_min"`
	EstimatedCostMax    float64  `json:"estimated_cost_max"`
	Currency            string   `json:"currency,omitempty"`
	Tags                []string `json:"tags"`
	Category            string   `json:"category"`
	BestTimeReason      string   `json:"best_time_reason"`
	Description         string   `json:"description,omitempty"`
	AccessibilityRating int      `json:"accessibility_rating,omitempty"`
	AccessibilityNotes  string   `json:"accessibility_notes,omitempty"`
	Rating              float64  `json:"rating,omitempty"`
}

// Planner is anything that answers a planner turn: the HTTP client or an in-process backend.
type Planner interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// HasItinerary is true only when the response carries at least one activity.
// A response labelled itinerary with no daily plans is treated as chat.
func (r *Response) HasItinerary() bool {
	if r == nil || r.Mode != ModeItinerary || r.Itinerary == nil {
		return false
	}
	for _, d := range r.Itinerary.DailyPlans {
		if len(d.Activities) > 0 {
			return true
		}
	}
	return false
}

// DecodeResponse parses a planner body. A missing or unknown mode is malformed.
func DecodeResponse(body []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewMalformedResponseError(body, fmt.Errorf("decode planner response: %w", err))
	}
	if resp.Mode == "" {
		return nil, NewMalformedResponseError(body, fmt.Errorf("planner response has no mode"))
	}
	if !resp.Mode.Valid() {
		return nil, NewMalformedResponseError(body, fmt.Errorf("planner response has unknown mode %q", resp.Mode))
	}
	return &resp, nil
}
