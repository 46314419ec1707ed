// README: Itinerary aggregate and the activity items it commits.
package itinerary

import (
	"strings"
	"time"

	"nile/internal/types"
)

// Item is one generated activity. Day starts at 1; ID is act_1..act_N in plan order.
type Item struct {
	ID                  string           `json:"id"`
	Day                 int              `json:"day"`
	Date                string           `json:"date,omitempty"`
	Title               string           `json:"title"`
	TimeWindow          types.TimeWindow `json:"time_window"`
	Location            string           `json:"location"`
	Description         string           `json:"description"`
	Category            string           `json:"category,omitempty"`
	EstimatedCost       types.CostRange  `json:"estimated_cost"`
	AccessibilityRating int              `json:"accessibility_rating"`
	AccessibilityNotes  string           `json:"accessibility_notes"`
	Tags                []string         `json:"tags"`
	ReasonNote          string           `json:"reason_note,omitempty"`
	Accepted            bool             `json:"accepted"`
	AltText             string           `json:"alt_text"`
}

func (i Item) Clone() Item {
	i.Tags = append([]string(nil), i.Tags...)
	return i
}

// Itinerary is the committed plan: the accepted subset of a generated batch.
type Itinerary struct {
	ID             types.ID  `json:"id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	Items          []Item    `json:"items"`
	CreatedAt      time.Time `json:"created_at"`
}

// Days returns the distinct day numbers in item order.
func (it Itinerary) Days() []int {
	var days []int
	seen := map[int]bool{}
	for _, item := range it.Items {
		if !seen[item.Day] {
			seen[item.Day] = true
			days = append(days, item.Day)
		}
	}
	return days
}

// ClampRating keeps accessibility ratings within 1..5. Zero means unrated and becomes 3.
func ClampRating(r int) int {
	switch {
	case r <= 0:
		return 3
	case r > 5:
		return 5
	default:
		return r
	}
}

// AltTextFor builds the screen-reader description of a card.
func AltTextFor(i Item) string {
	parts := []string{i.Title}
	if i.Location != "" {
		parts = append(parts, "at "+i.Location)
	}
	if i.TimeWindow.Start != "" {
		w := "from " + i.TimeWindow.Start
		if i.TimeWindow.End != "" {
			w += " to " + i.TimeWindow.End
		}
		parts = append(parts, w)
	}
	return strings.Join(parts, ", ")
}
