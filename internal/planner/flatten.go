package planner

import (
	"fmt"
	"sort"
	"strings"

	"nile/internal/modules/itinerary"
	"nile/internal/types"
)

const (
	DefaultTitle    = "Activity"
	DefaultLocation = "Egypt"
)

// Flatten turns daily plans into items ordered by day, then by activity.
// Items are numbered act_1..act_N across the whole plan.
func Flatten(it *Itinerary) []itinerary.Item {
	if it == nil {
		return nil
	}
	plans := make([]DailyPlan, len(it.DailyPlans))
	copy(plans, it.DailyPlans)
	for i := range plans {
		if plans[i].Day <= 0 {
			plans[i].Day = i + 1
		}
	}
	sort.SliceStable(plans, func(a, b int) bool { return plans[a].Day < plans[b].Day })

	var items []itinerary.Item
	for _, plan := range plans {
		for _, act := range plan.Activities {
			items = append(items, toItem(len(items)+1, plan, act))
		}
	}
	return items
}

func toItem(n int, plan DailyPlan, act Activity) itinerary.Item {
	title := strings.TrimSpace(act.Title)
	if title == "" {
		title = DefaultTitle
	}
	location := strings.TrimSpace(act.LocationName)
	if location == "" {
		location = DefaultLocation
	}
	tags := act.Tags
	if tags == nil {
		tags = []string{}
	}
	desc := strings.TrimSpace(act.Description)
	if desc == "" {
		desc = act.BestTimeReason
	}
	item := itinerary.Item{
		ID:          fmt.Sprintf("act_%d", n),
		Day:         plan.Day,
		Date:        plan.Date,
		Title:       title,
		TimeWindow:  types.TimeWindow{Start: act.StartTime, End: act.EndTime},
		Location:    location,
		Description: desc,
		Category:    act.Category,
		EstimatedCost: types.CostRange{
			Min:      act.EstimatedCostMin,
			Max:      act.EstimatedCostMax,
			Currency: act.Currency,
		},
		AccessibilityRating: itinerary.ClampRating(act.AccessibilityRating),
		AccessibilityNotes:  act.AccessibilityNotes,
		Tags:                append([]string{}, tags...),
		ReasonNote:          act.BestTimeReason,
	}
	item.AltText = itinerary.AltTextFor(item)
	return item
}
