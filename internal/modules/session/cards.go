package session

import (
	"fmt"

	"nile/internal/modules/chatlog"
	"nile/internal/modules/itinerary"
)

func dayLabel(day int, date string) string {
	if date == "" {
		return fmt.Sprintf("Day %d", day)
	}
	return fmt.Sprintf("Day %d, %s", day, date)
}

func cardFor(item itinerary.Item) chatlog.SuggestionCard {
	subtitle := item.Category
	if item.TimeWindow.Start != "" {
		subtitle = item.TimeWindow.Start
		if item.TimeWindow.End != "" {
			subtitle += " - " + item.TimeWindow.End
		}
	}
	return chatlog.SuggestionCard{
		ActivityID: item.ID,
		Title:      item.Title,
		Subtitle:   subtitle,
		Location:   item.Location,
		PriceLabel: item.EstimatedCost.Label(),
		Rating:     float64(item.AccessibilityRating),
		Tags:       append([]string{}, item.Tags...),
		Day:        item.Day,
		StartTime:  item.TimeWindow.Start,
		EndTime:    item.TimeWindow.End,
		ReasonNote: item.ReasonNote,
	}
}
