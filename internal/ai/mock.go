package ai

import (
	"context"
	"fmt"
	"strings"

	"nile/internal/planner"
)

// MockProvider is a deterministic planner used when no Gemini key is configured.
// It returns an itinerary when asked for a plan and a chat reply otherwise.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

var planKeywords = []string{"itinerary", "plan", "schedule", "trip"}

// mockCatalog maps interest labels to a sample activity.
var mockCatalog = map[string]planner.Activity{
	"Ancient History": {
		Title: "Giza Plateau and Sphinx", LocationName: "Giza", StartTime: "08:00", EndTime: "11:00",
		EstimatedCostMin: 540, EstimatedCostMax: 700, Currency: "EGP", Category: "history",
		Tags: []string{"history", "outdoor"}, BestTimeReason: "Early morning avoids the midday heat.",
		AccessibilityRating: 3, AccessibilityNotes: "Paved viewpoints; sand around the pyramids.",
	},
	"Food & Culinary": {
		Title: "Koshary lunch at Abou Tarek", LocationName: "Downtown Cairo", StartTime: "13:00", EndTime: "14:00",
		EstimatedCostMin: 60, EstimatedCostMax: 120, Currency: "EGP", Category: "food",
		Tags: []string{"food"}, BestTimeReason: "Lunch is the main meal of the day.",
		AccessibilityRating: 4, AccessibilityNotes: "Ground floor seating.",
	},
	"Museums & Art": {
		Title: "Grand Egyptian Museum", LocationName: "Giza", StartTime: "10:00", EndTime: "13:00",
		EstimatedCostMin: 1200, EstimatedCostMax: 1200, Currency: "EGP", Category: "museum",
		Tags: []string{"museum", "indoor"}, BestTimeReason: "Quieter halls before noon.",
		AccessibilityRating: 5, AccessibilityNotes: "Lifts and ramps throughout.",
	},
	"Nature & Desert": {
		Title: "Wadi Degla sunset walk", LocationName: "Maadi", StartTime: "16:30", EndTime: "18:30",
		EstimatedCostMin: 5, EstimatedCostMax: 20, Currency: "USD", Category: "nature",
		Tags: []string{"nature", "outdoor"}, BestTimeReason: "Cooler late afternoon light.",
		AccessibilityRating: 2, AccessibilityNotes: "Uneven desert trails.",
	},
	"Nile Cruises": {
		Title: "Felucca ride on the Nile", LocationName: "Garden City", StartTime: "17:00", EndTime: "18:00",
		EstimatedCostMin: 200, EstimatedCostMax: 400, Currency: "EGP", Category: "cruise",
		Tags: []string{"nile", "relaxation"}, BestTimeReason: "Sunset over the river.",
		AccessibilityRating: 2, AccessibilityNotes: "Boarding needs a step down; crew can assist.",
	},
	"Shopping & Bazaars": {
		Title: "Khan el-Khalili bazaar", LocationName: "Islamic Cairo", StartTime: "18:00", EndTime: "20:00",
		EstimatedCostMin: 0, EstimatedCostMax: 0, Category: "shopping",
		Tags: []string{"shopping", "culture"}, BestTimeReason: "Lanes come alive after sunset.",
		AccessibilityRating: 2, AccessibilityNotes: "Narrow, crowded lanes.",
	},
	"Nightlife": {
		Title: "Cairo Jazz Club", LocationName: "Agouza", StartTime: "21:00", EndTime: "23:30",
		EstimatedCostMin: 10, EstimatedCostMax: 25, Currency: "USD", Category: "nightlife",
		Tags: []string{"music", "nightlife"}, BestTimeReason: "Live sets start after nine.",
		AccessibilityRating: 3, AccessibilityNotes: "Entrance has two steps.",
	},
	"Relaxation": {
		Title: "Al-Azhar Park gardens", LocationName: "Al-Darb al-Ahmar", StartTime: "15:00", EndTime: "17:00",
		EstimatedCostMin: 25, EstimatedCostMax: 25, Currency: "EGP", Category: "park",
		Tags: []string{"relaxation", "outdoor"}, BestTimeReason: "Shade and city views in the afternoon.",
		AccessibilityRating: 4, AccessibilityNotes: "Paved paths with gentle slopes.",
	},
}

var defaultInterests = []string{"Ancient History", "Food & Culinary", "Museums & Art"}

func (m *MockProvider) Plan(_ context.Context, in PlanInput) (*planner.Response, error) {
	if !wantsPlan(in.Message) {
		return &planner.Response{
			Mode:        planner.ModeChat,
			Message:     fmt.Sprintf("Noted: %q. Would you like me to put together a day-by-day plan?", in.Message),
			Suggestions: []string{"Yes, plan my trip", "Tell me about Luxor", "What should I pack?"},
		}, nil
	}

	interests := stringsFrom(in.UserContext["interests"])
	if len(interests) == 0 {
		interests = defaultInterests
	}
	wheelchair := false
	for _, need := range append(stringsFrom(in.UserContext["accessibility_needs"]), stringsFrom(in.UserContext["accessibility_flags"])...) {
		n := strings.ToLower(need)
		if strings.Contains(n, "wheelchair") || strings.Contains(n, "mobility") || strings.Contains(n, "step") {
			wheelchair = true
		}
	}

	var days []planner.DailyPlan
	for _, interest := range interests {
		act, ok := mockCatalog[interest]
		if !ok {
			continue
		}
		if wheelchair && act.AccessibilityRating < 3 {
			continue
		}
		act.Tags = append([]string(nil), act.Tags...)
		// two activities per day
		if len(days) == 0 || len(days[len(days)-1].Activities) == 2 {
			days = append(days, planner.DailyPlan{Day: len(days) + 1, Title: fmt.Sprintf("Day %d in Cairo", len(days)+1)})
		}
		days[len(days)-1].Activities = append(days[len(days)-1].Activities, act)
	}
	if len(days) == 0 {
		return &planner.Response{
			Mode:        planner.ModeChat,
			Message:     "I couldn't find accessible activities for those interests. Could you pick another theme?",
			Suggestions: []string{"Museums", "Relaxation"},
		}, nil
	}
	return &planner.Response{
		Mode:      planner.ModeItinerary,
		Message:   "Here is a plan based on what you told me.",
		Itinerary: &planner.Itinerary{DailyPlans: days},
	}, nil
}

func wantsPlan(msg string) bool {
	lower := strings.ToLower(msg)
	for _, kw := range planKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// stringsFrom accepts the []string a Go caller builds and the []any JSON decoding yields.
func stringsFrom(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
