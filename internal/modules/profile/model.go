// README: Traveler profile data merged into the planner user_context.
package profile

import "time"

type Profile struct {
	UserID              string    `json:"user_id"`
	AccessibilityFlags  []string  `json:"accessibility_flags"`
	DietaryRestrictions []string  `json:"dietary_restrictions"`
	BudgetMin           *float64  `json:"budget_min,omitempty"`
	BudgetMax           *float64  `json:"budget_max,omitempty"`
	BudgetCurrency      string    `json:"budget_currency"`
	Languages           []string  `json:"languages"`
	TravelPace          string    `json:"travel_pace"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Context renders the profile as user_context keys. Callers compact the result.
func (p *Profile) Context() map[string]any {
	ctx := map[string]any{
		"accessibility_flags":  p.AccessibilityFlags,
		"dietary_restrictions": p.DietaryRestrictions,
		"languages":            p.Languages,
		"travel_pace":          p.TravelPace,
	}
	if p.BudgetMin != nil || p.BudgetMax != nil {
		budget := map[string]any{"currency": p.BudgetCurrency}
		if p.BudgetMin != nil {
			budget["min"] = *p.BudgetMin
		}
		if p.BudgetMax != nil {
			budget["max"] = *p.BudgetMax
		}
		ctx["budget_range"] = budget
	}
	return ctx
}
