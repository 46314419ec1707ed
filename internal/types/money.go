// README: Cost range value object shared by planner, session and itinerary modules.
package types

import "fmt"

const DefaultCurrency = "USD"

// CostRange is an estimated spend for one activity. Zero Max means unknown upper bound.
type CostRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

func (c CostRange) IsZero() bool {
	return c.Min == 0 && c.Max == 0
}

// Label renders the range the way suggestion cards show it.
func (c CostRange) Label() string {
	cur := c.Currency
	if cur == "" {
		cur = DefaultCurrency
	}
	switch {
	case c.IsZero():
		return "Free"
	case c.Max <= c.Min:
		return fmt.Sprintf("%s %.0f", cur, c.Min)
	default:
		return fmt.Sprintf("%s %.0f-%.0f", cur, c.Min, c.Max)
	}
}
